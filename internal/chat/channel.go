package chat

import (
	"context"
)

type EventKind int

const (
	EventText EventKind = iota
	EventLocation
	EventPhoto
	EventAudio
	EventVideo
	EventContact
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventLocation:
		return "location"
	case EventPhoto:
		return "photo"
	case EventAudio:
		return "audio"
	case EventVideo:
		return "video"
	case EventContact:
		return "contact"
	case EventCallback:
		return "callback"
	}
	return "unknown"
}

// Event is one inbound chat update, already normalized by the
// transport adapter. Exactly one payload group is meaningful per kind.
type Event struct {
	ChatID     int64
	SenderID   int64
	SenderName string
	Kind       EventKind

	// Text carries message text for EventText, the caption for media
	// kinds, and the raw payload for EventCallback.
	Text      string
	Latitude  float64
	Longitude float64
	// FileID references the transport-side media object; the engine
	// stores it through the channel when the dialogue wants it.
	FileID string
	Phone  string
}

type MediaKind int

const (
	MediaPhoto MediaKind = iota
	MediaAudio
	MediaVideo
)

type Media struct {
	Kind    MediaKind
	URL     string
	Caption string
}

type Button struct {
	Label    string
	Callback string
}

// Keyboard is an inline keyboard: rows of callback buttons.
type Keyboard [][]Button

// Channel is the outbound half of the messaging transport plus media
// intake. Implemented by the telegram adapter; faked in tests.
type Channel interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTextWithKeyboard(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// SendMenu presents a persistent reply keyboard of plain labels.
	SendMenu(ctx context.Context, chatID int64, text string, menu [][]string) error
	SendContactRequest(ctx context.Context, chatID int64, text string) error
	SendLocation(ctx context.Context, chatID int64, lat, lon float64) error
	SendPhoto(ctx context.Context, chatID int64, url, caption string) error
	SendPhotoData(ctx context.Context, chatID int64, data []byte, caption string) error
	SendAudio(ctx context.Context, chatID int64, url, caption string) error
	SendVideo(ctx context.Context, chatID int64, url, caption string) error
	SendMediaGroup(ctx context.Context, chatID int64, media []Media) error
	// StoreInboundMedia downloads the transport media object and puts
	// it into the blob store under keyPrefix, returning the blob path.
	StoreInboundMedia(ctx context.Context, fileID, keyPrefix string) (string, error)
}

// MediaResolver turns a stored blob path into a retrievable URL.
type MediaResolver interface {
	AccessURL(ctx context.Context, path string) (string, error)
}

// BlobStore removes stored media once the owning records are gone.
type BlobStore interface {
	DeleteFiles(ctx context.Context, keys []string)
}

// CallbackIndex shortens composite callback payloads that exceed the
// transport's callback-data size limit.
type CallbackIndex interface {
	NewRef(ctx context.Context, payload string) (string, error)
	// Resolve returns "" for an unknown or expired ref.
	Resolve(ctx context.Context, ref string) (string, error)
}
