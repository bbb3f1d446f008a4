package chat

import (
	"sync"

	"questrail.io/questrail/internal/database"
)

type State int

const (
	StateIdle State = iota

	StatePointName
	StatePointDescription
	StatePointLocation
	StatePointContent
	StatePointText
	StatePointPhoto
	StatePointPhotoCaption
	StatePointAudio
	StatePointVideo

	StatePointEditName
	StatePointEditDescription
	StatePointEditLocation
	StatePointEditText
	StatePointEditPhoto
	StatePointEditPhotoCaption
	StatePointEditAudio
	StatePointEditVideo

	StateRouteName
	StateRouteDescription
	StateRouteEditName
	StateRouteEditDescription
	StateRouteEditCover

	StateQuestProof

	StateWalking
)

// PointDraft accumulates the answers of the point creation dialogue
// until the location arrives and the point is persisted.
type PointDraft struct {
	Name        string
	Description string
	// PendingPhotoPath holds an uploaded photo while its caption is
	// being asked for.
	PendingPhotoPath string
}

type RouteDraft struct {
	Name string
}

// WalkStop is a value snapshot of one waypoint taken when the walk
// starts, so later edits cannot reshape a walk in flight.
type WalkStop struct {
	PointID     string
	Name        string
	Description string
	Latitude    float64
	Longitude   float64
	TextContent string
	PhotoPaths  []string
	Captions    []string
	AudioPaths  []string
	VideoPaths  []string
}

// WalkCursor tracks an active walk. Index points at the stop the
// traveler is heading to; it moves forward one stop per confirmation.
type WalkCursor struct {
	RouteID   string
	RouteName string
	Stops     []WalkStop
	Index     int
}

type Session struct {
	ChatID int64
	State  State

	PointDraft *PointDraft
	// PointID is the point under the content loop or an edit flow.
	PointID string

	RouteDraft *RouteDraft
	RouteID    string

	QuestID string

	Walk *WalkCursor
}

// Reset returns the session to the idle state and drops all scratch
// data, including any walk in progress.
func (s *Session) Reset() {
	s.State = StateIdle
	s.PointDraft = nil
	s.PointID = ""
	s.RouteDraft = nil
	s.RouteID = ""
	s.QuestID = ""
	s.Walk = nil
}

// Sessions keeps per-chat dialogue state in memory. State is scoped to
// the process lifetime; a restart drops everyone back to idle, which
// matches how the dialogues recover anyway.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]*Session)}
}

func (s *Sessions) Get(chatID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[chatID]
}

func (s *Sessions) GetOrCreate(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}
	sess := &Session{ChatID: chatID, State: StateIdle}
	s.sessions[chatID] = sess
	return sess
}

// Drop removes the session entirely. Used when a dialogue finishes so
// idle chats do not accumulate.
func (s *Sessions) Drop(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SnapshotStops copies the ordered waypoints of a route into walk
// stops. The copies are detached from gorm models entirely.
func SnapshotStops(members []*database.RoutePoint) []WalkStop {
	stops := make([]WalkStop, 0, len(members))
	for _, member := range members {
		if member.Point == nil {
			continue
		}
		p := member.Point
		stop := WalkStop{
			PointID:     p.ID,
			Name:        p.Name,
			Description: p.Description,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			TextContent: p.TextContent,
		}
		for _, photo := range p.Photos {
			stop.PhotoPaths = append(stop.PhotoPaths, photo.Path)
			stop.Captions = append(stop.Captions, photo.Caption)
		}
		for _, audio := range p.Audios {
			stop.AudioPaths = append(stop.AudioPaths, audio.Path)
		}
		for _, video := range p.Videos {
			stop.VideoPaths = append(stop.VideoPaths, video.Path)
		}
		stops = append(stops, stop)
	}
	return stops
}
