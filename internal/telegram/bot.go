// Package telegram adapts the bot API transport to the chat engine:
// inbound updates become normalized events, outbound sends implement
// the engine's channel.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/ratelimit"

	"questrail.io/questrail/internal/cache"
	"questrail.io/questrail/internal/chat"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

// Telegram caps bots around 30 messages per second overall.
const outboundPerSecond = 25

// Handler receives normalized events; the chat dispatcher in
// production.
type Handler interface {
	Dispatch(ctx context.Context, ev *chat.Event)
}

type Bot struct {
	api           *tgbotapi.BotAPI
	pacer         ratelimit.Limiter
	updateTimeout int
}

func New(token string, updateTimeoutSec int) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.WrapAndReport(err, "create telegram bot api")
	}
	if updateTimeoutSec <= 0 {
		updateTimeoutSec = 30
	}
	log.Infof("Telegram bot authorized as %v", api.Self.UserName)
	return &Bot{
		api:           api,
		pacer:         ratelimit.New(outboundPerSecond),
		updateTimeout: updateTimeoutSec,
	}, nil
}

// Run blocks consuming updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context, handler Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout
	updates := b.api.GetUpdatesChan(u)
	log.Info("Telegram update loop started...")
	defer log.Info("Telegram update loop stopped...")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update, handler)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update, handler Handler) {
	defer func() {
		if cause := recover(); cause != nil {
			log.Error(errors.ErrorfAndReport("handle telegram update panic: %v", cause))
		}
	}()
	ev := b.normalize(update)
	if ev == nil {
		return
	}
	if !cache.InboundAllowed(ctx, ev.ChatID) {
		log.Debugf("Chat %v rate limited, dropping %v event", ev.ChatID, ev.Kind)
		return
	}
	handler.Dispatch(ctx, ev)
}

// normalize maps a raw update to an engine event, or nil for update
// shapes the dialogues never use.
func (b *Bot) normalize(update tgbotapi.Update) *chat.Event {
	if cq := update.CallbackQuery; cq != nil {
		// Ack first so the client stops the spinner regardless of
		// what the dialogue does with it.
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Error(errors.WrapAndReport(err, "answer callback query"))
		}
		if cq.Message == nil {
			return nil
		}
		return &chat.Event{
			ChatID:     cq.Message.Chat.ID,
			SenderID:   cq.From.ID,
			SenderName: senderName(cq.From),
			Kind:       chat.EventCallback,
			Text:       cq.Data,
		}
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	ev := &chat.Event{
		ChatID:     msg.Chat.ID,
		SenderID:   msg.From.ID,
		SenderName: senderName(msg.From),
	}
	switch {
	case msg.Contact != nil:
		// Only trust a contact card the sender shared about themselves.
		if msg.Contact.UserID != msg.From.ID {
			return nil
		}
		ev.Kind = chat.EventContact
		ev.Phone = msg.Contact.PhoneNumber
	case msg.Location != nil:
		ev.Kind = chat.EventLocation
		ev.Latitude = msg.Location.Latitude
		ev.Longitude = msg.Location.Longitude
	case len(msg.Photo) > 0:
		ev.Kind = chat.EventPhoto
		// The last size is the original resolution.
		ev.FileID = msg.Photo[len(msg.Photo)-1].FileID
		ev.Text = msg.Caption
	case msg.Audio != nil:
		ev.Kind = chat.EventAudio
		ev.FileID = msg.Audio.FileID
		ev.Text = msg.Caption
	case msg.Voice != nil:
		ev.Kind = chat.EventAudio
		ev.FileID = msg.Voice.FileID
	case msg.Video != nil:
		ev.Kind = chat.EventVideo
		ev.FileID = msg.Video.FileID
		ev.Text = msg.Caption
	case msg.Text != "":
		ev.Kind = chat.EventText
		ev.Text = msg.Text
	default:
		return nil
	}
	return ev
}

func senderName(user *tgbotapi.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		name = user.UserName
	}
	return name
}
