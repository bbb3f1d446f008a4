package telegram

import (
	"context"
	"fmt"
	"net/http"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"questrail.io/questrail/internal/blob"
	"questrail.io/questrail/internal/chat"
	"questrail.io/questrail/pkg/common"
	"questrail.io/questrail/pkg/errors"
)

// The send helpers below implement chat.Channel. Every outbound call
// goes through the shared pacer to stay under the bot API rate limits.

func (b *Bot) send(c tgbotapi.Chattable) error {
	b.pacer.Take()
	_, err := b.api.Send(c)
	return errors.WrapAndReport(err, "send telegram message")
}

func (b *Bot) SendText(_ context.Context, chatID int64, text string) error {
	return b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) SendTextWithKeyboard(_ context.Context, chatID int64, text string, kb chat.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = inlineKeyboard(kb)
	return b.send(msg)
}

func inlineKeyboard(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range kb {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Callback))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) SendMenu(_ context.Context, chatID int64, text string, menu [][]string) error {
	var rows [][]tgbotapi.KeyboardButton
	for _, row := range menu {
		var buttons []tgbotapi.KeyboardButton
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	return b.send(msg)
}

func (b *Bot) SendContactRequest(_ context.Context, chatID int64, text string) error {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📱 Share my phone number")),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	return b.send(msg)
}

func (b *Bot) SendLocation(_ context.Context, chatID int64, lat, lon float64) error {
	return b.send(tgbotapi.NewLocation(chatID, lat, lon))
}

func (b *Bot) SendPhoto(_ context.Context, chatID int64, url, caption string) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	return b.send(msg)
}

func (b *Bot) SendPhotoData(_ context.Context, chatID int64, data []byte, caption string) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "photo.png", Bytes: data})
	msg.Caption = caption
	return b.send(msg)
}

func (b *Bot) SendAudio(_ context.Context, chatID int64, url, caption string) error {
	msg := tgbotapi.NewAudio(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	return b.send(msg)
}

func (b *Bot) SendVideo(_ context.Context, chatID int64, url, caption string) error {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FileURL(url))
	msg.Caption = caption
	return b.send(msg)
}

func (b *Bot) SendMediaGroup(_ context.Context, chatID int64, media []chat.Media) error {
	var files []interface{}
	for _, m := range media {
		switch m.Kind {
		case chat.MediaVideo:
			files = append(files, tgbotapi.NewInputMediaVideo(tgbotapi.FileURL(m.URL)))
		default:
			photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(m.URL))
			photo.Caption = m.Caption
			files = append(files, photo)
		}
	}
	b.pacer.Take()
	_, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files))
	return errors.WrapAndReport(err, "send telegram media group")
}

// StoreInboundMedia pulls the file off telegram servers and parks it
// in the blob store under a fresh key.
func (b *Bot) StoreInboundMedia(ctx context.Context, fileID, keyPrefix string) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", errors.WrapAndReport(err, "resolve telegram file")
	}
	resp, err := http.Get(file.Link(b.api.Token))
	if err != nil {
		return "", errors.WrapAndReport(err, "download telegram file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.ErrorfAndReport("download telegram file: status %v", resp.StatusCode)
	}
	key := fmt.Sprintf("%v/%v%v", keyPrefix, common.NewCutUUIDString(), path.Ext(file.FilePath))
	if err := blob.Client.PutFile(ctx, key, resp.Body); err != nil {
		return "", err
	}
	return key, nil
}
