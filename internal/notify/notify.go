// Package notify delivers review verdicts to users through the
// notification queue, decoupling the reviewing path from chat sends.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"questrail.io/questrail/internal/blob"
	"questrail.io/questrail/internal/chat"
	"questrail.io/questrail/internal/reward"
	"questrail.io/questrail/pkg/common"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

type NoticeKind string

const (
	NoticeQuestApproved = NoticeKind("quest_approved")
	NoticeQuestRejected = NoticeKind("quest_rejected")
)

type Notice struct {
	Kind       NoticeKind `json:"kind"`
	TelegramID int64      `json:"telegram_id"`
	QuestName  string     `json:"quest_name"`
	PromoCode  string     `json:"promo_code,omitempty"`
	Comment    string     `json:"comment,omitempty"`
}

// Publisher enqueues notices. Implements the reward notifier.
type Publisher struct {
	queueURL string
}

func NewPublisher(queueURL string) *Publisher {
	return &Publisher{queueURL: queueURL}
}

func (p *Publisher) QuestApproved(ctx context.Context, telegramID int64, questName, code, comment string) error {
	return p.publish(ctx, Notice{
		Kind:       NoticeQuestApproved,
		TelegramID: telegramID,
		QuestName:  questName,
		PromoCode:  code,
		Comment:    comment,
	})
}

func (p *Publisher) QuestRejected(ctx context.Context, telegramID int64, questName, comment string) error {
	return p.publish(ctx, Notice{
		Kind:       NoticeQuestRejected,
		TelegramID: telegramID,
		QuestName:  questName,
		Comment:    comment,
	})
}

func (p *Publisher) publish(ctx context.Context, notice Notice) error {
	return blob.Client.SendMessageToSQS(ctx, p.queueURL, common.MustGetJSONString(notice))
}

// Worker consumes the notification queue and sends each notice to the
// user. An undecodable message is dropped from the queue.
type Worker struct {
	queueURL string
	channel  chat.Channel
}

func NewWorker(queueURL string, channel chat.Channel) *Worker {
	return &Worker{queueURL: queueURL, channel: channel}
}

func (w *Worker) Start(ctx context.Context) {
	channel := w.channel
	blob.Client.NewSQSWorker(ctx, w.queueURL, func(msg *types.Message) (bool, error) {
		if msg.Body == nil {
			return true, nil
		}
		var notice Notice
		if err := json.Unmarshal([]byte(*msg.Body), &notice); err != nil {
			log.Error(errors.WrapAndReport(err, "decode notification message"))
			return true, nil
		}
		if err := deliver(ctx, channel, notice); err != nil {
			return false, err
		}
		return true, nil
	})
}

func deliver(ctx context.Context, channel chat.Channel, notice Notice) error {
	switch notice.Kind {
	case NoticeQuestApproved:
		text := fmt.Sprintf("🎉 Your submission for %q was approved!\nYour promo code: %v", notice.QuestName, notice.PromoCode)
		if notice.Comment != "" {
			text += "\n\n" + notice.Comment
		}
		if err := channel.SendText(ctx, notice.TelegramID, text); err != nil {
			return err
		}
		png, err := reward.CodeQR(notice.PromoCode)
		if err != nil {
			log.Error(err)
			return nil
		}
		if err := channel.SendPhotoData(ctx, notice.TelegramID, png, notice.PromoCode); err != nil {
			log.Error(err)
		}
		return nil
	case NoticeQuestRejected:
		text := fmt.Sprintf("Unfortunately your submission for %q was rejected.", notice.QuestName)
		if notice.Comment != "" {
			text += "\nReason: " + notice.Comment
		}
		return channel.SendText(ctx, notice.TelegramID, text)
	default:
		log.Warnf("Unknown notice kind %v, dropping", notice.Kind)
		return nil
	}
}
