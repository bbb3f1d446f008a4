// Package reward turns an admin verdict on a quest submission into a
// promo code allocation and the user-facing notification.
package reward

import (
	"context"

	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/pkg/log"
)

// Store reviews submissions. Approve must atomically claim exactly one
// unused code, so two concurrent approvals can never share a code and
// a submission can never be reviewed twice.
type Store interface {
	Approve(progressID, comment string) (*database.QuestProgress, *database.PromoCode, error)
	Reject(progressID, comment string) (*database.QuestProgress, error)
	Progress(id string) (*database.QuestProgress, error)
}

// Notifier delivers the verdict to the user. Best effort: a failed
// notification never rolls the verdict back.
type Notifier interface {
	QuestApproved(ctx context.Context, telegramID int64, questName, code, comment string) error
	QuestRejected(ctx context.Context, telegramID int64, questName, comment string) error
}

type Allocator struct {
	store    Store
	notifier Notifier
}

func NewAllocator(store Store, notifier Notifier) *Allocator {
	return &Allocator{store: store, notifier: notifier}
}

// Approve claims a code for the submission. Fails with
// database.ErrProgressNotFound, database.ErrProgressAlreadyReviewed or
// database.ErrNoPromoCodeAvailable; the latter leaves the submission
// pending so it can be approved again once codes are topped up.
func (a *Allocator) Approve(ctx context.Context, progressID, comment string) error {
	_, code, err := a.store.Approve(progressID, comment)
	if err != nil {
		return err
	}
	a.notify(ctx, progressID, func(telegramID int64, questName string) error {
		return a.notifier.QuestApproved(ctx, telegramID, questName, code.Code, comment)
	})
	return nil
}

func (a *Allocator) Reject(ctx context.Context, progressID, comment string) error {
	if _, err := a.store.Reject(progressID, comment); err != nil {
		return err
	}
	a.notify(ctx, progressID, func(telegramID int64, questName string) error {
		return a.notifier.QuestRejected(ctx, telegramID, questName, comment)
	})
	return nil
}

func (a *Allocator) notify(ctx context.Context, progressID string, send func(telegramID int64, questName string) error) {
	if a.notifier == nil {
		return
	}
	progress, err := a.store.Progress(progressID)
	if err != nil {
		log.Error(err)
		return
	}
	if progress == nil || progress.User == nil {
		log.Warnf("Reviewed submission %v has no user attached, skipping notification", progressID)
		return
	}
	questName := progress.QuestID
	if progress.Quest != nil {
		questName = progress.Quest.Name
	}
	if err := send(progress.User.TelegramID, questName); err != nil {
		log.Error(err)
	}
}
