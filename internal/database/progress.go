package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questrail.io/questrail/pkg/errors"
)

type ProgressStatus string

const (
	ProgressStatusPending  = ProgressStatus("pending")
	ProgressStatusApproved = ProgressStatus("approved")
	ProgressStatusRejected = ProgressStatus("rejected")
)

var (
	ErrProgressNotFound        = errors.New("progress not found")
	ErrProgressAlreadyReviewed = errors.New("progress already reviewed")
	ErrNoPromoCodeAvailable    = errors.New("no unused promo code for quest")
	ErrProgressExists          = errors.New("progress already submitted for quest")
)

type QuestProgress struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string         `gorm:"type:varchar(36);uniqueIndex:uni_user_quest" json:"user_id"`
	QuestID      string         `gorm:"type:varchar(36);uniqueIndex:uni_user_quest" json:"quest_id"`
	PhotoPath    string         `gorm:"type:varchar(500)" json:"photo_path"`
	Status       ProgressStatus `gorm:"type:varchar(20);default:pending" json:"status"`
	PromoCodeID  *string        `gorm:"type:varchar(36)" json:"promo_code_id"`
	AdminComment string         `gorm:"type:text" json:"admin_comment"`
	CompletedAt  time.Time      `gorm:"type:timestamp" json:"completed_at"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Quest     *Quest     `gorm:"foreignKey:QuestID" json:"quest,omitempty"`
	PromoCode *PromoCode `gorm:"foreignKey:PromoCodeID" json:"promo_code,omitempty"`
}

// Submit records the proof photo. One submission per (user, quest); a
// second submit fails with ErrProgressExists.
func (QuestProgress) Submit(userID, questID, photoPath string) (*QuestProgress, error) {
	entity := QuestProgress{
		ID:          uuid.New().String(),
		UserID:      userID,
		QuestID:     questID,
		PhotoPath:   photoPath,
		Status:      ProgressStatusPending,
		CompletedAt: time.Now(),
	}
	err := Postgres.Create(&entity).Error
	if IsDuplicateKeyErr(err) {
		return nil, ErrProgressExists
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "create quest progress")
	}
	return &entity, nil
}

func (QuestProgress) SelectOne(id string) (*QuestProgress, error) {
	var entity QuestProgress
	err := Postgres.Preload("User").Preload("Quest").Preload("PromoCode").
		Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query quest progress")
	}
	return &entity, nil
}

func (QuestProgress) SelectAll() ([]*QuestProgress, error) {
	var entities []*QuestProgress
	err := Postgres.Preload("User").Preload("Quest").Preload("PromoCode").
		Order("completed_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query quest progresses")
	}
	return entities, nil
}

func (QuestProgress) SelectByStatus(status ProgressStatus) ([]*QuestProgress, error) {
	var entities []*QuestProgress
	err := Postgres.Preload("User").Preload("Quest").Preload("PromoCode").
		Where("status = ?", status).Order("completed_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query quest progresses by status")
	}
	return entities, nil
}

// Approve claims one unused code of the quest and binds it to the
// pending progress in a single transaction. The FOR UPDATE locks on the
// progress row and the code row make concurrent approvals on the same
// quest claim distinct codes or fail with ErrNoPromoCodeAvailable.
func (QuestProgress) Approve(progressID, comment string) (*QuestProgress, *PromoCode, error) {
	var (
		progress QuestProgress
		code     *PromoCode
	)
	err := Postgres.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", progressID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgressNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock quest progress")
		}
		if progress.Status != ProgressStatusPending {
			return ErrProgressAlreadyReviewed
		}
		code, err = claimFirstUnusedTx(tx, progress.QuestID)
		if err != nil {
			return err
		}
		if code == nil {
			return ErrNoPromoCodeAvailable
		}
		progress.Status = ProgressStatusApproved
		progress.PromoCodeID = &code.ID
		progress.AdminComment = comment
		err = tx.Model(&QuestProgress{}).Where("id = ?", progress.ID).Updates(map[string]interface{}{
			"status":        ProgressStatusApproved,
			"promo_code_id": code.ID,
			"admin_comment": comment,
		}).Error
		return errors.Wrap(err, "update approved progress")
	})
	if err != nil {
		return nil, nil, err
	}
	return &progress, code, nil
}

// Reject is the one-way pending -> rejected transition.
func (QuestProgress) Reject(progressID, comment string) (*QuestProgress, error) {
	var progress QuestProgress
	err := Postgres.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", progressID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgressNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock quest progress")
		}
		if progress.Status != ProgressStatusPending {
			return ErrProgressAlreadyReviewed
		}
		progress.Status = ProgressStatusRejected
		progress.AdminComment = comment
		err = tx.Model(&QuestProgress{}).Where("id = ?", progress.ID).Updates(map[string]interface{}{
			"status":        ProgressStatusRejected,
			"admin_comment": comment,
		}).Error
		return errors.Wrap(err, "update rejected progress")
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}
