package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questrail.io/questrail/pkg/errors"
)

type PromoCode struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex" json:"code"`
	QuestID   string    `gorm:"type:varchar(36);index" json:"quest_id"`
	IsUsed    bool      `gorm:"type:bool" json:"is_used"`
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`
}

// BulkCreate stocks codes for a quest ahead of time. Duplicate code
// strings are skipped.
func (PromoCode) BulkCreate(questID string, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	now := time.Now()
	entities := make([]*PromoCode, 0, len(codes))
	for _, code := range codes {
		entities = append(entities, &PromoCode{
			ID:        uuid.New().String(),
			Code:      code,
			QuestID:   questID,
			CreatedAt: now,
		})
	}
	result := Postgres.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&entities)
	if result.Error != nil {
		return 0, errors.WrapAndReport(result.Error, "bulk create promo codes")
	}
	return int(result.RowsAffected), nil
}

func (PromoCode) SelectOne(id string) (*PromoCode, error) {
	var entity PromoCode
	err := Postgres.Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query promo code")
	}
	return &entity, nil
}

func (PromoCode) SelectAll() ([]*PromoCode, error) {
	var entities []*PromoCode
	err := Postgres.Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query promo codes")
	}
	return entities, nil
}

func (PromoCode) CountUnused(questID string) (int64, error) {
	var count int64
	err := Postgres.Model(&PromoCode{}).
		Where("quest_id = ? AND NOT is_used", questID).Count(&count).Error
	if err != nil {
		return 0, errors.WrapAndReport(err, "count unused promo codes")
	}
	return count, nil
}

// SelectIssuedTo lists codes bound to the user's approved progress.
func (PromoCode) SelectIssuedTo(userID string) ([]*PromoCode, error) {
	var entities []*PromoCode
	err := Postgres.
		Joins("JOIN quest_progresses ON quest_progresses.promo_code_id = promo_codes.id").
		Where("quest_progresses.user_id = ?", userID).
		Order("promo_codes.created_at").
		Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query issued promo codes")
	}
	return entities, nil
}

// claimFirstUnusedTx locks and marks the oldest unused code of the
// quest inside the caller's transaction. Returns nil when the quest has
// no stock left. The row lock serializes concurrent claims per quest.
func claimFirstUnusedTx(tx *gorm.DB, questID string) (*PromoCode, error) {
	var entity PromoCode
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("quest_id = ? AND NOT is_used", questID).
		Order("created_at, id").
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock unused promo code")
	}
	err = tx.Model(&PromoCode{}).Where("id = ?", entity.ID).
		Update("is_used", true).Error
	if err != nil {
		return nil, errors.Wrap(err, "mark promo code used")
	}
	entity.IsUsed = true
	return &entity, nil
}
