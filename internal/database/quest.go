package database

import (
	"time"

	"gorm.io/gorm"

	"questrail.io/questrail/pkg/errors"
)

var (
	ErrQuestNotFound = errors.New("quest not found")
)

type Quest struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255)" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"type:varchar(255)" json:"location"`
	Latitude    *float64  `gorm:"type:float8" json:"latitude"`
	Longitude   *float64  `gorm:"type:float8" json:"longitude"`
	IsActive    bool      `gorm:"type:bool;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"type:timestamp" json:"created_at"`
}

func (in Quest) Create() error {
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create quest")
}

func (Quest) SelectOne(id string) (*Quest, error) {
	var entity Quest
	err := Postgres.Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query quest")
	}
	return &entity, nil
}

func (Quest) SelectAll() ([]*Quest, error) {
	var entities []*Quest
	err := Postgres.Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query quests")
	}
	return entities, nil
}

func (Quest) SelectActive() ([]*Quest, error) {
	var entities []*Quest
	err := Postgres.Where("is_active").Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query active quests")
	}
	return entities, nil
}

// ToggleActive flips the active flag and returns the new value.
func (Quest) ToggleActive(id string) (bool, error) {
	var entity Quest
	err := Postgres.Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrQuestNotFound
	}
	if err != nil {
		return false, errors.WrapAndReport(err, "query quest for toggle")
	}
	entity.IsActive = !entity.IsActive
	err = Postgres.Model(&Quest{}).Where("id = ?", id).
		Update("is_active", entity.IsActive).Error
	if err != nil {
		return false, errors.WrapAndReport(err, "toggle quest active")
	}
	return entity.IsActive, nil
}
