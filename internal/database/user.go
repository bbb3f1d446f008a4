package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questrail.io/questrail/pkg/errors"
)

type User struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TelegramID  int64     `gorm:"type:int8;uniqueIndex" json:"telegram_id"`
	Name        string    `gorm:"type:varchar(255)" json:"name"`
	PhoneNumber string    `gorm:"type:varchar(20)" json:"phone_number"`
	IsVerified  bool      `gorm:"type:bool" json:"is_verified"`
	IsAdmin     bool      `gorm:"type:bool" json:"is_admin"`
	CreatedAt   time.Time `gorm:"type:timestamp" json:"created_at"`
}

// GetOrCreate registers the telegram account on first contact.
func (User) GetOrCreate(telegramID int64, name string) (*User, error) {
	entity := User{
		ID:         uuid.New().String(),
		TelegramID: telegramID,
		Name:       name,
		CreatedAt:  time.Now(),
	}
	err := Postgres.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoNothing: true,
	}).Create(&entity).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "get or create user")
	}
	return User{}.SelectByTelegramID(telegramID)
}

func (User) SelectByTelegramID(telegramID int64) (*User, error) {
	var entity User
	err := Postgres.Where("telegram_id = ?", telegramID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query user by telegram id")
	}
	return &entity, nil
}

func (User) SelectOne(id string) (*User, error) {
	var entity User
	err := Postgres.Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query user")
	}
	return &entity, nil
}

func (User) SelectAll() ([]*User, error) {
	var entities []*User
	err := Postgres.Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query users")
	}
	return entities, nil
}

// UpdateVerifiedPhone stores the shared contact and marks the account
// verified.
func (User) UpdateVerifiedPhone(telegramID int64, phone string) error {
	err := Postgres.Model(&User{}).Where("telegram_id = ?", telegramID).Updates(map[string]interface{}{
		"phone_number": phone,
		"is_verified":  true,
	}).Error
	return errors.WrapAndReport(err, "update user verified phone")
}

func (in User) IsAdminUser() bool {
	return in.IsAdmin
}
