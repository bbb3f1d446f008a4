package reward

import (
	"questrail.io/questrail/internal/database"
)

type gormStore struct{}

// NewStore returns the Store bound to the global postgres connection.
func NewStore() Store {
	return gormStore{}
}

func (gormStore) Approve(progressID, comment string) (*database.QuestProgress, *database.PromoCode, error) {
	return database.QuestProgress{}.Approve(progressID, comment)
}

func (gormStore) Reject(progressID, comment string) (*database.QuestProgress, error) {
	return database.QuestProgress{}.Reject(progressID, comment)
}

func (gormStore) Progress(id string) (*database.QuestProgress, error) {
	return database.QuestProgress{}.SelectOne(id)
}
