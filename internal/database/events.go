package database

import (
	"time"

	"questrail.io/questrail/pkg/errors"
)

type InboundEventType string

const (
	InboundEventTypeMessage  = InboundEventType("message")
	InboundEventTypeCallback = InboundEventType("callback")
)

// InboundEvent mirrors every chat update into a jsonb dump table for
// offline analytics, alongside the kafka bus.
type InboundEvent struct {
	ID        int64            `gorm:"primaryKey"`
	ChatID    int64            `gorm:"type:int8;index"`
	EventType InboundEventType `gorm:"type:varchar(50)"`
	Event     JSONBMap         `gorm:"type:jsonb"`
	EventTime time.Time        `gorm:"type:timestamp"`
}

func (in InboundEvent) Create() error {
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "dump inbound event")
}
