package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry of a client's conversation thread. Rows are never edited.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_client_ts,priority:1" json:"client_id"`
	Sender    Party     `gorm:"size:10;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_client_ts,priority:2" json:"timestamp"`
	Client    Client    `gorm:"foreignKey:ClientID" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
