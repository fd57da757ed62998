package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a to-do item assigned to a client.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Client      Client     `gorm:"foreignKey:ClientID" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
