package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is the metadata row for a blob kept in object storage.
type Document struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	FileName    string         `gorm:"size:255;not null" json:"file_name"`
	FilePath    string         `gorm:"size:500;not null;uniqueIndex" json:"file_path"`
	Folder      DocumentFolder `gorm:"size:20;not null;index" json:"folder"`
	UploadedBy  Party          `gorm:"size:10;not null" json:"uploaded_by"`
	ContentType string         `gorm:"size:120" json:"content_type"`
	Size        int64          `json:"size"`
	UploadedAt  time.Time      `gorm:"not null" json:"uploaded_at"`
	Client      Client         `gorm:"foreignKey:ClientID" json:"-"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
