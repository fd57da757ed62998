package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionKind string

const (
	SessionAdmin  SessionKind = "admin"
	SessionClient SessionKind = "client"
)

// Session is a server-side record backing an issued access token.
// Subject is the admin email or the client id, depending on Kind.
type Session struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          SessionKind `gorm:"size:10;not null;index:idx_sessions_subject,priority:1" json:"kind"`
	Subject       string      `gorm:"size:255;not null;index:idx_sessions_subject,priority:2" json:"subject"`
	ProviderToken string      `gorm:"type:text" json:"-"`
	ExpiresAt     time.Time   `gorm:"not null" json:"expires_at"`
	Revoked       bool        `gorm:"not null;default:false" json:"revoked"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AuthUser is a principal of the built-in auth provider.
type AuthUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *AuthUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
