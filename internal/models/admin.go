package models

import "time"

// Admin maps a staff email to its privilege tier. ProviderID is the auth
// provider's id for the admin's principal, when known.
type Admin struct {
	Email      string    `gorm:"primaryKey;size:255" json:"email"`
	Role       Role      `gorm:"size:20;not null" json:"role"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	ProviderID string    `gorm:"size:64" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
