package dto

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by both login endpoints.
type SessionResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Principal   PrincipalResponse `json:"principal"`
}

type PrincipalResponse struct {
	Kind     string     `json:"kind"`
	Email    string     `json:"email"`
	Role     string     `json:"role,omitempty"`
	ClientID *uuid.UUID `json:"client_id,omitempty"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Firm      string `json:"firm"`
}
