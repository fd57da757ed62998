// Package authprovider verifies administrator credentials. Admin passwords never touch
// the portal tables; they live with the provider.
package authprovider

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
)

// Session is what the provider hands back after a successful sign-in.
type Session struct {
	Token string
	Email string
}

type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// CreateUser registers a principal and returns its provider id.
	CreateUser(ctx context.Context, email, password string) (string, error)
	DeleteUser(ctx context.Context, id string) error
}
