package authprovider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Local keeps principals in the auth_users table with bcrypt hashes.
// Its tokens are opaque and stateless; the portal's session table is authoritative.
type Local struct {
	db *gorm.DB
}

func NewLocal(db *gorm.DB) *Local {
	return &Local{db: db}
}

func (p *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var user models.AuthUser
	err := p.db.WithContext(ctx).Where("email = ?", normalize(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load auth user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Token: base64.RawURLEncoding.EncodeToString(raw), Email: user.Email}, nil
}

func (p *Local) SignOut(context.Context, string) error {
	return nil
}

func (p *Local) CreateUser(ctx context.Context, email, password string) (string, error) {
	if len(password) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	var count int64
	if err := p.db.WithContext(ctx).Model(&models.AuthUser{}).Where("email = ?", normalize(email)).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to check auth user: %w", err)
	}
	if count > 0 {
		return "", ErrUserExists
	}

	user := models.AuthUser{Email: normalize(email), PasswordHash: string(hash)}
	if err := p.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("failed to create auth user: %w", err)
	}
	return user.ID.String(), nil
}

func (p *Local) DeleteUser(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid auth user id: %w", err)
	}
	return p.db.WithContext(ctx).Delete(&models.AuthUser{}, "id = ?", uid).Error
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
