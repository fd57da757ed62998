package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/authprovider"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionService resolves callers to exactly one identity: an administrator
// verified by the auth provider, or a client verified against its own row.
type SessionService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider authprovider.Provider
}

func NewSessionService(db *gorm.DB, cfg *config.Config, provider authprovider.Provider) *SessionService {
	return &SessionService{db: db, cfg: cfg, provider: provider}
}

// AuthenticateAdmin signs in through the provider and requires an active admin
// profile. previous is the session presented with the request, if any; it is
// revoked once the new session exists.
func (s *SessionService) AuthenticateAdmin(ctx context.Context, req *dto.LoginRequest, previous uuid.UUID) (*dto.SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	ps, err := s.provider.SignIn(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, authprovider.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth provider sign-in: %w", err)
	}

	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, "email = ?", email).Error; err != nil {
		s.signOut(ctx, ps.Token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("provider login without admin profile", "email", email)
			return nil, ErrProfileMissing
		}
		return nil, storeErr("load admin", err)
	}

	if !admin.IsActive {
		s.signOut(ctx, ps.Token)
		return nil, ErrAccountDisabled
	}

	principal := policy.Principal{Kind: models.SessionAdmin, Email: admin.Email, Role: admin.Role}
	return s.issue(ctx, principal, admin.Email, ps.Token, previous)
}

// AuthenticateClient checks the password against the client row. Unknown email and
// wrong password are reported identically.
func (s *SessionService) AuthenticateClient(ctx context.Context, req *dto.LoginRequest, previous uuid.UUID) (*dto.SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "LOWER(email) = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("load client", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !client.IsActive {
		return nil, ErrAccountDisabled
	}

	principal := policy.Principal{Kind: models.SessionClient, Email: client.Email, ClientID: client.ID}
	return s.issue(ctx, principal, client.ID.String(), "", previous)
}

// EndSession revokes a session. Admin sessions are also signed out at the provider.
func (s *SessionService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return storeErr("load session", err)
	}

	if err := s.db.WithContext(ctx).Model(&session).Update("revoked", true).Error; err != nil {
		return storeErr("revoke session", err)
	}

	if session.Kind == models.SessionAdmin {
		s.signOut(ctx, session.ProviderToken)
	}
	return nil
}

// Resolve maps a live session to its principal. Revoked or expired sessions and
// identities that were deactivated or removed are rejected.
func (s *SessionService) Resolve(ctx context.Context, sessionID uuid.UUID) (policy.Principal, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Principal{}, ErrSessionInvalid
		}
		return policy.Principal{}, storeErr("load session", err)
	}

	if session.Revoked || time.Now().After(session.ExpiresAt) {
		return policy.Principal{}, ErrSessionInvalid
	}

	switch session.Kind {
	case models.SessionAdmin:
		var admin models.Admin
		if err := s.db.WithContext(ctx).First(&admin, "email = ?", session.Subject).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return policy.Principal{}, ErrSessionInvalid
			}
			return policy.Principal{}, storeErr("load admin", err)
		}
		if !admin.IsActive {
			return policy.Principal{}, ErrSessionInvalid
		}
		return policy.Principal{Kind: models.SessionAdmin, SessionID: session.ID, Email: admin.Email, Role: admin.Role}, nil

	case models.SessionClient:
		id, err := uuid.Parse(session.Subject)
		if err != nil {
			return policy.Principal{}, ErrSessionInvalid
		}
		client, err := loadClient(ctx, s.db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return policy.Principal{}, ErrSessionInvalid
			}
			return policy.Principal{}, err
		}
		if !client.IsActive {
			return policy.Principal{}, ErrSessionInvalid
		}
		return policy.Principal{Kind: models.SessionClient, SessionID: session.ID, Email: client.Email, ClientID: client.ID}, nil

	default:
		return policy.Principal{}, ErrSessionInvalid
	}
}

// ParseToken verifies an access token and returns its session id. The token's
// expiry is enforced here as well as by the session row.
func (s *SessionService) ParseToken(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, ErrSessionInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrSessionInvalid
	}
	return SessionIDFromClaims(claims)
}

// SessionIDFromClaims reads the sid claim.
func SessionIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	sid, _ := claims["sid"].(string)
	id, err := uuid.Parse(sid)
	if err != nil {
		return uuid.Nil, ErrSessionInvalid
	}
	return id, nil
}

// PurgeExpired deletes sessions that expired before cutoff.
func (s *SessionService) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.Session{})
	if result.Error != nil {
		return 0, storeErr("purge sessions", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *SessionService) issue(ctx context.Context, p policy.Principal, subject, providerToken string, previous uuid.UUID) (*dto.SessionResponse, error) {
	if previous != uuid.Nil {
		if err := s.EndSession(ctx, previous); err != nil {
			slog.Warn("failed to end previous session", "session_id", previous, "error", err)
		}
	}

	session := models.Session{
		Kind:          p.Kind,
		Subject:       subject,
		ProviderToken: providerToken,
		ExpiresAt:     time.Now().UTC().Add(s.cfg.SessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, storeErr("create session", err)
	}

	token, err := s.generateAccessToken(&session, p)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	resp := &dto.SessionResponse{
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
		Principal: dto.PrincipalResponse{
			Kind:  string(p.Kind),
			Email: p.Email,
			Role:  string(p.Role),
		},
	}
	if p.IsClient() {
		id := p.ClientID
		resp.Principal.ClientID = &id
	}
	return resp, nil
}

func (s *SessionService) generateAccessToken(session *models.Session, p policy.Principal) (string, error) {
	claims := jwt.MapClaims{
		"sub":  session.Subject,
		"sid":  session.ID.String(),
		"kind": string(session.Kind),
		"iat":  time.Now().Unix(),
		"exp":  session.ExpiresAt.Unix(),
	}
	if p.Role != "" {
		claims["role"] = string(p.Role)
	}
	if p.ClientID != uuid.Nil {
		claims["client_id"] = p.ClientID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *SessionService) signOut(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		slog.Warn("auth provider sign-out failed", "error", err)
	}
}
