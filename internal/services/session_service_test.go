package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.sessions.AuthenticateAdmin(ctx, &dto.LoginRequest{Email: " BOSS@firm.mx", Password: "super-secret"}, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Principal.Kind)
	assert.Equal(t, string(models.RoleLevel3), resp.Principal.Role)
	assert.Nil(t, resp.Principal.ClientID)

	sid, err := e.sessions.ParseToken(resp.AccessToken)
	require.NoError(t, err)

	p, err := e.sessions.Resolve(ctx, sid)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.Equal(t, superEmail, p.Email)
	assert.Equal(t, sid, p.SessionID)

	_, err = e.sessions.AuthenticateAdmin(ctx, &dto.LoginRequest{Email: superEmail, Password: "nope"}, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAdmin_RequiresProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.provider.CreateUser(ctx, "ghost@firm.mx", "ghost123")
	require.NoError(t, err)

	_, err = e.sessions.AuthenticateAdmin(ctx, &dto.LoginRequest{Email: "ghost@firm.mx", Password: "ghost123"}, uuid.Nil)
	assert.ErrorIs(t, err, ErrProfileMissing)
	assert.Contains(t, e.provider.signedOut, "tok-ghost@firm.mx")
	assert.EqualValues(t, 0, count(t, e.db, &models.Session{}, "subject = ?", "ghost@firm.mx"))
}

func TestAuthenticateAdmin_Deactivated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.admins.AddAdminUser(ctx, super, &dto.CreateAdminRequest{Email: "staff@firm.mx", Role: models.RoleLevel1, Password: "staff123"})
	require.NoError(t, err)
	_, err = e.admins.ToggleAdminStatus(ctx, super, "staff@firm.mx")
	require.NoError(t, err)

	_, err = e.sessions.AuthenticateAdmin(ctx, &dto.LoginRequest{Email: "staff@firm.mx", Password: "staff123"}, uuid.Nil)
	assert.ErrorIs(t, err, ErrAccountDisabled)
	assert.Contains(t, e.provider.signedOut, "tok-staff@firm.mx")
}

func TestAuthenticateClient_GenericFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addClient(t, "a@x.com", "ABC010101XXX")

	_, errUnknown := e.sessions.AuthenticateClient(ctx, &dto.LoginRequest{Email: "nobody@x.com", Password: "cliente123"}, uuid.Nil)
	_, errWrong := e.sessions.AuthenticateClient(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong-pass"}, uuid.Nil)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	resp, err := e.sessions.AuthenticateClient(ctx, &dto.LoginRequest{Email: "A@X.com ", Password: "cliente123"}, uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Principal.ClientID)
	assert.Equal(t, c.ID, *resp.Principal.ClientID)
	assert.Equal(t, "client", resp.Principal.Kind)
	assert.Empty(t, resp.Principal.Role)
}

func TestLogin_ReplacesOtherSessionKind(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addClient(t, "a@x.com", "ABC010101XXX")

	adminResp, err := e.sessions.AuthenticateAdmin(ctx, &dto.LoginRequest{Email: superEmail, Password: "super-secret"}, uuid.Nil)
	require.NoError(t, err)
	adminSID, err := e.sessions.ParseToken(adminResp.AccessToken)
	require.NoError(t, err)

	clientResp, err := e.sessions.AuthenticateClient(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "cliente123"}, adminSID)
	require.NoError(t, err)
	clientSID, err := e.sessions.ParseToken(clientResp.AccessToken)
	require.NoError(t, err)

	_, err = e.sessions.Resolve(ctx, adminSID)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.Contains(t, e.provider.signedOut, "tok-"+superEmail)

	p, err := e.sessions.Resolve(ctx, clientSID)
	require.NoError(t, err)
	assert.True(t, p.IsClient())
	assert.False(t, p.IsAdmin())
}

func TestEndSessionAndExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addClient(t, "a@x.com", "ABC010101XXX")
	login := &dto.LoginRequest{Email: "a@x.com", Password: "cliente123"}

	resp, err := e.sessions.AuthenticateClient(ctx, login, uuid.Nil)
	require.NoError(t, err)
	sid, err := e.sessions.ParseToken(resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, e.sessions.EndSession(ctx, sid))
	_, err = e.sessions.Resolve(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	require.NoError(t, e.sessions.EndSession(ctx, uuid.New()))

	resp, err = e.sessions.AuthenticateClient(ctx, login, uuid.Nil)
	require.NoError(t, err)
	sid, err = e.sessions.ParseToken(resp.AccessToken)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, e.db.Model(&models.Session{}).Where("id = ?", sid).Update("expires_at", past).Error)
	_, err = e.sessions.Resolve(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	purged, err := e.sessions.PurgeExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func TestParseToken(t *testing.T) {
	e := newEnv(t)

	_, err := e.sessions.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = e.sessions.ParseToken(raw)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	noSID := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	raw, err = noSID.SignedString([]byte(e.cfg.JWTSecret))
	require.NoError(t, err)
	_, err = e.sessions.ParseToken(raw)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
