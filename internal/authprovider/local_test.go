package authprovider

import (
	"context"
	"testing"

	"github.com/grupokali/portal/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_CreateAndSignIn(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(dbtest.Open(t))

	id, err := p.CreateUser(ctx, " Staff@Firm.MX ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	sess, err := p.SignIn(ctx, "staff@firm.mx", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "staff@firm.mx", sess.Email)
	assert.NotEmpty(t, sess.Token)

	_, err = p.SignIn(ctx, "staff@firm.mx", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "nobody@firm.mx", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocal_DuplicateAndDelete(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(dbtest.Open(t))

	id, err := p.CreateUser(ctx, "staff@firm.mx", "secret123")
	require.NoError(t, err)

	_, err = p.CreateUser(ctx, "STAFF@firm.mx", "other123")
	assert.ErrorIs(t, err, ErrUserExists)

	require.NoError(t, p.DeleteUser(ctx, id))
	_, err = p.SignIn(ctx, "staff@firm.mx", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Error(t, p.DeleteUser(ctx, "not-a-uuid"))
}

func TestLocal_ShortPassword(t *testing.T) {
	p := NewLocal(dbtest.Open(t))
	_, err := p.CreateUser(context.Background(), "staff@firm.mx", "123")
	assert.Error(t, err)
}
