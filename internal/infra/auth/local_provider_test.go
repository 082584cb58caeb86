package auth

import (
	"context"
	"testing"
	"time"

	"agency/config"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createTestLocalProvider(t *testing.T) LocalProvider {
	t.Helper()

	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("s3cret!")
	require.NoError(t, err)

	tokens, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	return NewLocalProvider([]config.LocalAccount{
		{UID: "uid-admin", Email: "Admin@Agency.dev", Name: "Admin", PasswordHash: hash},
	}, hasher, tokens)
}

func TestLocalProvider_SignInAndVerify(t *testing.T) {
	p := createTestLocalProvider(t)
	ctx := context.Background()

	token, identity, err := p.SignIn(ctx, " admin@agency.dev ", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "uid-admin", identity.UID)
	assert.Equal(t, "Admin", identity.DisplayName)

	verified, err := p.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity, verified)
}

func TestLocalProvider_InvalidCredentials(t *testing.T) {
	p := createTestLocalProvider(t)
	ctx := context.Background()

	_, _, err := p.SignIn(ctx, "admin@agency.dev", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, _, err = p.SignIn(ctx, "nobody@agency.dev", "s3cret!")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestLocalProvider_VerifyRejectsGarbageAndUnknownSubject(t *testing.T) {
	p := createTestLocalProvider(t)
	ctx := context.Background()

	_, err := p.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	tokens, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	orphan, err := tokens.Issue("uid-removed", service.IdentityClaims{Email: "gone@agency.dev"})
	require.NoError(t, err)

	_, err = p.Verify(ctx, orphan)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}
