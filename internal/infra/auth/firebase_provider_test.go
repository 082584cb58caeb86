package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	domainerrors "agency/internal/domain/errors"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseProvider_MapsClaims(t *testing.T) {
	p := NewFirebaseProvider(stubVerifier{token: &firebaseauth.Token{
		UID: "uid-ana",
		Claims: map[string]any{
			"email":   "ana@example.com",
			"name":    "Ana",
			"picture": "https://img.example.com/ana.png",
		},
	}}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	identity, err := p.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-ana", identity.UID)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.Equal(t, "Ana", identity.DisplayName)
	assert.Equal(t, "https://img.example.com/ana.png", identity.AvatarURL)
}

func TestFirebaseProvider_MissingClaimsAreEmpty(t *testing.T) {
	p := NewFirebaseProvider(stubVerifier{token: &firebaseauth.Token{UID: "uid-phone"}},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	identity, err := p.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-phone", identity.UID)
	assert.Empty(t, identity.Email)
}

func TestFirebaseProvider_RejectedToken(t *testing.T) {
	p := NewFirebaseProvider(stubVerifier{err: errors.New("ID token has expired")},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Verify(context.Background(), "id-token")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}
