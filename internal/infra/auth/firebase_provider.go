package auth

import (
	"context"
	"log/slog"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the part of the Firebase Auth client the provider needs.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// firebaseProvider verifies Firebase ID tokens.
type firebaseProvider struct {
	verifier IDTokenVerifier
	logger   *slog.Logger
}

// NewFirebaseProvider creates an IdentityProvider backed by Firebase Auth.
func NewFirebaseProvider(verifier IDTokenVerifier, logger *slog.Logger) service.IdentityProvider {
	return &firebaseProvider{
		verifier: verifier,
		logger:   logger.With("component", "firebase_identity"),
	}
}

// Verify checks the ID token signature, audience and expiry and maps its claims to an Identity.
func (p *firebaseProvider) Verify(ctx context.Context, idToken string) (*entity.Identity, error) {
	token, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		p.logger.DebugContext(ctx, "ID token rejected", "error", err)

		return nil, domainerrors.ErrInvalidToken.WrapMessage(err.Error())
	}

	return tokenIdentity(token), nil
}

func tokenIdentity(token *firebaseauth.Token) *entity.Identity {
	claim := func(key string) string {
		if v, ok := token.Claims[key].(string); ok {
			return v
		}

		return ""
	}

	return &entity.Identity{
		UID:         token.UID,
		Email:       claim("email"),
		DisplayName: claim("name"),
		AvatarURL:   claim("picture"),
	}
}
