// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import (
	"context"

	"agency/internal/domain/entity"
)

// IdentityProvider verifies identity tokens issued by the authentication provider.
type IdentityProvider interface {
	// Verify checks the token and returns the identity it was issued for.
	Verify(ctx context.Context, token string) (*entity.Identity, error)
}

// CredentialSignIn is implemented by identity providers that accept email and password directly.
type CredentialSignIn interface {
	// SignIn checks the credentials and returns a token accepted by Verify.
	SignIn(ctx context.Context, email, password string) (token string, identity *entity.Identity, err error)
}
