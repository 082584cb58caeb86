// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"agency/internal/domain/entity"
)

// SessionUsecase resolves identities into profiles for request-scoped callers.
type SessionUsecase interface {
	// Authenticate verifies an identity token.
	Authenticate(ctx context.Context, token string) (*entity.Identity, error)

	// SignIn ensures the identity has a profile, creating the default client profile on first sign-in.
	SignIn(ctx context.Context, identity *entity.Identity) (*SessionOutput, error)

	// Current reads the profile of an identity without creating it.
	Current(ctx context.Context, identity *entity.Identity) (*entity.Profile, error)

	// SignInWithPassword signs in through a provider that accepts credentials directly.
	SignInWithPassword(ctx context.Context, input *PasswordSignInInput) (*PasswordSignInOutput, error)
}

// --- Input DTOs ---

// PasswordSignInInput defines the credentials of a password sign-in.
type PasswordSignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Output DTOs ---

// SessionOutput is the resolved session returned after sign-in.
type SessionOutput struct {
	Profile *entity.Profile `json:"profile"`
	Created bool            `json:"created"`
}

// PasswordSignInOutput carries the identity token issued by a password sign-in.
type PasswordSignInOutput struct {
	Token   string          `json:"token"`
	Profile *entity.Profile `json:"profile"`
}
