package repository

import (
	"context"
	"errors"
	"time"

	"agency/internal/domain/entity"
)

// ErrProfileNotFound is returned when no profile exists for an identity.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileUpdate lists the profile fields an update touches. Nil fields are left unchanged.
type ProfileUpdate struct {
	Role       *entity.Role
	Active     *bool
	Name       *string
	Company    *string
	Phone      *string
	PushTokens []string
}

// ProfileRepository defines persistence for profiles keyed by identity UID.
type ProfileRepository interface {
	// FindByID retrieves the profile of an identity.
	FindByID(ctx context.Context, id string) (*entity.Profile, error)

	// Create writes a new profile document.
	Create(ctx context.Context, profile *entity.Profile) error

	// Touch merges a fresh updatedAt into an existing profile.
	Touch(ctx context.Context, id string, now time.Time) error

	// Update merges the given fields and updatedAt into an existing profile.
	Update(ctx context.Context, id string, update ProfileUpdate, now time.Time) error

	// List retrieves every profile, or only those with role when it is not empty.
	List(ctx context.Context, role entity.Role) ([]*entity.Profile, error)
}
