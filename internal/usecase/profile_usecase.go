package usecase

import (
	"context"

	"agency/internal/domain/entity"
)

// ProfileUsecase defines profile management for admins and device registration for everyone.
type ProfileUsecase interface {
	// List returns profiles, only those with role when it is set. Admin only.
	List(ctx context.Context, actor *entity.Profile, role entity.Role) ([]*entity.Profile, error)

	// Get returns one profile. Clients may only read their own.
	Get(ctx context.Context, actor *entity.Profile, id string) (*entity.Profile, error)

	// Update changes role, active flag and business fields of a profile. Admin only.
	Update(ctx context.Context, actor *entity.Profile, id string, input *UpdateProfileInput) (*entity.Profile, error)

	// RegisterPushToken adds a device token to the actor's profile.
	RegisterPushToken(ctx context.Context, actor *entity.Profile, token string) error

	// UnregisterPushToken removes a device token from the actor's profile.
	UnregisterPushToken(ctx context.Context, actor *entity.Profile, token string) error

	// PortalInviteQR renders the portal invite QR code of a client. Admin only.
	PortalInviteQR(ctx context.Context, actor *entity.Profile, clientID string) ([]byte, error)
}

// --- Input DTOs ---

// UpdateProfileInput defines the profile fields an admin may change.
type UpdateProfileInput struct {
	Role    *string `json:"role,omitempty" validate:"omitempty,oneof=admin client"`
	Active  *bool   `json:"active,omitempty"`
	Name    *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=120"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}
