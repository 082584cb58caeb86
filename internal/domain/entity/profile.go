// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"time"
)

// Profile is the application-level record extending an Identity with role and business fields.
// It is keyed by the identity UID, one profile per identity.
type Profile struct {
	ID         string    `json:"id"`                   // Equals the Identity UID.
	Role       Role      `json:"role"`                 // admin or client.
	Active     bool      `json:"active"`               // Inactive profiles are denied by the role gate.
	Email      string    `json:"email"`                // Copied from the identity on creation.
	Name       string    `json:"name"`                 // Display name, editable by admins.
	Avatar     string    `json:"avatar"`               // Avatar URL.
	Company    string    `json:"company,omitempty"`    // Client company name.
	Phone      string    `json:"phone,omitempty"`      // Contact phone.
	PushTokens []string  `json:"pushTokens,omitempty"` // FCM registration tokens of the profile's devices.
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewProfile builds the default profile created on first sign-in.
func NewProfile(identity *Identity, now time.Time) *Profile {
	return &Profile{
		ID:        identity.UID,
		Role:      RoleClient,
		Active:    true,
		Email:     identity.Email,
		Name:      identity.DisplayName,
		Avatar:    identity.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the profile belongs to agency staff.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// CanAccessOwner reports whether the profile may see records owned by ownerID.
func (p *Profile) CanAccessOwner(ownerID string) bool {
	if p == nil {
		return false
	}

	return p.IsAdmin() || p.ID == ownerID
}

// HasPushToken reports whether token is already registered on the profile.
func (p *Profile) HasPushToken(token string) bool {
	return slices.Contains(p.PushTokens, token)
}

// ProfileIndex maps profile ids to profiles. It is built once per profile snapshot
// so joining a record list against it costs one lookup per row.
type ProfileIndex map[string]*Profile

// IndexProfiles builds a ProfileIndex from a profile list.
func IndexProfiles(profiles []*Profile) ProfileIndex {
	index := make(ProfileIndex, len(profiles))
	for _, p := range profiles {
		index[p.ID] = p
	}

	return index
}

// Name returns the display name for id, or an empty string when the profile is unknown.
func (ix ProfileIndex) Name(id string) string {
	if p, ok := ix[id]; ok {
		return p.Name
	}

	return ""
}

// ActiveAdmins returns the ids of every active admin in the index, sorted for stable output.
func (ix ProfileIndex) ActiveAdmins() []string {
	ids := make([]string, 0)
	for id, p := range ix {
		if p.Active && p.Role == RoleAdmin {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids
}
