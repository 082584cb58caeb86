// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// Identity is the authenticated user record supplied by the identity provider.
// The application never creates or mutates identities; it only reads their claims.
type Identity struct {
	UID         string // Stable opaque subject id issued by the provider.
	Email       string // Email claim, may be empty for some sign-in methods.
	DisplayName string // Display name claim.
	AvatarURL   string // Profile picture URL claim.
}
