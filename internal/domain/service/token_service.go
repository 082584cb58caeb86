package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims carried by locally issued identity tokens.
type IdentityClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates locally signed identity tokens.
type TokenService interface {
	// Issue signs a token for the subject.
	Issue(subject string, claims IdentityClaims) (string, error)

	// Validate parses and verifies a token.
	Validate(token string) (*IdentityClaims, error)

	// TTL returns the token lifetime.
	TTL() time.Duration
}
