package auth

import (
	"context"
	"strings"

	"agency/config"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"
)

// localProvider signs in the accounts listed in config and verifies the tokens it issued.
// It stands in for the hosted identity provider during local development.
type localProvider struct {
	accounts map[string]config.LocalAccount // keyed by lower-cased email
	byUID    map[string]config.LocalAccount
	hasher   service.PasswordHasher
	tokens   service.TokenService
}

// LocalProvider is both an IdentityProvider and a CredentialSignIn.
type LocalProvider interface {
	service.IdentityProvider
	service.CredentialSignIn
}

// NewLocalProvider builds the development provider over the configured accounts.
func NewLocalProvider(accounts []config.LocalAccount, hasher service.PasswordHasher, tokens service.TokenService) LocalProvider {
	p := &localProvider{
		accounts: make(map[string]config.LocalAccount, len(accounts)),
		byUID:    make(map[string]config.LocalAccount, len(accounts)),
		hasher:   hasher,
		tokens:   tokens,
	}
	for _, acc := range accounts {
		p.accounts[strings.ToLower(acc.Email)] = acc
		p.byUID[acc.UID] = acc
	}

	return p
}

// SignIn checks email and password and returns a signed identity token.
func (p *localProvider) SignIn(_ context.Context, email, password string) (string, *entity.Identity, error) {
	acc, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || !p.hasher.Check(password, acc.PasswordHash) {
		return "", nil, domainerrors.ErrInvalidCredentials
	}

	identity := accountIdentity(acc)
	token, err := p.tokens.Issue(acc.UID, service.IdentityClaims{
		Email:   identity.Email,
		Name:    identity.DisplayName,
		Picture: identity.AvatarURL,
	})
	if err != nil {
		return "", nil, err
	}

	return token, identity, nil
}

// Verify validates a token issued by SignIn. Tokens of accounts removed from config are rejected.
func (p *localProvider) Verify(_ context.Context, token string) (*entity.Identity, error) {
	claims, err := p.tokens.Validate(token)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken.WrapMessage(err.Error())
	}

	acc, ok := p.byUID[claims.Subject]
	if !ok {
		return nil, domainerrors.ErrInvalidToken
	}

	return accountIdentity(acc), nil
}

func accountIdentity(acc config.LocalAccount) *entity.Identity {
	return &entity.Identity{
		UID:         acc.UID,
		Email:       acc.Email,
		DisplayName: acc.Name,
		AvatarURL:   acc.AvatarURL,
	}
}
