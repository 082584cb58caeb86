package auth

import (
	"log/slog"

	"agency/config"
	"agency/internal/domain/service"
	"agency/internal/errors"
	firebaseinfra "agency/internal/infra/firebase"

	"go.uber.org/fx"
)

// ProviderParams holds dependencies for the identity provider, injected by Fx
type ProviderParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Firebase *firebaseinfra.AppProvider
}

// NewIdentityProvider returns the configured identity provider.
func NewIdentityProvider(params ProviderParams) (service.IdentityProvider, error) {
	provider := config.AuthProviderFirebase
	if params.Config.Auth != nil && params.Config.Auth.Provider != "" {
		provider = params.Config.Auth.Provider
	}

	switch provider {
	case config.AuthProviderFirebase:
		client, err := params.Firebase.Auth()
		if err != nil {
			return nil, err
		}
		params.Logger.Info("Using Firebase identity provider")

		return NewFirebaseProvider(client, params.Logger), nil

	case config.AuthProviderLocal:
		local := params.Config.Auth.Local
		if local == nil {
			return nil, errors.New("auth.local must be configured for the local identity provider")
		}
		tokens, err := NewJWTService(local.Secret, local.TokenTTL)
		if err != nil {
			return nil, err
		}
		params.Logger.Warn("Using local identity provider, for development only",
			slog.Int("accounts", len(local.Accounts)))

		return NewLocalProvider(local.Accounts, NewBcryptHasher(local.BcryptCost), tokens), nil

	default:
		return nil, errors.Errorf("unknown auth provider: %s", provider)
	}
}

// Module provides the identity provider
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewIdentityProvider),
)
