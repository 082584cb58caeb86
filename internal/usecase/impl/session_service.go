package impl

import (
	"context"
	"log/slog"
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/domain/service"
	"agency/internal/errors"
	"agency/internal/session"
	"agency/internal/usecase"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	identity service.IdentityProvider
	profiles repository.ProfileRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	identity service.IdentityProvider,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		identity: identity,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate verifies an identity token with the configured provider.
func (srv *sessionService) Authenticate(ctx context.Context, token string) (*entity.Identity, error) {
	if token == "" {
		return nil, domainerrors.ErrUnauthenticated
	}

	identity, err := srv.identity.Verify(ctx, token)
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, err.Error())
	}

	return identity, nil
}

// SignIn ensures the identity's profile exists and refreshes its updatedAt.
func (srv *sessionService) SignIn(ctx context.Context, identity *entity.Identity) (*usecase.SessionOutput, error) {
	if identity == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	profile, created, err := session.EnsureProfile(ctx, srv.profiles, identity, srv.now())
	if err != nil {
		srv.logger.ErrorContext(ctx, "Profile resolution failed", "uid", identity.UID, "error", err)

		return nil, errors.Wrap(domainerrors.ErrProfileResolutionFailed, err.Error())
	}
	if created {
		srv.logger.InfoContext(ctx, "Created client profile on first sign-in", "uid", identity.UID)
	}

	return &usecase.SessionOutput{Profile: profile, Created: created}, nil
}

// Current reads the identity's profile.
func (srv *sessionService) Current(ctx context.Context, identity *entity.Identity) (*entity.Profile, error) {
	if identity == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	profile, err := srv.profiles.FindByID(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, domainerrors.ErrProfileNotFound
		}

		return nil, storeError(err, "read profile")
	}

	return profile, nil
}

// SignInWithPassword signs in through a credential provider and ensures the profile.
func (srv *sessionService) SignInWithPassword(ctx context.Context, input *usecase.PasswordSignInInput) (*usecase.PasswordSignInOutput, error) {
	signer, ok := srv.identity.(service.CredentialSignIn)
	if !ok {
		return nil, errors.Wrap(domainerrors.ErrNotFound, "password sign-in is not enabled")
	}

	token, identity, err := signer.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		srv.logger.InfoContext(ctx, "Password sign-in rejected", "email", input.Email)

		return nil, err
	}

	out, err := srv.SignIn(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &usecase.PasswordSignInOutput{Token: token, Profile: out.Profile}, nil
}
