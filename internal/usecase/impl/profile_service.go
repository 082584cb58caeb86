package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/domain/service"
	"agency/internal/errors"
	"agency/internal/usecase"
)

// profileService implements the ProfileUsecase interface.
type profileService struct {
	profiles repository.ProfileRepository
	qrcode   service.QRCodeService
	logger   *slog.Logger
	now      func() time.Time
}

// NewProfileService is the constructor for profileService.
func NewProfileService(
	profiles repository.ProfileRepository,
	qrcode service.QRCodeService,
	logger *slog.Logger,
) usecase.ProfileUsecase {
	return &profileService{
		profiles: profiles,
		qrcode:   qrcode,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns profiles ordered by name.
func (srv *profileService) List(ctx context.Context, actor *entity.Profile, role entity.Role) ([]*entity.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if role != "" && !role.IsValid() {
		return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unknown role %q", role)
	}

	profiles, err := srv.profiles.List(ctx, role)
	if err != nil {
		return nil, storeError(err, "list profiles")
	}

	return profiles, nil
}

// Get returns a profile the actor may see.
func (srv *profileService) Get(ctx context.Context, actor *entity.Profile, id string) (*entity.Profile, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if !actor.CanAccessOwner(id) {
		return nil, domainerrors.ErrForbidden
	}

	return srv.find(ctx, id)
}

// Update changes a profile on behalf of an admin. Admins cannot demote or deactivate themselves.
func (srv *profileService) Update(ctx context.Context, actor *entity.Profile, id string, input *usecase.UpdateProfileInput) (*entity.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	update := repository.ProfileUpdate{
		Active:  input.Active,
		Name:    input.Name,
		Company: input.Company,
		Phone:   input.Phone,
	}
	if input.Role != nil {
		role, err := entity.ParseRole(*input.Role)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
		}
		update.Role = &role
	}

	if id == actor.ID {
		if update.Role != nil && *update.Role != entity.RoleAdmin {
			return nil, domainerrors.ErrValidationFailed.WithDetails("admins cannot change their own role")
		}
		if update.Active != nil && !*update.Active {
			return nil, domainerrors.ErrValidationFailed.WithDetails("admins cannot deactivate themselves")
		}
	}

	if err := srv.profiles.Update(ctx, id, update, srv.now()); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, domainerrors.ErrProfileNotFound
		}

		return nil, storeError(err, "update profile")
	}

	srv.logger.InfoContext(ctx, "Profile updated", "profile_id", id, "by", actor.ID)

	return srv.find(ctx, id)
}

// RegisterPushToken adds token to the actor's devices. Registering a known token is a no-op.
func (srv *profileService) RegisterPushToken(ctx context.Context, actor *entity.Profile, token string) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domainerrors.ErrValidationFailed.WithDetails("push token is required")
	}

	current, err := srv.find(ctx, actor.ID)
	if err != nil {
		return err
	}
	if current.HasPushToken(token) {
		return nil
	}

	tokens := append(slices.Clone(current.PushTokens), token)

	return srv.savePushTokens(ctx, actor.ID, tokens)
}

// UnregisterPushToken removes token from the actor's devices.
func (srv *profileService) UnregisterPushToken(ctx context.Context, actor *entity.Profile, token string) error {
	if err := requireActive(actor); err != nil {
		return err
	}

	current, err := srv.find(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !current.HasPushToken(token) {
		return nil
	}

	tokens := make([]string, 0, len(current.PushTokens))
	for _, t := range current.PushTokens {
		if t != token {
			tokens = append(tokens, t)
		}
	}

	return srv.savePushTokens(ctx, actor.ID, tokens)
}

// PortalInviteQR renders the invite QR code of an existing client.
func (srv *profileService) PortalInviteQR(ctx context.Context, actor *entity.Profile, clientID string) ([]byte, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	client, err := srv.find(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != entity.RoleClient {
		return nil, domainerrors.ErrValidationFailed.WithDetails("portal invites are for client profiles")
	}

	png, err := srv.qrcode.GeneratePortalInviteQR(client.ID)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	return png, nil
}

func (srv *profileService) find(ctx context.Context, id string) (*entity.Profile, error) {
	profile, err := srv.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, domainerrors.ErrProfileNotFound
		}

		return nil, storeError(err, "read profile")
	}

	return profile, nil
}

func (srv *profileService) savePushTokens(ctx context.Context, id string, tokens []string) error {
	if err := srv.profiles.Update(ctx, id, repository.ProfileUpdate{PushTokens: tokens}, srv.now()); err != nil {
		return storeError(err, "update push tokens")
	}

	return nil
}
