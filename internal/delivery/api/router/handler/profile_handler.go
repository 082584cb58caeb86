package handler

import (
	"context"
	"log/slog"
	"net/http"

	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/response"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"
	"agency/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ProfileHandlerParams holds dependencies for ProfileHandler, injected by Fx.
type ProfileHandlerParams struct {
	fx.In

	ProfileUC usecase.ProfileUsecase
	Logger    *slog.Logger
}

// ProfileHandler serves profile administration and device registration.
type ProfileHandler struct {
	profileUC usecase.ProfileUsecase
	logger    *slog.Logger
}

// NewProfileHandler is the constructor for ProfileHandler.
func NewProfileHandler(params ProfileHandlerParams) *ProfileHandler {
	return &ProfileHandler{profileUC: params.ProfileUC, logger: params.Logger}
}

// PushTokenRequest carries a device registration token.
type PushTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// List returns profiles, filtered by the optional role query parameter.
func (h *ProfileHandler) List(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var role entity.Role
	if raw := c.QueryParam("role"); raw != "" {
		parsed, err := entity.ParseRole(raw)
		if err != nil {
			return response.BadRequest(c, "INVALID_ROLE", err.Error())
		}
		role = parsed
	}

	profiles, err := h.profileUC.List(c.Request().Context(), actor, role)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.List(c, profiles)
}

// Get returns one profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	profile, err := h.profileUC.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, profile)
}

// Update changes a profile's role, active flag or business fields.
func (h *ProfileHandler) Update(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req usecase.UpdateProfileInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.profileUC.Update(c.Request().Context(), actor, c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, profile)
}

// PortalQR renders a client's portal invite QR code as PNG.
func (h *ProfileHandler) PortalQR(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	png, err := h.profileUC.PortalInviteQR(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// RegisterPushToken adds a device token to the caller's profile.
func (h *ProfileHandler) RegisterPushToken(c echo.Context) error {
	return h.pushToken(c, h.profileUC.RegisterPushToken)
}

// UnregisterPushToken removes a device token from the caller's profile.
func (h *ProfileHandler) UnregisterPushToken(c echo.Context) error {
	return h.pushToken(c, h.profileUC.UnregisterPushToken)
}

func (h *ProfileHandler) pushToken(c echo.Context, apply func(ctx context.Context, actor *entity.Profile, token string) error) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req PushTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid push token input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if err := apply(c.Request().Context(), actor, req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.NoContent(c)
}
