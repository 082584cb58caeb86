// Package handler holds the echo handlers of the REST API.
package handler

import (
	"log/slog"
	"net/http"

	"agency/internal/access"
	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/response"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"
	"agency/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler resolves the caller's session.
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler.
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{sessionUC: params.SessionUC, logger: params.Logger}
}

// IdentityView is the public part of an identity.
type IdentityView struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// NewIdentityView converts an identity for responses.
func NewIdentityView(identity *entity.Identity) *IdentityView {
	if identity == nil {
		return nil
	}

	return &IdentityView{UID: identity.UID, Email: identity.Email, Name: identity.DisplayName, AvatarURL: identity.AvatarURL}
}

// SessionView is the resolved session with the role gate decision for it.
type SessionView struct {
	Identity *IdentityView   `json:"identity"`
	Profile  *entity.Profile `json:"profile"`
	Created  bool            `json:"created,omitempty"`
	Decision string          `json:"decision"`
}

// SignIn ensures the caller's profile, creating it on first sign-in.
func (h *SessionHandler) SignIn(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	out, err := h.sessionUC.SignIn(c.Request().Context(), identity)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}

	return response.Success(c, status, &SessionView{
		Identity: NewIdentityView(identity),
		Profile:  out.Profile,
		Created:  out.Created,
		Decision: access.Decide(out.Profile, "", false).String(),
	})
}

// Current returns the caller's session without creating a profile. A missing
// profile is not an error here; the session is simply denied.
func (h *SessionHandler) Current(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	profile, err := h.sessionUC.Current(c.Request().Context(), identity)
	if err != nil && !errors.Is(err, domainerrors.ErrProfileNotFound) {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, &SessionView{
		Identity: NewIdentityView(identity),
		Profile:  profile,
		Decision: access.Decide(profile, "", false).String(),
	})
}

// PasswordLogin signs in with email and password through the local identity provider.
func (h *SessionHandler) PasswordLogin(c echo.Context) error {
	var req usecase.PasswordSignInInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	out, err := h.sessionUC.SignInWithPassword(c.Request().Context(), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, out)
}
