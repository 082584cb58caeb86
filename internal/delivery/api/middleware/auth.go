package middleware

import (
	"log/slog"
	"strings"

	"agency/internal/access"
	"agency/internal/delivery/api/response"
	deliverycontext "agency/internal/delivery/context"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	keyIdentity = "identity"
	keyProfile  = "profile"
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// AuthMiddleware authenticates identity tokens and applies the role gate to request-scoped callers.
type AuthMiddleware struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{sessionUC: params.SessionUC, logger: params.Logger}
}

// Authenticate verifies the Bearer identity token and stores the identity on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
		}

		identity, err := m.sessionUC.Authenticate(c.Request().Context(), token)
		if err != nil {
			return response.HandleAppError(c, err)
		}

		c.Set(keyIdentity, identity)

		ctx := c.Request().Context()
		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.String("uid", identity.UID))
		c.SetRequest(c.Request().WithContext(deliverycontext.WithLogger(ctx, logger)))

		return next(c)
	}
}

// RequireProfile loads the caller's profile and admits only active profiles.
// It must be used after Authenticate.
func (m *AuthMiddleware) RequireProfile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := GetIdentity(c)
		if !ok {
			return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
		}

		profile, err := m.sessionUC.Current(c.Request().Context(), identity)
		if err != nil {
			return response.HandleAppError(c, err)
		}
		if err := access.Authorize(profile, ""); err != nil {
			return response.HandleAppError(c, err)
		}

		c.Set(keyProfile, profile)

		return next(c)
	}
}

// RequireRole admits only profiles with the given role. It must be used after RequireProfile.
func (m *AuthMiddleware) RequireRole(role entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profile, _ := GetProfile(c)
			if err := access.Authorize(profile, role); err != nil {
				return response.HandleAppError(c, err)
			}

			return next(c)
		}
	}
}

// GetIdentity returns the identity stored by Authenticate.
func GetIdentity(c echo.Context) (*entity.Identity, bool) {
	identity, ok := c.Get(keyIdentity).(*entity.Identity)

	return identity, ok && identity != nil
}

// GetProfile returns the profile stored by RequireProfile.
func GetProfile(c echo.Context) (*entity.Profile, bool) {
	profile, ok := c.Get(keyProfile).(*entity.Profile)

	return profile, ok && profile != nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])

	return token, token != ""
}
