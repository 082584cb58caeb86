package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession resolves the token "good-<uid>" to identity <uid> and serves profiles from a map.
type fakeSession struct {
	profiles map[string]*entity.Profile
}

func (f *fakeSession) Authenticate(_ context.Context, token string) (*entity.Identity, error) {
	if len(token) > 5 && token[:5] == "good-" {
		return &entity.Identity{UID: token[5:]}, nil
	}

	return nil, domainerrors.ErrInvalidToken
}

func (f *fakeSession) SignIn(context.Context, *entity.Identity) (*usecase.SessionOutput, error) {
	return nil, domainerrors.ErrInternalError
}

func (f *fakeSession) Current(_ context.Context, identity *entity.Identity) (*entity.Profile, error) {
	p, ok := f.profiles[identity.UID]
	if !ok {
		return nil, domainerrors.ErrProfileNotFound
	}

	return p, nil
}

func (f *fakeSession) SignInWithPassword(context.Context, *usecase.PasswordSignInInput) (*usecase.PasswordSignInOutput, error) {
	return nil, domainerrors.ErrNotFound
}

func newTestServer() *echo.Echo {
	m := NewAuthMiddleware(AuthMiddlewareParams{
		SessionUC: &fakeSession{profiles: map[string]*entity.Profile{
			"admin":    {ID: "admin", Role: entity.RoleAdmin, Active: true},
			"client":   {ID: "client", Role: entity.RoleClient, Active: true},
			"inactive": {ID: "inactive", Role: entity.RoleAdmin, Active: false},
		}},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	e := echo.New()
	g := e.Group("/admin", m.Authenticate, m.RequireProfile, m.RequireRole(entity.RoleAdmin))
	g.GET("", func(c echo.Context) error {
		p, ok := GetProfile(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}

		return c.String(http.StatusOK, p.ID)
	})

	return e
}

func TestAuthMiddleware(t *testing.T) {
	e := newTestServer()

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHENTICATED"},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHENTICATED"},
		{name: "invalid token", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantBody: "INVALID_TOKEN"},
		{name: "no profile", header: "Bearer good-ghost", wantCode: http.StatusNotFound, wantBody: "PROFILE_NOT_FOUND"},
		{name: "inactive", header: "Bearer good-inactive", wantCode: http.StatusForbidden, wantBody: "ACCOUNT_INACTIVE"},
		{name: "wrong role", header: "Bearer good-client", wantCode: http.StatusForbidden, wantBody: "FORBIDDEN"},
		{name: "admitted", header: "bearer good-admin", wantCode: http.StatusOK, wantBody: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}
