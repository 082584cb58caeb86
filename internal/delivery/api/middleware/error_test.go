package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"agency/internal/delivery/api/validator"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestErrorMiddleware_HandleHTTPError(t *testing.T) {
	type payload struct {
		Title string `json:"title" validate:"required"`
	}
	validationErr := validator.New().Validate(&payload{})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "app error", err: errors.Wrap(domainerrors.ErrRecordNotFound, "lookup"), wantCode: http.StatusNotFound, wantBody: `"RECORD_NOT_FOUND"`},
		{name: "store error", err: domainerrors.NewStoreExecuteError(errors.New("unavailable"), "write"), wantCode: http.StatusBadGateway, wantBody: `"STORE_EXECUTE_FAILED"`},
		{name: "validation", err: validationErr, wantCode: http.StatusBadRequest, wantBody: `"title":"required"`},
		{name: "echo error", err: echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), wantCode: http.StatusMethodNotAllowed, wantBody: `"nope"`},
		{name: "unknown", err: errors.New("kaboom"), wantCode: http.StatusInternalServerError, wantBody: `"INTERNAL_ERROR"`},
	}

	m := NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			m.HandleHTTPError(tt.err, c)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "kaboom")
		})
	}
}
