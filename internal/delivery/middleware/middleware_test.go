package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agency/config"
	deliverycontext "agency/internal/delivery/context"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(buf *bytes.Buffer, debug bool) *echo.Echo {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	cfg := &config.Config{}
	cfg.Env.Debug = debug

	e := echo.New()
	e.Use(NewRequestIDMiddleware(logger).Process)
	e.Use(NewLoggerMiddleware(logger, cfg).Handle)
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, deliverycontext.GetRequestIDFromContext(c.Request().Context()))
	})
	e.GET("/fail", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream")
	})

	return e
}

func TestRequestID_ReusesWellFormedHeader(t *testing.T) {
	var buf bytes.Buffer
	e := newServer(&buf, false)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(deliverycontext.HeaderXRequestID, "trace-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Body.String())
	assert.Equal(t, "trace-123", rec.Header().Get(deliverycontext.HeaderXRequestID))
}

func TestRequestID_ReplacesMalformedHeader(t *testing.T) {
	var buf bytes.Buffer
	e := newServer(&buf, false)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(deliverycontext.HeaderXRequestID, strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Len(t, rec.Body.String(), 36)
}

func TestLogger_QuietUnlessDebugOrServerError(t *testing.T) {
	var buf bytes.Buffer
	e := newServer(&buf, false)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Zero(t, buf.Len())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, buf.String(), `"status":502`)
	assert.Contains(t, buf.String(), `"request_id"`)
}

func TestLogger_DebugLogsEveryRequest(t *testing.T) {
	var buf bytes.Buffer
	e := newServer(&buf, true)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Contains(t, buf.String(), `"status":200`)
}
