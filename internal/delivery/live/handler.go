package live

import (
	"log/slog"
	"net/http"
	"slices"

	"agency/config"
	deliverycontext "agency/internal/delivery/context"
	"agency/internal/domain/repository"
	"agency/internal/livequery"
	"agency/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// HandlerParams holds dependencies for Handler, injected by Fx.
type HandlerParams struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	SessionUC usecase.SessionUsecase
	Profiles  repository.ProfileRepository
	Records   repository.RecordRepository
	Manager   *livequery.Manager
}

// Handler upgrades requests to live-sync websocket connections.
type Handler struct {
	cfg       *config.LiveConfig
	logger    *slog.Logger
	sessionUC usecase.SessionUsecase
	profiles  repository.ProfileRepository
	records   repository.RecordRepository
	manager   *livequery.Manager
	upgrader  websocket.Upgrader
}

// NewHandler is the constructor for Handler.
func NewHandler(params HandlerParams) *Handler {
	h := &Handler{
		cfg:       params.Config.Live,
		logger:    params.Logger.With("component", "live"),
		sessionUC: params.SessionUC,
		profiles:  params.Profiles,
		records:   params.Records,
		manager:   params.Manager,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  h.cfg.ReadBufferSize,
		WriteBufferSize: h.cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin accepts same-origin requests and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.cfg.AllowedOrigins, "*") || slices.Contains(h.cfg.AllowedOrigins, origin) {
		return true
	}

	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Serve upgrades the request and runs the connection until it ends.
func (h *Handler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Debug("Live upgrade rejected", slog.Any("error", err))

		return nil
	}

	ctx := c.Request().Context()
	logger := h.logger.With(slog.String("request_id", deliverycontext.GetRequestID(c)))
	newConn(h, ws, logger).serve(ctx)

	return nil
}
