package handler

import (
	"log/slog"
	"net/http"

	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/response"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// NotificationHandlerParams holds dependencies for NotificationHandler, injected by Fx.
type NotificationHandlerParams struct {
	fx.In

	NotificationUC usecase.NotificationUsecase
	Logger         *slog.Logger
}

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	notificationUC usecase.NotificationUsecase
	logger         *slog.Logger
}

// NewNotificationHandler is the constructor for NotificationHandler.
func NewNotificationHandler(params NotificationHandlerParams) *NotificationHandler {
	return &NotificationHandler{notificationUC: params.NotificationUC, logger: params.Logger}
}

// List returns the caller's notifications newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	notifications, err := h.notificationUC.List(c.Request().Context(), actor)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.List(c, notifications)
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	if err := h.notificationUC.MarkRead(c.Request().Context(), actor, c.Param("id")); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.NoContent(c)
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	updated, err := h.notificationUC.MarkAllRead(c.Request().Context(), actor)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"updated": updated})
}
