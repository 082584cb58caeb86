package handler

import (
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

// RecordHandlerParams holds dependencies for RecordHandler, injected by Fx.
type RecordHandlerParams struct {
	fx.In

	RecordUC  usecase.RecordUsecase
	CommentUC usecase.CommentUsecase
	Logger    *slog.Logger
}

// RecordHandler serves the record collections and their comment threads.
type RecordHandler struct {
	recordUC  usecase.RecordUsecase
	commentUC usecase.CommentUsecase
	logger    *slog.Logger
}

// NewRecordHandler is the constructor for RecordHandler.
func NewRecordHandler(params RecordHandlerParams) *RecordHandler {
	return &RecordHandler{
		recordUC:  params.RecordUC,
		commentUC: params.CommentUC,
		logger:    params.Logger,
	}
}

func collectionParam(c echo.Context) entity.Collection {
	return entity.Collection(c.Param("collection"))
}

// List returns the records of a collection. Admins may filter with ?owner=.
func (h *RecordHandler) List(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	records, err := h.recordUC.List(c.Request().Context(), actor, collectionParam(c), c.QueryParam("owner"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.List(c, records)
}

// Create opens a record.
func (h *RecordHandler) Create(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req usecase.CreateRecordInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid record input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	record, err := h.recordUC.Create(c.Request().Context(), actor, collectionParam(c), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, record)
}

// Get returns one record.
func (h *RecordHandler) Get(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	record, err := h.recordUC.Get(c.Request().Context(), actor, collectionParam(c), c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, record)
}

// Update merges changes into a record.
func (h *RecordHandler) Update(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req usecase.UpdateRecordInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid record input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	record, err := h.recordUC.Update(c.Request().Context(), actor, collectionParam(c), c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, record)
}

// Delete removes a record.
func (h *RecordHandler) Delete(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	if err := h.recordUC.Delete(c.Request().Context(), actor, collectionParam(c), c.Param("id")); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.NoContent(c)
}

// ListComments returns a record's comment thread.
func (h *RecordHandler) ListComments(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	comments, err := h.commentUC.List(c.Request().Context(), actor, collectionParam(c), c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.List(c, comments)
}

// AddComment appends a comment to a record's thread.
func (h *RecordHandler) AddComment(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	var req usecase.AddCommentInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid comment input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	comment, err := h.commentUC.Add(c.Request().Context(), actor, collectionParam(c), c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, comment)
}
