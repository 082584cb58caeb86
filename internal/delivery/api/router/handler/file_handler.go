package handler

import (
	"log/slog"
	"net/http"

	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/response"
	deliverycontext "agency/internal/delivery/context"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"
	"agency/internal/usecase"
	"agency/internal/util"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// FileHandlerParams holds dependencies for FileHandler, injected by Fx.
type FileHandlerParams struct {
	fx.In

	FileUC usecase.FileUsecase
	Logger *slog.Logger
}

// FileHandler accepts attachment uploads.
type FileHandler struct {
	fileUC usecase.FileUsecase
	logger *slog.Logger
}

// NewFileHandler is the constructor for FileHandler.
func NewFileHandler(params FileHandlerParams) *FileHandler {
	return &FileHandler{fileUC: params.FileUC, logger: params.Logger}
}

// Upload stores the multipart "file" part for the form's ownerId and returns the files record.
func (h *FileHandler) Upload(c echo.Context) error {
	actor, ok := middleware.GetProfile(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthenticated)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Multipart field \"file\" is required")
	}
	file, err := header.Open()
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Uploaded file could not be read")
	}
	defer file.Close()

	ctx := c.Request().Context()
	input := &usecase.UploadFileInput{
		OwnerID:     c.FormValue("ownerId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
	}

	record, err := h.fileUC.Upload(ctx, actor, input, file, quarterProgress(deliverycontext.GetLoggerOrDefault(ctx, h.logger), header.Filename))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, record)
}

// quarterProgress logs an upload each time it crosses another quarter of its size.
func quarterProgress(logger *slog.Logger, name string) service.ProgressFunc {
	logged := 0

	return func(written, total int64) {
		if total <= 0 {
			return
		}
		quarter := int(written * 4 / total)
		if quarter <= logged {
			return
		}
		logged = quarter
		logger.Debug("Upload progress",
			slog.String("file", name),
			slog.String("written", util.FormatBytes(written)),
			slog.String("total", util.FormatBytes(total)),
			slog.Int("percent", util.Percent(written, total)),
		)
	}
}
