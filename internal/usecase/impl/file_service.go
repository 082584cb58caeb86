package impl

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/domain/service"
	"agency/internal/errors"
	"agency/internal/usecase"

	"github.com/google/uuid"
)

// fileService implements the FileUsecase interface.
type fileService struct {
	blobs    service.BlobStore
	records  repository.RecordRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewFileService is the constructor for fileService.
func NewFileService(
	blobs service.BlobStore,
	records repository.RecordRepository,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) usecase.FileUsecase {
	return &fileService{
		blobs:    blobs,
		records:  records,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload stores content under <owner>/<uuid>/<name> and records it in the files collection.
// Clients upload for themselves; admins upload for any client. If the record
// cannot be written the uploaded object is removed again.
func (srv *fileService) Upload(ctx context.Context, actor *entity.Profile, input *usecase.UploadFileInput, content io.Reader, progress service.ProgressFunc) (*entity.Record, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	ownerID := strings.TrimSpace(input.OwnerID)
	switch {
	case !actor.IsAdmin():
		if ownerID != "" && ownerID != actor.ID {
			return nil, domainerrors.ErrForbidden
		}
		ownerID = actor.ID
	case ownerID == "":
		return nil, domainerrors.ErrValidationFailed.WithDetails("ownerId is required")
	default:
		if _, err := srv.profiles.FindByID(ctx, ownerID); err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return nil, domainerrors.ErrProfileNotFound
			}

			return nil, storeError(err, "read owner profile")
		}
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(input.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("file name is required")
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := path.Join(ownerID, uuid.NewString(), name)
	uploaded, err := srv.blobs.Upload(ctx, key, contentType, content, input.Size, progress)
	if err != nil {
		srv.logger.ErrorContext(ctx, "Upload failed", "key", key, "error", err)

		return nil, errors.Wrap(domainerrors.ErrUploadFailed, err.Error())
	}

	now := srv.now()
	record := &entity.Record{
		Collection: entity.CollectionFiles,
		OwnerID:    ownerID,
		Title:      name,
		Status:     entity.CollectionFiles.InitialStatus(),
		Fields: map[string]any{
			"key":         uploaded.Key,
			"url":         uploaded.DownloadURL,
			"size":        uploaded.Size,
			"contentType": uploaded.ContentType,
			"uploadedBy":  actor.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := srv.records.Create(ctx, record); err != nil {
		if delErr := srv.blobs.Delete(ctx, key); delErr != nil {
			srv.logger.WarnContext(ctx, "Failed to remove orphaned upload", "key", key, "error", delErr)
		}

		return nil, storeError(err, "create file record")
	}

	return record, nil
}
