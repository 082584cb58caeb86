package usecase

import (
	"context"
	"io"

	"agency/internal/domain/entity"
	"agency/internal/domain/service"
)

// FileUsecase uploads attachments and records them in the files collection.
type FileUsecase interface {
	// Upload stores the content and inserts a files record pointing at its download URL.
	Upload(ctx context.Context, actor *entity.Profile, input *UploadFileInput, content io.Reader, progress service.ProgressFunc) (*entity.Record, error)
}

// UploadFileInput describes an uploaded file.
type UploadFileInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
}
