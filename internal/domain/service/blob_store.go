package service

import (
	"context"
	"io"
)

// ProgressFunc receives the number of bytes written so far and the expected total (-1 when unknown).
type ProgressFunc func(written, total int64)

// UploadResult describes a completed upload.
type UploadResult struct {
	Key         string `json:"key"`
	DownloadURL string `json:"downloadUrl"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// BlobStore keeps file attachments.
type BlobStore interface {
	// Upload streams r to key, reporting progress, and returns a retrievable download URL.
	Upload(ctx context.Context, key, contentType string, r io.Reader, size int64, progress ProgressFunc) (*UploadResult, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}
