// Package blob stores file attachments in a gocloud.dev bucket.
package blob

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"agency/config"
	"agency/internal/domain/service"
	"agency/internal/errors"

	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"
)

type bucketStore struct {
	bucket        *blob.Bucket
	publicBaseURL string
	expiry        time.Duration
	chunkSize     int
	logger        *slog.Logger
}

// NewBucketStore wraps an opened bucket. When publicBaseURL is set download URLs
// are built from it, otherwise they are signed by the bucket.
func NewBucketStore(bucket *blob.Bucket, publicBaseURL string, expiry time.Duration, chunkSize int, logger *slog.Logger) service.BlobStore {
	return &bucketStore{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		expiry:        expiry,
		chunkSize:     chunkSize,
		logger:        logger.With("component", "blob_store"),
	}
}

// StoreParams holds dependencies for the blob store, injected by Fx
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewBlobStore opens the configured bucket and closes it on shutdown.
func NewBlobStore(params StoreParams) (service.BlobStore, error) {
	cfg := params.Config.Blob
	if cfg == nil || cfg.BucketURL == "" {
		return nil, errors.New("blob.bucketUrl is required")
	}

	bucket, err := blob.OpenBucket(params.Ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", cfg.BucketURL)
	}
	params.Logger.Info("Blob bucket opened", slog.String("url", cfg.BucketURL))

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.WithStack(bucket.Close())
		},
	})

	return NewBucketStore(bucket, cfg.PublicBaseURL, cfg.SignedURLExpiry, cfg.ChunkSize, params.Logger), nil
}

// Upload streams r into key in chunks, reporting progress after every chunk.
// A failed copy aborts the write, leaving nothing under key.
func (s *bucketStore) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64, progress service.ProgressFunc) (*service.UploadResult, error) {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(writeCtx, key, &blob.WriterOptions{
		ContentType: contentType,
		BufferSize:  s.chunkSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open blob writer")
	}

	written, err := io.CopyBuffer(w, &progressReader{r: r, total: size, progress: progress}, make([]byte, s.chunkBuffer()))
	if err != nil {
		cancel()
		_ = w.Close()

		return nil, errors.Wrapf(err, "failed to upload %s", key)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "failed to commit %s", key)
	}

	downloadURL, err := s.downloadURL(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "file uploaded", slog.String("key", key), slog.Int64("size", written))

	return &service.UploadResult{
		Key:         key,
		DownloadURL: downloadURL,
		Size:        written,
		ContentType: contentType,
	}, nil
}

// Delete removes key. A missing object is not an error.
func (s *bucketStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "failed to delete %s", key)
	}

	return nil
}

func (s *bucketStore) downloadURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicURL(key), nil
	}

	signed, err := s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: s.expiry})
	if err != nil {
		if gcerrors.Code(err) == gcerrors.Unimplemented {
			return "", errors.New("bucket cannot sign URLs and blob.publicBaseUrl is not set")
		}

		return "", errors.Wrapf(err, "failed to sign URL for %s", key)
	}

	return signed, nil
}

func (s *bucketStore) publicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return s.publicBaseURL + "/" + strings.Join(parts, "/")
}

func (s *bucketStore) chunkBuffer() int {
	if s.chunkSize <= 0 {
		return 32 << 10
	}

	return s.chunkSize
}

// progressReader reports the running byte count after every read.
type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	progress service.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(p.read, p.total)
		}
	}

	return n, err
}
