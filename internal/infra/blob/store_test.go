package blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"agency/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpload_ReportsProgressAndReturnsURL(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	store := NewBucketStore(bucket, "https://files.agency.dev/", time.Hour, 4, discardLogger())

	payload := []byte("0123456789")
	var reports [][2]int64
	result, err := store.Upload(ctx, "uid-1/brief v2.pdf", "application/pdf", bytes.NewReader(payload), int64(len(payload)),
		func(written, total int64) { reports = append(reports, [2]int64{written, total}) })
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.Size)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "https://files.agency.dev/uid-1/brief%20v2.pdf", result.DownloadURL)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, [2]int64{10, 10}, last)
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i][0], reports[i-1][0])
	}

	stored, err := bucket.ReadAll(ctx, "uid-1/brief v2.pdf")
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	attrs, err := bucket.Attributes(ctx, "uid-1/brief v2.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", attrs.ContentType)
}

func TestUpload_NilProgress(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	store := NewBucketStore(bucket, "https://files.agency.dev", time.Hour, 0, discardLogger())
	result, err := store.Upload(context.Background(), "k", "text/plain", strings.NewReader("hello"), -1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Size)
}

func TestDelete_MissingIsNotAnError(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	store := NewBucketStore(bucket, "https://files.agency.dev", time.Hour, 0, discardLogger())
	_, err := store.Upload(ctx, "k", "text/plain", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "k"))
	exists, err := bucket.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestUpload_FailedReadLeavesNoObject(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	store := NewBucketStore(bucket, "https://files.agency.dev", time.Hour, 4, discardLogger())

	errDropped := errors.New("client went away")
	body := io.MultiReader(strings.NewReader("partial content"), iotest.ErrReader(errDropped))
	result, err := store.Upload(ctx, "uid-1/report.pdf", "application/pdf", body, 64, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDropped)
	assert.Nil(t, result)

	exists, err := bucket.Exists(ctx, "uid-1/report.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
