// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"agency/internal/domain/entity"
)

var (
	// ErrDocumentNotFound is returned by point reads of a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrIteratorStopped is returned by Next after Stop was called.
	ErrIteratorStopped = errors.New("snapshot iterator stopped")
)

// WriteMode selects the semantics of DocumentStore.Set.
type WriteMode int

const (
	// WriteMerge updates only the given fields; concurrent writers are last-write-wins per field.
	WriteMerge WriteMode = iota
	// WriteReplace overwrites the whole document.
	WriteReplace
)

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own commit time.
var ServerTimestamp = serverTimestamp{}

// Document is a stored document as seen by the domain.
type Document struct {
	ID         string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// Snapshot is one complete, ordered result set delivered by a live query.
type Snapshot struct {
	Documents []*Document
	ReadTime  time.Time
}

// SnapshotIterator yields snapshots of a live query in commit order.
// Next blocks until a snapshot is available, the iterator is stopped, or the query fails.
type SnapshotIterator interface {
	Next() (*Snapshot, error)
	Stop()
}

// DocumentStore is the hosted document database the whole application is built on.
type DocumentStore interface {
	// Get reads one document, returning ErrDocumentNotFound when it does not exist.
	Get(ctx context.Context, collection entity.Collection, id string) (*Document, error)

	// Create inserts a document under a store-assigned id and returns that id.
	Create(ctx context.Context, collection entity.Collection, data map[string]any) (string, error)

	// Set writes a document with merge or replace semantics, creating it if needed.
	Set(ctx context.Context, collection entity.Collection, id string, data map[string]any, mode WriteMode) error

	// Delete hard-deletes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection entity.Collection, id string) error

	// Query runs a one-shot query.
	Query(ctx context.Context, q Query) ([]*Document, error)

	// Watch opens a live query. Errors surface from the iterator's Next.
	Watch(ctx context.Context, q Query) SnapshotIterator

	// WatchDocument opens a live single-document listener. A missing document
	// yields a snapshot with no documents.
	WatchDocument(ctx context.Context, collection entity.Collection, id string) SnapshotIterator
}
