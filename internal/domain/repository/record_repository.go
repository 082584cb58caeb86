package repository

import (
	"context"
	"errors"

	"agency/internal/domain/entity"
)

// ErrRecordNotFound is returned when a domain record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// RecordUpdate lists the record fields an update touches. Nil fields are left unchanged;
// Fields entries are merged key by key.
type RecordUpdate struct {
	Title  *string
	Status *entity.Status
	Fields map[string]any
}

// RecordRepository defines persistence for owner-scoped domain records.
type RecordRepository interface {
	FindByID(ctx context.Context, collection entity.Collection, id string) (*entity.Record, error)

	// Create inserts the record and sets its ID.
	Create(ctx context.Context, record *entity.Record) error

	Update(ctx context.Context, collection entity.Collection, id string, update RecordUpdate) error

	// Delete hard-deletes the record. Comments and notifications pointing at it are kept.
	Delete(ctx context.Context, collection entity.Collection, id string) error

	// List returns records newest first, scoped to ownerID unless it is empty.
	List(ctx context.Context, collection entity.Collection, ownerID string) ([]*entity.Record, error)
}
