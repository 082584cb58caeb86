package usecase

import (
	"context"

	"agency/internal/domain/entity"
)

// RecordUsecase manages the owner-scoped domain records of every record collection.
type RecordUsecase interface {
	// Create opens a record. Admins create for any client; clients only in
	// client-creatable collections and only for themselves.
	Create(ctx context.Context, actor *entity.Profile, collection entity.Collection, input *CreateRecordInput) (*entity.Record, error)

	// Get returns one record the actor may see.
	Get(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string) (*entity.Record, error)

	// List returns records newest first. Clients always get their own; admins get
	// every record, or one client's when ownerID is set, annotated with owner names.
	List(ctx context.Context, actor *entity.Profile, collection entity.Collection, ownerID string) ([]*entity.Record, error)

	// Update merges title, status and fields into a record. Admin only.
	Update(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string, input *UpdateRecordInput) (*entity.Record, error)

	// Delete hard-deletes a record. Admin only; comments and notifications are kept.
	Delete(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string) error
}

// --- Input DTOs ---

// CreateRecordInput defines a new record.
type CreateRecordInput struct {
	OwnerID string         `json:"ownerId"`
	Title   string         `json:"title" validate:"required,max=200"`
	Status  string         `json:"status,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// UpdateRecordInput defines the record fields an update touches.
type UpdateRecordInput struct {
	Title  *string        `json:"title,omitempty" validate:"omitempty,max=200"`
	Status *string        `json:"status,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}
