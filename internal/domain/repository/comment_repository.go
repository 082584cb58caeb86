package repository

import (
	"context"

	"agency/internal/domain/entity"
)

// CommentRepository defines persistence for append-only record comments.
type CommentRepository interface {
	// Create inserts the comment and sets its ID.
	Create(ctx context.Context, comment *entity.Comment) error

	// ListByParent returns the comments of a record oldest first.
	ListByParent(ctx context.Context, ownerID string, parent entity.Collection, parentID string) ([]*entity.Comment, error)
}
