package usecase

import (
	"context"

	"agency/internal/domain/entity"
)

// CommentUsecase manages the comment threads attached to records.
type CommentUsecase interface {
	// Add appends a comment to a record and notifies the other side of the thread.
	Add(ctx context.Context, actor *entity.Profile, collection entity.Collection, recordID string, input *AddCommentInput) (*entity.Comment, error)

	// List returns the comments of a record oldest first.
	List(ctx context.Context, actor *entity.Profile, collection entity.Collection, recordID string) ([]*entity.Comment, error)
}

// AddCommentInput defines a new comment.
type AddCommentInput struct {
	Text string `json:"text" validate:"required,max=4000"`
}
