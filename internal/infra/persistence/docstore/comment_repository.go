package docstore

import (
	"context"
	"log/slog"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

type commentRepository struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

// NewCommentRepository returns a CommentRepository on the given document store.
func NewCommentRepository(store repository.DocumentStore, logger *slog.Logger) repository.CommentRepository {
	return &commentRepository{store: store, logger: logger.With("repository", "comments")}
}

func (repo *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	id, err := repo.store.Create(ctx, entity.CollectionComments, encodeComment(comment))
	if err != nil {
		return errors.Wrap(err, "failed to create comment")
	}
	comment.ID = id

	created, err := storedCreateTime(ctx, repo.store, entity.CollectionComments, id)
	if err != nil {
		repo.logger.WarnContext(ctx, "could not read back created comment", "id", id, "error", err)

		return nil
	}
	comment.CreatedAt = created

	return nil
}

func (repo *commentRepository) ListByParent(ctx context.Context, ownerID string, parent entity.Collection, parentID string) ([]*entity.Comment, error) {
	docs, err := repo.store.Query(ctx, repository.CommentsQuery(ownerID, parent, parentID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}

	comments := make([]*entity.Comment, 0, len(docs))
	for _, doc := range docs {
		c, err := DecodeComment(doc)
		if err != nil {
			repo.logger.WarnContext(ctx, "skipping undecodable document", "id", doc.ID, "error", err)

			continue
		}
		comments = append(comments, c)
	}

	return comments, nil
}
