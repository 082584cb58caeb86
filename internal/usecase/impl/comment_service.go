package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/usecase"
)

// commentService implements the CommentUsecase interface.
type commentService struct {
	comments repository.CommentRepository
	records  repository.RecordRepository
	profiles repository.ProfileRepository
	notifier usecase.NotificationUsecase
	logger   *slog.Logger
	now      func() time.Time
}

// NewCommentService is the constructor for commentService.
func NewCommentService(
	comments repository.CommentRepository,
	records repository.RecordRepository,
	profiles repository.ProfileRepository,
	notifier usecase.NotificationUsecase,
	logger *slog.Logger,
) usecase.CommentUsecase {
	return &commentService{
		comments: comments,
		records:  records,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Add appends a comment. A client's comment notifies every active admin; an
// admin's comment notifies the owning client.
func (srv *commentService) Add(ctx context.Context, actor *entity.Profile, collection entity.Collection, recordID string, input *usecase.AddCommentInput) (*entity.Comment, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("comment text is required")
	}

	record, err := findVisibleRecord(ctx, srv.records, actor, collection, recordID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		OwnerID:          record.OwnerID,
		ParentCollection: collection,
		ParentID:         record.ID,
		AuthorID:         actor.ID,
		AuthorRole:       actor.Role,
		Text:             text,
		CreatedAt:        srv.now(),
	}
	if err := srv.comments.Create(ctx, comment); err != nil {
		return nil, storeError(err, "create comment")
	}

	recipients, err := srv.counterparts(ctx, actor, record)
	if err != nil {
		srv.logger.WarnContext(ctx, "Could not resolve comment recipients", "record_id", record.ID, "error", err)

		return comment, nil
	}

	err = srv.notifier.Notify(ctx, &usecase.NotifyInput{
		Type:             entity.NotificationComment,
		Title:            "New comment on " + record.Title,
		Message:          text,
		ParentCollection: collection,
		ParentID:         record.ID,
		RecipientIDs:     recipients,
	})
	if err != nil {
		srv.logger.WarnContext(ctx, "Comment notification failed", "comment_id", comment.ID, "error", err)
	}

	return comment, nil
}

// List returns the thread of a record the actor may see.
func (srv *commentService) List(ctx context.Context, actor *entity.Profile, collection entity.Collection, recordID string) ([]*entity.Comment, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	record, err := findVisibleRecord(ctx, srv.records, actor, collection, recordID)
	if err != nil {
		return nil, err
	}

	comments, err := srv.comments.ListByParent(ctx, record.OwnerID, collection, record.ID)
	if err != nil {
		return nil, storeError(err, "list comments")
	}

	return comments, nil
}

func (srv *commentService) counterparts(ctx context.Context, actor *entity.Profile, record *entity.Record) ([]string, error) {
	if actor.IsAdmin() {
		if record.OwnerID == actor.ID {
			return nil, nil
		}

		return []string{record.OwnerID}, nil
	}

	admins, err := srv.profiles.List(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(entity.IndexProfiles(admins).ActiveAdmins(), func(id string) bool {
		return id == actor.ID
	}), nil
}
