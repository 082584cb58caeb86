package docstore

import (
	"context"
	"log/slog"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

type notificationRepository struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

// NewNotificationRepository returns a NotificationRepository on the given document store.
func NewNotificationRepository(store repository.DocumentStore, logger *slog.Logger) repository.NotificationRepository {
	return &notificationRepository{store: store, logger: logger.With("repository", "notifications")}
}

func (repo *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	id, err := repo.store.Create(ctx, entity.CollectionNotifications, encodeNotification(notification))
	if err != nil {
		return errors.Wrap(err, "failed to create notification")
	}
	notification.ID = id

	created, err := storedCreateTime(ctx, repo.store, entity.CollectionNotifications, id)
	if err != nil {
		repo.logger.WarnContext(ctx, "could not read back created notification", "id", id, "error", err)

		return nil
	}
	notification.CreatedAt = created

	return nil
}

func (repo *notificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	doc, err := repo.store.Get(ctx, entity.CollectionNotifications, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, repository.ErrNotificationNotFound
		}

		return nil, errors.Wrap(err, "failed to find notification")
	}

	return DecodeNotification(doc)
}

func (repo *notificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]*entity.Notification, error) {
	docs, err := repo.store.Query(ctx, repository.NotificationsQuery(recipientID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	notifications := make([]*entity.Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := DecodeNotification(doc)
		if err != nil {
			repo.logger.WarnContext(ctx, "skipping undecodable document", "id", doc.ID, "error", err)

			continue
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

// MarkRead flips the read flag, the only notification field that ever changes.
func (repo *notificationRepository) MarkRead(ctx context.Context, id string) error {
	if err := repo.store.Set(ctx, entity.CollectionNotifications, id, map[string]any{entity.FieldRead: true}, repository.WriteMerge); err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}

	return nil
}
