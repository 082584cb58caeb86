package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "agency/internal/delivery/context"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/domain/service"
	"agency/internal/errors"
	"agency/internal/usecase"
)

// notificationService implements the NotificationUsecase interface.
type notificationService struct {
	notifications repository.NotificationRepository
	publisher     service.EventPublisher
	logger        *slog.Logger
	now           func() time.Time
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(
	notifications repository.NotificationRepository,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.NotificationUsecase {
	return &notificationService{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// List returns the actor's notifications newest first.
func (srv *notificationService) List(ctx context.Context, actor *entity.Profile) ([]*entity.Notification, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	notifications, err := srv.notifications.ListByRecipient(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "list notifications")
	}

	return notifications, nil
}

// MarkRead marks one notification as read. Notifications of other recipients look missing.
func (srv *notificationService) MarkRead(ctx context.Context, actor *entity.Profile, id string) error {
	if err := requireActive(actor); err != nil {
		return err
	}

	notification, err := srv.notifications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return domainerrors.ErrNotificationNotFound
		}

		return storeError(err, "read notification")
	}
	if notification.RecipientID != actor.ID {
		return domainerrors.ErrNotificationNotFound
	}
	if notification.Read {
		return nil
	}

	if err := srv.notifications.MarkRead(ctx, id); err != nil {
		return storeError(err, "mark notification read")
	}

	return nil
}

// MarkAllRead marks every unread notification of the actor as read.
func (srv *notificationService) MarkAllRead(ctx context.Context, actor *entity.Profile) (int, error) {
	if err := requireActive(actor); err != nil {
		return 0, err
	}

	notifications, err := srv.notifications.ListByRecipient(ctx, actor.ID)
	if err != nil {
		return 0, storeError(err, "list notifications")
	}

	changed := 0
	for _, n := range notifications {
		if n.Read {
			continue
		}
		if err := srv.notifications.MarkRead(ctx, n.ID); err != nil {
			return changed, storeError(err, "mark notification read")
		}
		changed++
	}

	return changed, nil
}

// Notify stores one notification per distinct recipient, then publishes a push event.
// A failed publish is logged; the stored notifications stay.
func (srv *notificationService) Notify(ctx context.Context, input *usecase.NotifyInput) error {
	recipients := uniqueNonEmpty(input.RecipientIDs)
	if len(recipients) == 0 {
		return nil
	}

	for _, recipient := range recipients {
		notification := &entity.Notification{
			RecipientID:      recipient,
			Type:             input.Type,
			Title:            input.Title,
			Message:          input.Message,
			ParentCollection: input.ParentCollection,
			ParentID:         input.ParentID,
			CreatedAt:        srv.now(),
		}
		if err := srv.notifications.Create(ctx, notification); err != nil {
			return storeError(err, "create notification")
		}
	}

	event := &service.NotificationEvent{
		RequestID:        deliverycontext.GetRequestIDFromContext(ctx),
		NotificationType: string(input.Type),
		Title:            input.Title,
		Message:          input.Message,
		ParentCollection: input.ParentCollection.String(),
		ParentID:         input.ParentID,
		RecipientIDs:     recipients,
	}
	if err := srv.publisher.PublishNotificationEvent(ctx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, srv.logger).WarnContext(ctx, "Failed to publish notification event",
			"recipient_count", len(recipients),
			"error", err,
		)
	}

	return nil
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
