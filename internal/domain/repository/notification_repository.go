package repository

import (
	"context"
	"errors"

	"agency/internal/domain/entity"
)

// ErrNotificationNotFound is returned when a notification does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository defines persistence for per-recipient notifications.
type NotificationRepository interface {
	// Create inserts the notification and sets its ID.
	Create(ctx context.Context, notification *entity.Notification) error

	FindByID(ctx context.Context, id string) (*entity.Notification, error)

	// ListByRecipient returns notifications newest first.
	ListByRecipient(ctx context.Context, recipientID string) ([]*entity.Notification, error)

	// MarkRead sets the read flag of one notification.
	MarkRead(ctx context.Context, id string) error
}
