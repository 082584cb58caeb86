package usecase

import (
	"context"

	"agency/internal/domain/entity"
)

// NotificationUsecase manages the actor's own notifications.
type NotificationUsecase interface {
	// List returns the actor's notifications newest first.
	List(ctx context.Context, actor *entity.Profile) ([]*entity.Notification, error)

	// MarkRead marks one of the actor's notifications as read.
	MarkRead(ctx context.Context, actor *entity.Profile, id string) error

	// MarkAllRead marks every unread notification of the actor as read and returns how many changed.
	MarkAllRead(ctx context.Context, actor *entity.Profile) (int, error)

	// Notify stores one notification per recipient and publishes a push event for them.
	Notify(ctx context.Context, input *NotifyInput) error
}

// NotifyInput describes a notification fan-out.
type NotifyInput struct {
	Type             entity.NotificationType
	Title            string
	Message          string
	ParentCollection entity.Collection
	ParentID         string
	RecipientIDs     []string
}
