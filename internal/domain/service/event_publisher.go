package service

import (
	"context"
)

// NotificationEvent asks the push worker to deliver notifications to devices.
type NotificationEvent struct {
	RequestID        string   `json:"request_id,omitempty"` // For distributed tracing
	NotificationType string   `json:"notification_type"`
	Title            string   `json:"title"`
	Message          string   `json:"message"`
	ParentCollection string   `json:"parent_collection,omitempty"`
	ParentID         string   `json:"parent_id,omitempty"`
	RecipientIDs     []string `json:"recipient_ids"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishNotificationEvent publishes a notification event for async push delivery
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
