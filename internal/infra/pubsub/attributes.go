package pubsub

import (
	"agency/internal/domain/constants"
	"agency/internal/domain/service"
)

// eventAttributes builds the message attributes used for filtering and tracing.
func eventAttributes(event *service.NotificationEvent) map[string]string {
	attributes := map[string]string{
		constants.AttributeNotificationType: event.NotificationType,
	}
	if event.RequestID != "" {
		attributes[constants.AttributeRequestID] = event.RequestID
	}

	return attributes
}
