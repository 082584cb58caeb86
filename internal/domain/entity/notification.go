package entity

import "time"

// NotificationType tells the portal how to render a notification.
type NotificationType string

const (
	// NotificationComment is sent when someone comments on a record.
	NotificationComment NotificationType = "comment"
	// NotificationRecord is sent when the agency opens a record for a client.
	NotificationRecord NotificationType = "record"
)

// IsValid checks if the NotificationType is a valid value.
func (t NotificationType) IsValid() bool {
	return t == NotificationComment || t == NotificationRecord
}

// ParseNotificationType converts a stored value into a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.IsValid() {
		return "", &UnknownValueError{Field: "notification.type", Value: s}
	}

	return t, nil
}

// Notification is addressed to one identity. Only Read ever changes after creation.
type Notification struct {
	ID               string           `json:"id"`
	RecipientID      string           `json:"recipientId"` // uid_destinatario
	Type             NotificationType `json:"type"`
	Title            string           `json:"title"`
	Message          string           `json:"message"`
	ParentCollection Collection       `json:"parentCollection,omitempty"`
	ParentID         string           `json:"parentId,omitempty"`
	Read             bool             `json:"read"`
	CreatedAt        time.Time        `json:"createdAt"`
}
