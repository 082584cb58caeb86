// Package constants holds values shared across layers.
package constants

// Deployment environments.
const (
	EnvDevelop    = "develop"
	EnvLocal      = "local"
	EnvProduction = "production"
)

// Pub/Sub providers.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Pub/Sub message attributes.
const (
	AttributeRequestID        = "request_id"
	AttributeNotificationType = "notification_type"
)

// PushBatchSize is the most device tokens one multicast push accepts.
const PushBatchSize = 500
