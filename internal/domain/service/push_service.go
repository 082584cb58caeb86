package service

import (
	"context"
)

// PushResult summarises a multicast push.
type PushResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string // Tokens the push provider reported as unregistered or malformed.
}

// PushService defines the interface for device push delivery
type PushService interface {
	// SendMulticast sends one message to many device tokens
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushResult, error)
}
