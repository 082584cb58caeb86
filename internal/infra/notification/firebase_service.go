// Package notification delivers push messages to client devices.
package notification

import (
	"context"
	"log/slog"

	"agency/internal/domain/constants"
	"agency/internal/domain/service"
	"agency/internal/errors"
	firebaseinfra "agency/internal/infra/firebase"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/fx"
)

// MulticastSender is the part of the FCM client the push service needs.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type firebaseService struct {
	client MulticastSender
	logger *slog.Logger
}

// NewFirebaseService creates a push service sending through Firebase Cloud Messaging.
func NewFirebaseService(client MulticastSender, logger *slog.Logger) service.PushService {
	return &firebaseService{
		client: client,
		logger: logger.With("component", "fcm"),
	}
}

// PushServiceParams holds dependencies for the push service, injected by Fx
type PushServiceParams struct {
	fx.In

	Firebase *firebaseinfra.AppProvider
	Logger   *slog.Logger
}

// NewPushService builds the FCM push service from the shared Firebase app.
func NewPushService(params PushServiceParams) (service.PushService, error) {
	client, err := params.Firebase.Messaging()
	if err != nil {
		return nil, err
	}

	return NewFirebaseService(client, params.Logger), nil
}

// SendMulticast sends one notification to every token, in batches of at most constants.PushBatchSize.
// Tokens FCM reports as unregistered or malformed are returned in InvalidTokens.
func (s *firebaseService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*service.PushResult, error) {
	result := &service.PushResult{InvalidTokens: make([]string, 0)}
	if len(tokens) == 0 {
		return result, nil
	}

	for start := 0; start < len(tokens); start += constants.PushBatchSize {
		end := min(start+constants.PushBatchSize, len(tokens))
		batch := tokens[start:end]

		response, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		})
		if err != nil {
			return result, errors.Wrap(err, "failed to send multicast notification")
		}

		result.SuccessCount += response.SuccessCount
		result.FailureCount += response.FailureCount

		for idx, sendResponse := range response.Responses {
			if sendResponse.Error == nil {
				continue
			}
			if messaging.IsInvalidArgument(sendResponse.Error) || messaging.IsUnregistered(sendResponse.Error) {
				result.InvalidTokens = append(result.InvalidTokens, batch[idx])

				continue
			}
			s.logger.WarnContext(ctx, "push delivery failed", "error", sendResponse.Error)
		}
	}

	return result, nil
}
