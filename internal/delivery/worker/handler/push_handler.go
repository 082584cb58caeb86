// Package handler serves the push worker endpoints.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"agency/config"
	deliverycontext "agency/internal/delivery/context"
	"agency/internal/domain/constants"
	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/domain/service"
	"agency/internal/errors"
	"agency/internal/infra/pubsub"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// newRetryableError wraps an error as retryable
func newRetryableError(err error) error {
	return &retryableError{err: err}
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// tokenValidator checks a Google-signed ID token for the given audience.
type tokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushHandler delivers notification events to the devices of their recipients.
type PushHandler struct {
	verifyPushAuth bool
	validate       tokenValidator
	logger         *slog.Logger
	pushSvc        service.PushService
	profiles       repository.ProfileRepository
	now            func() time.Time
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	PushSvc  service.PushService
	Profiles repository.ProfileRepository
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	// Pushes from Google Pub/Sub carry an OIDC token outside development
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth: verifyPushAuth,
		validate:       idtoken.Validate,
		logger:         params.Logger,
		pushSvc:        params.PushSvc,
		profiles:       params.Profiles,
		now:            time.Now,
	}
}

// HandlePush handles incoming Pub/Sub push messages. Retryable failures answer
// 503 so Pub/Sub redelivers; everything else is acknowledged with 200.
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg pubsub.PushEnvelope
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse notification event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing notification event",
		slog.String("message_id", pushMsg.Message.MessageID),
		slog.String("notification_type", event.NotificationType),
		slog.Int("recipient_count", len(event.RecipientIDs)),
	)

	if err := h.deliver(ctx, reqLogger, &event); err != nil {
		reqLogger.Error("[Worker] Failed to deliver notification",
			slog.String("message_id", pushMsg.Message.MessageID),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID prefers message attributes, then the event, then the request
// context, and generates an id as a last resort.
func (h *PushHandler) extractRequestID(ctx context.Context, pushMsg *pubsub.PushEnvelope, event *service.NotificationEvent) string {
	if requestID := pushMsg.Message.Attributes[constants.AttributeRequestID]; requestID != "" {
		return requestID
	}
	if event.RequestID != "" {
		return event.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.NewString()
}

func (h *PushHandler) deliver(ctx context.Context, logger *slog.Logger, event *service.NotificationEvent) error {
	owners, err := h.collectTokens(ctx, logger, event.RecipientIDs)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		logger.Info("[Worker] No devices registered for recipients")

		return nil
	}

	tokens := make([]string, 0, len(owners))
	for token := range owners {
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)

	result, err := h.pushSvc.SendMulticast(ctx, tokens, event.Title, event.Message, pushData(event))
	if err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	h.removeInvalidTokens(ctx, logger, result.InvalidTokens, owners)

	logger.Info("[Worker] Notification sending completed",
		slog.Int("total_sent", result.SuccessCount),
		slog.Int("total_failed", result.FailureCount),
		slog.Int("invalid_tokens", len(result.InvalidTokens)),
	)

	return nil
}

// collectTokens maps every device token of the active recipients to the
// profile holding it.
func (h *PushHandler) collectTokens(ctx context.Context, logger *slog.Logger, recipientIDs []string) (map[string]*entity.Profile, error) {
	owners := make(map[string]*entity.Profile)
	seen := make(map[string]bool, len(recipientIDs))

	for _, id := range recipientIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		profile, err := h.profiles.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				logger.Warn("[Worker] Recipient has no profile", slog.String("recipient_id", id))

				continue
			}

			return nil, newRetryableError(errors.Wrap(err, "read recipient profile"))
		}
		if !profile.Active {
			continue
		}
		for _, token := range profile.PushTokens {
			owners[token] = profile
		}
	}

	return owners, nil
}

// removeInvalidTokens drops tokens the push provider rejected from their profiles.
func (h *PushHandler) removeInvalidTokens(ctx context.Context, logger *slog.Logger, invalid []string, owners map[string]*entity.Profile) {
	stale := make(map[string][]string)
	profiles := make(map[string]*entity.Profile)
	for _, token := range invalid {
		profile, ok := owners[token]
		if !ok {
			continue
		}
		stale[profile.ID] = append(stale[profile.ID], token)
		profiles[profile.ID] = profile
	}

	for id, tokens := range stale {
		remaining := slices.DeleteFunc(slices.Clone(profiles[id].PushTokens), func(t string) bool {
			return slices.Contains(tokens, t)
		})
		if remaining == nil {
			remaining = []string{}
		}
		if err := h.profiles.Update(ctx, id, repository.ProfileUpdate{PushTokens: remaining}, h.now()); err != nil {
			logger.Warn("[Worker] Failed to remove invalid push tokens",
				slog.String("profile_id", id),
				slog.Any("error", err),
			)
		}
	}
}

func pushData(event *service.NotificationEvent) map[string]string {
	data := map[string]string{
		constants.AttributeNotificationType: event.NotificationType,
	}
	if event.ParentCollection != "" {
		data["parent_collection"] = event.ParentCollection
	}
	if event.ParentID != "" {
		data["parent_id"] = event.ParentID
	}

	return data
}

// verifyPubSubToken verifies the OIDC token Google Pub/Sub attaches to push requests.
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func (h *PushHandler) verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience is the URL of this endpoint
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := h.validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
