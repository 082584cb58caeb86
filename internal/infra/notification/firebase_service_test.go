package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"agency/internal/domain/constants"

	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	batches [][]string
	err     error
}

func (r *recordingSender) SendEachForMulticast(_ context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.batches = append(r.batches, message.Tokens)

	responses := make([]*messaging.SendResponse, len(message.Tokens))
	for i := range message.Tokens {
		responses[i] = &messaging.SendResponse{Success: true, MessageID: fmt.Sprintf("m-%d", i)}
	}

	return &messaging.BatchResponse{SuccessCount: len(message.Tokens), Responses: responses}, nil
}

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("token-%d", i)
	}

	return out
}

func TestSendMulticast_Batches(t *testing.T) {
	sender := &recordingSender{}
	svc := NewFirebaseService(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := svc.SendMulticast(context.Background(), tokens(constants.PushBatchSize+3), "t", "b", nil)
	require.NoError(t, err)

	require.Len(t, sender.batches, 2)
	assert.Len(t, sender.batches[0], constants.PushBatchSize)
	assert.Len(t, sender.batches[1], 3)
	assert.Equal(t, constants.PushBatchSize+3, result.SuccessCount)
	assert.Empty(t, result.InvalidTokens)
}

func TestSendMulticast_NoTokens(t *testing.T) {
	sender := &recordingSender{}
	svc := NewFirebaseService(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := svc.SendMulticast(context.Background(), nil, "t", "b", nil)
	require.NoError(t, err)
	assert.Zero(t, result.SuccessCount)
	assert.Empty(t, sender.batches)
}

func TestSendMulticast_TransportError(t *testing.T) {
	svc := NewFirebaseService(&recordingSender{err: errors.New("unavailable")}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.SendMulticast(context.Background(), tokens(2), "t", "b", nil)
	assert.Error(t, err)
}
