package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/infra/persistence/memory"
	mockService "agency/internal/mocks/service"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storeFixtures wires the repositories on an in-memory document store.
type storeFixtures struct {
	store         *memory.Store
	profiles      repository.ProfileRepository
	records       repository.RecordRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	publisher     *mockService.MockEventPublisher
}

func createStoreFixtures(t *testing.T) storeFixtures {
	t.Helper()

	store := memory.NewStore()

	return storeFixtures{
		store:         store,
		profiles:      docstore.NewProfileRepository(store, discardLogger()),
		records:       docstore.NewRecordRepository(store, discardLogger()),
		comments:      docstore.NewCommentRepository(store, discardLogger()),
		notifications: docstore.NewNotificationRepository(store, discardLogger()),
		publisher:     mockService.NewMockEventPublisher(t),
	}
}

func (f storeFixtures) seedProfile(t *testing.T, id string, role entity.Role, active bool) *entity.Profile {
	t.Helper()

	p := &entity.Profile{ID: id, Role: role, Active: active, Name: "Name " + id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, f.profiles.Create(context.Background(), p))

	return p
}

func (f storeFixtures) seedRecord(t *testing.T, collection entity.Collection, ownerID, title string) *entity.Record {
	t.Helper()

	r := &entity.Record{Collection: collection, OwnerID: ownerID, Title: title, Status: collection.InitialStatus()}
	require.NoError(t, f.records.Create(context.Background(), r))

	return r
}
