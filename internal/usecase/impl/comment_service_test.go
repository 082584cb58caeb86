package impl

import (
	"context"
	"testing"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"
	mockRepo "agency/internal/mocks/repository"
	mockService "agency/internal/mocks/service"
	"agency/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type commentServiceFixtures struct {
	storeFixtures
	service usecase.CommentUsecase
	admin   *entity.Profile
	client  *entity.Profile
	record  *entity.Record
}

func createTestCommentService(t *testing.T) commentServiceFixtures {
	t.Helper()

	f := createStoreFixtures(t)
	notifier := NewNotificationService(f.notifications, f.publisher, discardLogger())
	client := f.seedProfile(t, "client-1", entity.RoleClient, true)

	return commentServiceFixtures{
		storeFixtures: f,
		service:       NewCommentService(f.comments, f.records, f.profiles, notifier, discardLogger()),
		admin:         f.seedProfile(t, "admin-1", entity.RoleAdmin, true),
		client:        client,
		record:        f.seedRecord(t, entity.CollectionDesignRequests, client.ID, "Logo"),
	}
}

func TestCommentService_ClientCommentNotifiesActiveAdmins(t *testing.T) {
	fx := createTestCommentService(t)
	ctx := context.Background()
	fx.seedProfile(t, "admin-2", entity.RoleAdmin, true)
	fx.seedProfile(t, "admin-retired", entity.RoleAdmin, false)

	var published *service.NotificationEvent
	fx.publisher.EXPECT().
		PublishNotificationEvent(ctx, mock.Anything).
		Run(func(_ context.Context, e *service.NotificationEvent) { published = e }).
		Return(nil)

	comment, err := fx.service.Add(ctx, fx.client, entity.CollectionDesignRequests, fx.record.ID, &usecase.AddCommentInput{Text: "  Can we try blue?  "})
	require.NoError(t, err)
	assert.Equal(t, "Can we try blue?", comment.Text)
	assert.Equal(t, fx.client.ID, comment.OwnerID)
	assert.Equal(t, entity.RoleClient, comment.AuthorRole)

	require.NotNil(t, published)
	assert.Equal(t, []string{"admin-1", "admin-2"}, published.RecipientIDs)
	assert.Equal(t, "comment", published.NotificationType)

	for _, id := range []string{"admin-1", "admin-2"} {
		notes, err := fx.notifications.ListByRecipient(ctx, id)
		require.NoError(t, err)
		assert.Len(t, notes, 1, id)
	}
	retired, err := fx.notifications.ListByRecipient(ctx, "admin-retired")
	require.NoError(t, err)
	assert.Empty(t, retired)
}

func TestCommentService_AdminCommentNotifiesClient(t *testing.T) {
	fx := createTestCommentService(t)
	ctx := context.Background()

	fx.publisher.EXPECT().PublishNotificationEvent(ctx, mock.Anything).Return(errors.New("pubsub down"))

	_, err := fx.service.Add(ctx, fx.admin, entity.CollectionDesignRequests, fx.record.ID, &usecase.AddCommentInput{Text: "Draft attached"})
	require.NoError(t, err)

	notes, err := fx.notifications.ListByRecipient(ctx, fx.client.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, fx.record.ID, notes[0].ParentID)
}

func TestCommentService_ListIsOldestFirstAndScoped(t *testing.T) {
	fx := createTestCommentService(t)
	ctx := context.Background()
	fx.publisher.EXPECT().PublishNotificationEvent(mock.Anything, mock.Anything).Return(nil)

	for _, text := range []string{"first", "second", "third"} {
		_, err := fx.service.Add(ctx, fx.admin, entity.CollectionDesignRequests, fx.record.ID, &usecase.AddCommentInput{Text: text})
		require.NoError(t, err)
	}

	comments, err := fx.service.List(ctx, fx.client, entity.CollectionDesignRequests, fx.record.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "third", comments[2].Text)

	stranger := fx.seedProfile(t, "client-2", entity.RoleClient, true)
	_, err = fx.service.List(ctx, stranger, entity.CollectionDesignRequests, fx.record.ID)
	assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
}

func TestCommentService_RejectsEmptyText(t *testing.T) {
	fx := createTestCommentService(t)

	_, err := fx.service.Add(context.Background(), fx.client, entity.CollectionDesignRequests, fx.record.ID, &usecase.AddCommentInput{Text: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestCommentService_StoreFailure(t *testing.T) {
	records := mockRepo.NewMockRecordRepository(t)
	comments := mockRepo.NewMockCommentRepository(t)
	svc := NewCommentService(comments, records, mockRepo.NewMockProfileRepository(t),
		NewNotificationService(mockRepo.NewMockNotificationRepository(t), mockService.NewMockEventPublisher(t), discardLogger()),
		discardLogger())
	ctx := context.Background()
	actor := &entity.Profile{ID: "client-1", Role: entity.RoleClient, Active: true}

	records.EXPECT().FindByID(ctx, entity.CollectionIdeas, "r1").
		Return(&entity.Record{ID: "r1", OwnerID: "client-1", Collection: entity.CollectionIdeas}, nil)
	comments.EXPECT().Create(ctx, mock.Anything).Return(errors.New("deadline exceeded"))

	_, err := svc.Add(ctx, actor, entity.CollectionIdeas, "r1", &usecase.AddCommentInput{Text: "hi"})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STORE_EXECUTE_FAILED", appErr.ErrorCode())
}
