package impl

import (
	"context"
	"testing"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/service"
	"agency/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordServiceFixtures struct {
	storeFixtures
	service usecase.RecordUsecase
	admin   *entity.Profile
	client  *entity.Profile
	other   *entity.Profile
}

func createTestRecordService(t *testing.T) recordServiceFixtures {
	t.Helper()

	f := createStoreFixtures(t)
	notifier := NewNotificationService(f.notifications, f.publisher, discardLogger())

	return recordServiceFixtures{
		storeFixtures: f,
		service:       NewRecordService(f.records, f.profiles, notifier, discardLogger()),
		admin:         f.seedProfile(t, "admin-1", entity.RoleAdmin, true),
		client:        f.seedProfile(t, "client-1", entity.RoleClient, true),
		other:         f.seedProfile(t, "client-2", entity.RoleClient, true),
	}
}

func TestRecordService_AdminCreateNotifiesOwner(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	fx.publisher.EXPECT().
		PublishNotificationEvent(ctx, mock.MatchedBy(func(e *service.NotificationEvent) bool {
			return e.NotificationType == "record" && len(e.RecipientIDs) == 1 && e.RecipientIDs[0] == fx.client.ID
		})).
		Return(nil)

	rec, err := fx.service.Create(ctx, fx.admin, entity.CollectionCampaigns, &usecase.CreateRecordInput{
		OwnerID: fx.client.ID,
		Title:   "Spring launch",
		Status:  "active",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, entity.StatusCampaignActive, rec.Status)

	notes, err := fx.notifications.ListByRecipient(ctx, fx.client.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, rec.ID, notes[0].ParentID)
	assert.Equal(t, entity.NotificationRecord, notes[0].Type)
}

func TestRecordService_AdminCreateRejectsBadInput(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, fx.admin, entity.CollectionCampaigns, &usecase.CreateRecordInput{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = fx.service.Create(ctx, fx.admin, entity.CollectionCampaigns, &usecase.CreateRecordInput{OwnerID: fx.client.ID, Title: "x", Status: "qualified"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatus)

	_, err = fx.service.Create(ctx, fx.admin, entity.CollectionCampaigns, &usecase.CreateRecordInput{OwnerID: "ghost", Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrProfileNotFound)

	_, err = fx.service.Create(ctx, fx.admin, entity.CollectionComments, &usecase.CreateRecordInput{OwnerID: fx.client.ID, Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrUnknownCollection)
}

func TestRecordService_ClientCreateIsScopedAndForcedInitialStatus(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	rec, err := fx.service.Create(ctx, fx.client, entity.CollectionDesignRequests, &usecase.CreateRecordInput{
		Title:  "New logo",
		Status: "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, fx.client.ID, rec.OwnerID)
	assert.Equal(t, entity.StatusDesignPending, rec.Status)

	_, err = fx.service.Create(ctx, fx.client, entity.CollectionIdeas, &usecase.CreateRecordInput{OwnerID: fx.other.ID, Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = fx.service.Create(ctx, fx.client, entity.CollectionTransactions, &usecase.CreateRecordInput{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestRecordService_ClientSeesOnlyOwnRecords(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	mine := fx.seedRecord(t, entity.CollectionLeads, fx.client.ID, "mine")
	theirs := fx.seedRecord(t, entity.CollectionLeads, fx.other.ID, "theirs")

	list, err := fx.service.List(ctx, fx.client, entity.CollectionLeads, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = fx.service.List(ctx, fx.client, entity.CollectionLeads, fx.other.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = fx.service.Get(ctx, fx.client, entity.CollectionLeads, theirs.ID)
	assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
}

func TestRecordService_AdminListJoinsOwnerNames(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	fx.seedRecord(t, entity.CollectionLeads, fx.client.ID, "a")
	fx.seedRecord(t, entity.CollectionLeads, fx.other.ID, "b")

	list, err := fx.service.List(ctx, fx.admin, entity.CollectionLeads, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, "Name "+r.OwnerID, r.OwnerName)
	}

	scoped, err := fx.service.List(ctx, fx.admin, entity.CollectionLeads, fx.other.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, fx.other.ID, scoped[0].OwnerID)
}

func TestRecordService_UpdateAndDeleteAreAdminOnly(t *testing.T) {
	fx := createTestRecordService(t)
	ctx := context.Background()

	rec := fx.seedRecord(t, entity.CollectionCampaigns, fx.client.ID, "Launch")
	status := "paused"

	_, err := fx.service.Update(ctx, fx.client, entity.CollectionCampaigns, rec.ID, &usecase.UpdateRecordInput{Status: &status})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.ErrorIs(t, fx.service.Delete(ctx, fx.client, entity.CollectionCampaigns, rec.ID), domainerrors.ErrForbidden)

	updated, err := fx.service.Update(ctx, fx.admin, entity.CollectionCampaigns, rec.ID, &usecase.UpdateRecordInput{
		Status: &status,
		Fields: map[string]any{"budget": 1200},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCampaignPaused, updated.Status)
	assert.Equal(t, "Launch", updated.Title)

	bad := "lost"
	_, err = fx.service.Update(ctx, fx.admin, entity.CollectionCampaigns, rec.ID, &usecase.UpdateRecordInput{Status: &bad})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatus)

	require.NoError(t, fx.service.Delete(ctx, fx.admin, entity.CollectionCampaigns, rec.ID))
	_, err = fx.service.Get(ctx, fx.admin, entity.CollectionCampaigns, rec.ID)
	assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
	assert.ErrorIs(t, fx.service.Delete(ctx, fx.admin, entity.CollectionCampaigns, rec.ID), domainerrors.ErrRecordNotFound)
}

func TestRecordService_InactiveActorIsDenied(t *testing.T) {
	fx := createTestRecordService(t)
	inactive := &entity.Profile{ID: "client-1", Role: entity.RoleClient, Active: false}

	_, err := fx.service.List(context.Background(), inactive, entity.CollectionLeads, "")
	assert.ErrorIs(t, err, domainerrors.ErrAccountInactive)

	_, err = fx.service.List(context.Background(), nil, entity.CollectionLeads, "")
	assert.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
}
