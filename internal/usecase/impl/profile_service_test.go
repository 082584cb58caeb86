package impl

import (
	"context"
	"testing"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	mockService "agency/internal/mocks/service"
	"agency/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileServiceFixtures struct {
	storeFixtures
	service usecase.ProfileUsecase
	qrcode  *mockService.MockQRCodeService
	admin   *entity.Profile
	client  *entity.Profile
}

func createTestProfileService(t *testing.T) profileServiceFixtures {
	t.Helper()

	f := createStoreFixtures(t)
	qr := mockService.NewMockQRCodeService(t)

	return profileServiceFixtures{
		storeFixtures: f,
		service:       NewProfileService(f.profiles, qr, discardLogger()),
		qrcode:        qr,
		admin:         f.seedProfile(t, "admin-1", entity.RoleAdmin, true),
		client:        f.seedProfile(t, "client-1", entity.RoleClient, true),
	}
}

func TestProfileService_ListIsAdminOnly(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	clients, err := fx.service.List(ctx, fx.admin, entity.RoleClient)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, fx.client.ID, clients[0].ID)

	_, err = fx.service.List(ctx, fx.client, "")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = fx.service.List(ctx, fx.admin, "owner")
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestProfileService_GetIsScoped(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	self, err := fx.service.Get(ctx, fx.client, fx.client.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.client.ID, self.ID)

	_, err = fx.service.Get(ctx, fx.client, fx.admin.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = fx.service.Get(ctx, fx.admin, "ghost")
	assert.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
}

func TestProfileService_UpdateDeactivatesClient(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	inactive := false
	company := "Acme"
	updated, err := fx.service.Update(ctx, fx.admin, fx.client.ID, &usecase.UpdateProfileInput{Active: &inactive, Company: &company})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, entity.RoleClient, updated.Role)

	promote := "admin"
	updated, err = fx.service.Update(ctx, fx.admin, fx.client.ID, &usecase.UpdateProfileInput{Role: &promote})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, updated.Role)
}

func TestProfileService_UpdateGuards(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	demote := "client"
	_, err := fx.service.Update(ctx, fx.admin, fx.admin.ID, &usecase.UpdateProfileInput{Role: &demote})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	off := false
	_, err = fx.service.Update(ctx, fx.admin, fx.admin.ID, &usecase.UpdateProfileInput{Active: &off})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	bogus := "owner"
	_, err = fx.service.Update(ctx, fx.admin, fx.client.ID, &usecase.UpdateProfileInput{Role: &bogus})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	name := "x"
	_, err = fx.service.Update(ctx, fx.client, fx.client.ID, &usecase.UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = fx.service.Update(ctx, fx.admin, "ghost", &usecase.UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
}

func TestProfileService_PushTokens(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	require.NoError(t, fx.service.RegisterPushToken(ctx, fx.client, "tok-1"))
	require.NoError(t, fx.service.RegisterPushToken(ctx, fx.client, "tok-2"))
	require.NoError(t, fx.service.RegisterPushToken(ctx, fx.client, "tok-1"))

	stored, err := fx.profiles.FindByID(ctx, fx.client.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1", "tok-2"}, stored.PushTokens)

	require.NoError(t, fx.service.UnregisterPushToken(ctx, fx.client, "tok-1"))
	require.NoError(t, fx.service.UnregisterPushToken(ctx, fx.client, "tok-2"))
	require.NoError(t, fx.service.UnregisterPushToken(ctx, fx.client, "unknown"))

	stored, err = fx.profiles.FindByID(ctx, fx.client.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PushTokens)

	assert.ErrorIs(t, fx.service.RegisterPushToken(ctx, fx.client, " "), domainerrors.ErrValidationFailed)
}

func TestProfileService_PortalInviteQR(t *testing.T) {
	fx := createTestProfileService(t)
	ctx := context.Background()

	fx.qrcode.EXPECT().GeneratePortalInviteQR(fx.client.ID).Return([]byte{0x89, 'P', 'N', 'G'}, nil)

	png, err := fx.service.PortalInviteQR(ctx, fx.admin, fx.client.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png)

	_, err = fx.service.PortalInviteQR(ctx, fx.admin, fx.admin.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = fx.service.PortalInviteQR(ctx, fx.client, fx.client.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}
