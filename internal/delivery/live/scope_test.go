package live

import (
	"context"
	"testing"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	mockRepo "agency/internal/mocks/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	admin := &entity.Profile{ID: "a1", Role: entity.RoleAdmin, Active: true}
	client := &entity.Profile{ID: "c1", Role: entity.RoleClient, Active: true}

	tests := []struct {
		name    string
		profile *entity.Profile
		frame   ClientFrame
		want    repository.Query
		wantErr error
	}{
		{
			name:    "client records pinned to own uid",
			profile: client,
			frame:   ClientFrame{ID: "s", Collection: "campaigns"},
			want:    repository.RecordsQuery(entity.CollectionCampaigns, "c1"),
		},
		{
			name:    "client cannot name another owner",
			profile: client,
			frame:   ClientFrame{ID: "s", Collection: "campaigns", OwnerID: "c2"},
			wantErr: domainerrors.ErrForbidden,
		},
		{
			name:    "admin follows every owner",
			profile: admin,
			frame:   ClientFrame{ID: "s", Collection: "campaigns"},
			want:    repository.RecordsQuery(entity.CollectionCampaigns, ""),
		},
		{
			name:    "admin filters one owner",
			profile: admin,
			frame:   ClientFrame{ID: "s", Collection: "ideas", OwnerID: "c2"},
			want:    repository.RecordsQuery(entity.CollectionIdeas, "c2"),
		},
		{
			name:    "notifications always own",
			profile: admin,
			frame:   ClientFrame{ID: "s", Collection: "notifications", OwnerID: "c2"},
			want:    repository.NotificationsQuery("a1"),
		},
		{
			name:    "admin profiles by role",
			profile: admin,
			frame:   ClientFrame{ID: "s", Collection: "profiles", Role: "client"},
			want:    repository.ProfilesQuery(entity.RoleClient),
		},
		{
			name:    "unknown collection",
			profile: admin,
			frame:   ClientFrame{ID: "s", Collection: "invoices"},
			wantErr: domainerrors.ErrUnknownCollection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scope(context.Background(), nil, tt.profile, &tt.frame)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Key(), got.query.Key())
		})
	}
}

func TestScope_RequiresSubscriptionID(t *testing.T) {
	_, err := scope(context.Background(), nil, &entity.Profile{ID: "a1", Role: entity.RoleAdmin}, &ClientFrame{Collection: "leads"})
	assert.Error(t, err)
}

func TestScope_AdminCommentThreadUsesRecordOwner(t *testing.T) {
	records := mockRepo.NewMockRecordRepository(t)
	ctx := context.Background()
	admin := &entity.Profile{ID: "a1", Role: entity.RoleAdmin, Active: true}

	records.EXPECT().FindByID(ctx, entity.CollectionLeads, "r1").
		Return(&entity.Record{ID: "r1", Collection: entity.CollectionLeads, OwnerID: "c9"}, nil)

	got, err := scope(ctx, records, admin, &ClientFrame{ID: "t", Collection: "comments", Parent: "leads", RecordID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, repository.CommentsQuery("c9", entity.CollectionLeads, "r1").Key(), got.query.Key())
}
