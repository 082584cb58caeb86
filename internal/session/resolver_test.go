package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"agency/internal/access"
	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/infra/persistence/memory"
	"agency/internal/livequery"
	mockRepo "agency/internal/mocks/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type resolverFixtures struct {
	resolver *Resolver
	store    *memory.Store
	profiles repository.ProfileRepository
	states   chan State
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestResolver(t *testing.T) resolverFixtures {
	t.Helper()

	store := memory.NewStore()
	profiles := docstore.NewProfileRepository(store, discardLogger())
	live := livequery.NewManager(store, discardLogger(), nil)
	resolver := NewResolver(profiles, live, discardLogger())
	t.Cleanup(resolver.Close)

	states := make(chan State, 64)
	resolver.Watch(func(st State) { states <- st })
	<-states // initial signed-out state

	return resolverFixtures{resolver: resolver, store: store, profiles: profiles, states: states}
}

func nextState(t *testing.T, ch <-chan State) State {
	t.Helper()

	select {
	case st := <-ch:
		return st
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for session state")

		return State{}
	}
}

// settle returns the first non-loading state.
func settle(t *testing.T, ch <-chan State) State {
	t.Helper()

	for {
		st := nextState(t, ch)
		if !st.Loading {
			return st
		}
	}
}

var ana = &entity.Identity{UID: "uid-ana", Email: "ana@example.com", DisplayName: "Ana"}

func TestResolver_SignedOutIsSynchronous(t *testing.T) {
	fx := createTestResolver(t)

	fx.resolver.SetIdentity(context.Background(), nil)

	st := fx.resolver.State()
	assert.Nil(t, st.Identity)
	assert.Nil(t, st.Profile)
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
}

func TestResolver_FirstSignInCreatesClientProfile(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	fx.resolver.SetIdentity(ctx, ana)

	loading := nextState(t, fx.states)
	assert.True(t, loading.Loading)
	assert.Equal(t, ana, loading.Identity)
	assert.Nil(t, loading.Profile)

	st := settle(t, fx.states)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "uid-ana", st.Profile.ID)
	assert.Equal(t, entity.RoleClient, st.Profile.Role)
	assert.True(t, st.Profile.Active)
	assert.Equal(t, "Ana", st.Profile.Name)

	docs, err := fx.store.Query(ctx, repository.ProfilesQuery(""))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestEnsureProfile_IsIdempotent(t *testing.T) {
	store := memory.NewStore()
	profiles := docstore.NewProfileRepository(store, discardLogger())
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	p1, created, err := EnsureProfile(ctx, profiles, ana, first)
	require.NoError(t, err)
	assert.True(t, created)

	p2, created, err := EnsureProfile(ctx, profiles, ana, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)

	docs, err := store.Query(ctx, repository.ProfilesQuery(""))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	stored, err := profiles.FindByID(ctx, ana.UID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(second))
	assert.Equal(t, entity.RoleClient, stored.Role)
}

func TestEnsureProfile_ExistingProfileKeepsRole(t *testing.T) {
	profiles := mockRepo.NewMockProfileRepository(t)
	ctx := context.Background()
	now := time.Now()

	profiles.EXPECT().FindByID(ctx, ana.UID).Return(&entity.Profile{ID: ana.UID, Role: entity.RoleAdmin, Active: true}, nil)
	profiles.EXPECT().Touch(ctx, ana.UID, now).Return(nil)

	p, created, err := EnsureProfile(ctx, profiles, ana, now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entity.RoleAdmin, p.Role)
}

func TestResolver_ResolutionErrorDenies(t *testing.T) {
	profiles := mockRepo.NewMockProfileRepository(t)
	store := memory.NewStore()
	resolver := NewResolver(profiles, livequery.NewManager(store, discardLogger(), nil), discardLogger())
	defer resolver.Close()

	boom := errors.New("permission denied")
	profiles.EXPECT().FindByID(mock.Anything, ana.UID).Return(nil, boom)

	states := make(chan State, 16)
	resolver.Watch(func(st State) { states <- st })
	<-states

	resolver.SetIdentity(context.Background(), ana)
	st := settle(t, states)

	assert.Nil(t, st.Profile)
	assert.False(t, st.Loading)
	assert.ErrorIs(t, st.Err, boom)
	assert.Equal(t, ana, st.Identity)
	assert.Equal(t, access.Deny, access.Decide(st.Profile, "", st.Loading))
}

func TestResolver_LiveDeactivationDenies(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	decisions := make(chan access.Decision, 16)
	stop := access.Follow(fx.resolver, entity.RoleClient, func(d access.Decision) { decisions <- d })
	defer stop()
	assert.Equal(t, access.Deny, <-decisions) // signed out

	fx.resolver.SetIdentity(ctx, ana)
	assert.Equal(t, access.Pending, <-decisions)
	select {
	case d := <-decisions:
		assert.Equal(t, access.Admit, d)
	case <-time.After(waitFor):
		t.Fatal("never admitted")
	}

	inactive := false
	require.NoError(t, fx.profiles.Update(ctx, ana.UID, repository.ProfileUpdate{Active: &inactive}, time.Now()))

	select {
	case d := <-decisions:
		assert.Equal(t, access.Deny, d)
	case <-time.After(waitFor):
		t.Fatal("deactivation was not observed live")
	}
}

func TestResolver_DeletedProfileResolvesToNil(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	fx.resolver.SetIdentity(ctx, ana)
	require.NotNil(t, settle(t, fx.states).Profile)

	require.NoError(t, fx.store.Delete(ctx, entity.CollectionProfiles, ana.UID))

	st := nextState(t, fx.states)
	assert.Nil(t, st.Profile)
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
}

func TestResolver_SwitchingIdentityDoesNotBleed(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()
	bruno := &entity.Identity{UID: "uid-bruno", DisplayName: "Bruno"}

	fx.resolver.SetIdentity(ctx, ana)
	require.Equal(t, ana.UID, settle(t, fx.states).Profile.ID)

	fx.resolver.SetIdentity(ctx, bruno)
	st := settle(t, fx.states)
	require.NotNil(t, st.Profile)
	assert.Equal(t, bruno.UID, st.Profile.ID)

	// Changes to the previous identity's profile no longer reach the session.
	name := "Ana renamed"
	require.NoError(t, fx.profiles.Update(ctx, ana.UID, repository.ProfileUpdate{Name: &name}, time.Now()))

	select {
	case st := <-fx.states:
		assert.Equal(t, bruno.UID, st.Identity.UID)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, fx.store.Listeners())
}

func TestResolver_RapidSwitchKeepsLastIdentity(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		fx.resolver.SetIdentity(ctx, &entity.Identity{UID: "uid-" + string(rune('a'+i))})
	}
	fx.resolver.SetIdentity(ctx, ana)

	assert.Eventually(t, func() bool {
		st := fx.resolver.State()

		return !st.Loading && st.Profile != nil && st.Profile.ID == ana.UID
	}, waitFor, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return fx.store.Listeners() == 1 }, waitFor, 5*time.Millisecond)
}

func TestResolver_SignOutDetaches(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	fx.resolver.SetIdentity(ctx, ana)
	settle(t, fx.states)
	require.Equal(t, 1, fx.store.Listeners())

	fx.resolver.SetIdentity(ctx, nil)
	assert.Equal(t, State{}, nextState(t, fx.states))
	assert.Equal(t, 0, fx.store.Listeners())
}

func TestResolver_CloseDropsObservers(t *testing.T) {
	fx := createTestResolver(t)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	fx.resolver.Watch(func(State) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	fx.resolver.SetIdentity(ctx, ana)
	settle(t, fx.states)
	fx.resolver.Close()

	mu.Lock()
	before := calls
	mu.Unlock()

	fx.resolver.SetIdentity(ctx, nil)
	name := "after close"
	require.NoError(t, fx.profiles.Update(ctx, ana.UID, repository.ProfileUpdate{Name: &name}, time.Now()))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, before, calls)
	mu.Unlock()
	assert.Equal(t, 0, fx.store.Listeners())
}
