// Package session resolves the authenticated identity of a live session into
// its profile and keeps that profile current while the session lasts.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/livequery"
)

// State is the resolved session as observers see it.
type State struct {
	Identity *entity.Identity
	Profile  *entity.Profile
	Loading  bool
	Err      error
}

// Resolver tracks one session. It is created per connection or per test and
// torn down with Close; nothing about it is process-global.
//
// Observers are called one at a time, in transition order. They must not call
// SetIdentity, Watch or Close synchronously.
type Resolver struct {
	profiles repository.ProfileRepository
	live     *livequery.Manager
	logger   *slog.Logger
	now      func() time.Time

	// notifyMu serialises state transitions with their delivery.
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	generation   uint64
	cancel       context.CancelFunc
	profileSub   *livequery.Subscription
	observers    map[uint64]func(State)
	nextObserver uint64
	closed       bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the clock used for profile timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a signed-out Resolver.
func NewResolver(profiles repository.ProfileRepository, live *livequery.Manager, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		profiles:  profiles,
		live:      live,
		logger:    logger.With("component", "session_resolver"),
		now:       time.Now,
		observers: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// State returns the current session state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// SetIdentity reacts to a sign-in state change. A nil identity signs the
// session out at once. Otherwise the session enters the loading state and the
// profile is ensured and followed in the background. Any previous resolution is
// detached first and its late results are discarded.
func (r *Resolver) SetIdentity(ctx context.Context, identity *entity.Identity) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return
	}
	r.generation++
	gen := r.generation
	prevCancel, prevSub := r.cancel, r.profileSub
	r.cancel, r.profileSub = nil, nil

	var resolveCtx context.Context
	if identity != nil {
		resolveCtx, r.cancel = context.WithCancel(ctx)
	}
	r.mu.Unlock()

	if prevSub != nil {
		prevSub.Close()
	}
	if prevCancel != nil {
		prevCancel()
	}

	if identity == nil {
		r.transition(gen, func(st *State) {
			*st = State{}
		})

		return
	}

	r.transition(gen, func(st *State) {
		*st = State{Identity: identity, Loading: true}
	})

	go r.resolve(resolveCtx, gen, identity)
}

func (r *Resolver) resolve(ctx context.Context, gen uint64, identity *entity.Identity) {
	logger := r.logger.With("uid", identity.UID)

	_, created, err := EnsureProfile(ctx, r.profiles, identity, r.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.ErrorContext(ctx, "profile resolution failed", "error", err)
		r.transition(gen, func(st *State) {
			*st = State{Identity: identity, Err: err}
		})

		return
	}
	if created {
		logger.InfoContext(ctx, "profile created on first sign-in")
	}

	sub := r.live.SubscribeDocument(ctx, entity.CollectionProfiles, identity.UID, func(ls livequery.State) {
		r.onProfileSnapshot(gen, identity, ls)
	})

	r.mu.Lock()
	if gen != r.generation || r.closed {
		r.mu.Unlock()
		sub.Close()

		return
	}
	r.profileSub = sub
	r.mu.Unlock()
}

func (r *Resolver) onProfileSnapshot(gen uint64, identity *entity.Identity, ls livequery.State) {
	next := State{Identity: identity}

	switch {
	case ls.Err != nil:
		r.logger.Error("profile subscription failed", "uid", identity.UID, "error", ls.Err)
		next.Err = ls.Err
	case len(ls.Documents) == 0:
		// Deleted profile: the session stays signed in without a profile.
	default:
		profile, err := docstore.DecodeProfile(ls.Documents[0])
		if err != nil {
			r.logger.Warn("undecodable profile", "uid", identity.UID, "error", err)
			next.Err = err
		} else {
			next.Profile = profile
		}
	}

	r.transition(gen, func(st *State) {
		*st = next
	})
}

// transition applies mutate when gen is still current and delivers the result.
func (r *Resolver) transition(gen uint64, mutate func(*State)) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if gen != r.generation || r.closed {
		r.mu.Unlock()

		return
	}
	mutate(&r.state)
	st := r.state
	observers := make([]func(State), 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}

// Watch registers fn for every state transition and calls it with the current
// state immediately. The returned function unregisters it.
func (r *Resolver) Watch(fn func(State)) (stop func()) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = fn
	st := r.state
	r.mu.Unlock()

	fn(st)

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// WatchProfile adapts Watch for the role gate.
func (r *Resolver) WatchProfile(fn func(profile *entity.Profile, loading bool)) (stop func()) {
	return r.Watch(func(st State) {
		fn(st.Profile, st.Loading)
	})
}

// Close detaches the profile subscription and drops every observer.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return
	}
	r.closed = true
	r.generation++
	cancel, sub := r.cancel, r.profileSub
	r.cancel, r.profileSub = nil, nil
	r.observers = make(map[uint64]func(State))
	r.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// EnsureProfile returns the profile of identity, creating the default client
// profile on first sign-in and refreshing updatedAt otherwise. The read and
// the write are separate calls, so two first sign-ins racing each other may
// both create; the second write wins.
func EnsureProfile(ctx context.Context, profiles repository.ProfileRepository, identity *entity.Identity, now time.Time) (*entity.Profile, bool, error) {
	existing, err := profiles.FindByID(ctx, identity.UID)
	switch {
	case err == nil:
		if err := profiles.Touch(ctx, identity.UID, now); err != nil {
			return nil, false, errors.Wrap(err, "failed to refresh profile")
		}
		existing.UpdatedAt = now

		return existing, false, nil
	case errors.Is(err, repository.ErrProfileNotFound):
		profile := entity.NewProfile(identity, now)
		if err := profiles.Create(ctx, profile); err != nil {
			return nil, false, errors.Wrap(err, "failed to create profile")
		}

		return profile, true, nil
	default:
		return nil, false, errors.Wrap(err, "failed to read profile")
	}
}
