// Package livequery keeps in-memory views synchronised with live queries on the document store.
//
// Each Subscription owns one backend listener and one delivering goroutine, so the
// snapshots of a subscription reach its listener one at a time and in commit order.
// A snapshot is always a complete ordered result set, never a diff. Backend errors
// end the subscription; nothing is retried.
package livequery

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

// State is what a consumer of a live query sees.
type State struct {
	Documents []*repository.Document
	Loading   bool
	Err       error
	ReadTime  time.Time
}

// Listener receives every state transition of a subscription.
type Listener func(State)

// Manager opens live query subscriptions on a document store.
type Manager struct {
	store   repository.DocumentStore
	logger  *slog.Logger
	metrics *Metrics
}

// NewManager creates a Manager. metrics may be nil.
func NewManager(store repository.DocumentStore, logger *slog.Logger, metrics *Metrics) *Manager {
	return &Manager{
		store:   store,
		logger:  logger.With("component", "livequery"),
		metrics: metrics,
	}
}

// Subscribe opens a live query. The subscription starts in the loading state;
// listener is called for every snapshot and at most once with an error.
func (m *Manager) Subscribe(ctx context.Context, q repository.Query, listener Listener) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	return m.start(ctx, cancel, q, m.store.Watch(ctx, q), listener)
}

// SubscribeDocument opens a live listener on one document. A missing document
// produces a snapshot with no documents.
func (m *Manager) SubscribeDocument(ctx context.Context, collection entity.Collection, id string, listener Listener) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	q := repository.NewQuery(collection, repository.Where("__name__", id))

	return m.start(ctx, cancel, q, m.store.WatchDocument(ctx, collection, id), listener)
}

func (m *Manager) start(ctx context.Context, cancel context.CancelFunc, q repository.Query, it repository.SnapshotIterator, listener Listener) *Subscription {
	s := &Subscription{
		query:    q,
		it:       it,
		cancel:   cancel,
		listener: listener,
		logger:   m.logger.With("query", q.Key()),
		metrics:  m.metrics,
		state:    State{Loading: true},
		done:     make(chan struct{}),
	}

	m.metrics.opened()
	go s.run(ctx)

	return s
}

// Subscription is one open live query.
type Subscription struct {
	query    repository.Query
	it       repository.SnapshotIterator
	cancel   context.CancelFunc
	listener Listener
	logger   *slog.Logger
	metrics  *Metrics

	mu    sync.Mutex
	state State

	// deliverMu is held while the listener runs.
	deliverMu sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Query returns the query the subscription was opened with.
func (s *Subscription) Query() repository.Query {
	return s.query
}

// State returns a copy of the latest applied state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Documents = slices.Clone(st.Documents)

	return st
}

// Done is closed once the delivering goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscription and waits for an in-flight listener call to
// return, so once Close returns the listener is neither running nor called
// again. It may be called more than once. A listener closing its own
// subscription must use Cancel instead, Close would wait on itself.
func (s *Subscription) Close() {
	s.Cancel()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
}

// Cancel detaches the subscription without waiting for a listener call in
// progress. No listener call starts after Cancel returns.
func (s *Subscription) Cancel() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.it.Stop()
	})
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.metrics.closed()
	defer s.cancel()

	collection := s.query.Collection.String()
	for {
		snap, err := s.it.Next()
		if err != nil {
			if s.closed.Load() || errors.IsAny(err, repository.ErrIteratorStopped, context.Canceled, context.DeadlineExceeded) {
				s.logger.DebugContext(ctx, "live query detached")

				return
			}

			s.logger.Error("live query failed", "collection", collection, "error", err)
			s.metrics.failed(collection)
			s.apply(State{Err: err})
			s.it.Stop()

			return
		}

		s.metrics.snapshot(collection)
		s.apply(State{Documents: snap.Documents, ReadTime: snap.ReadTime})
	}
}

func (s *Subscription) apply(st State) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.closed.Load() || s.listener == nil {
		return
	}

	s.listener(State{
		Documents: slices.Clone(st.Documents),
		Err:       st.Err,
		ReadTime:  st.ReadTime,
	})
}
