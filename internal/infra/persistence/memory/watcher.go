package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agency/internal/domain/repository"
)

// watcher is the SnapshotIterator of one live listener. The store publishes
// into it while holding its own lock, so queued snapshots are in commit order.
type watcher struct {
	store *Store
	query repository.Query
	eval  func() []*repository.Document
	ctx   context.Context

	mu        sync.Mutex
	queue     []*repository.Snapshot
	signature string
	published bool
	err       error
	stopped   bool
	signal    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func newWatcher(ctx context.Context, store *Store, q repository.Query, eval func() []*repository.Document) *watcher {
	return &watcher{
		store:  store,
		query:  q,
		eval:   eval,
		ctx:    ctx,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// publish queues docs unless they are identical to the last published result.
func (w *watcher) publish(docs []*repository.Document, readTime time.Time) {
	sig := signature(docs)

	w.mu.Lock()
	if w.stopped || w.err != nil || (w.published && sig == w.signature) {
		w.mu.Unlock()

		return
	}
	w.published = true
	w.signature = sig
	w.queue = append(w.queue, &repository.Snapshot{Documents: docs, ReadTime: readTime})
	w.mu.Unlock()

	w.wake()
}

func (w *watcher) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()

	w.wake()
}

func (w *watcher) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Next returns the next queued snapshot. Queued snapshots are drained before a failure is reported.
func (w *watcher) Next() (*repository.Snapshot, error) {
	for {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()

			return nil, repository.ErrIteratorStopped
		}
		if len(w.queue) > 0 {
			snap := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.mu.Unlock()

			return snap, nil
		}
		if w.err != nil {
			err := w.err
			w.mu.Unlock()

			return nil, err
		}
		w.mu.Unlock()

		select {
		case <-w.signal:
		case <-w.done:
		case <-w.ctx.Done():
			w.Stop()

			return nil, w.ctx.Err()
		}
	}
}

// Stop detaches the listener. Pending and future Next calls return ErrIteratorStopped.
func (w *watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.queue = nil
		w.mu.Unlock()

		close(w.done)
		w.store.removeWatcher(w)
	})
}

func (w *watcher) awaitCancel() {
	select {
	case <-w.ctx.Done():
		w.Stop()
	case <-w.done:
	}
}

func signature(docs []*repository.Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s=%v;", d.ID, d.Data)
	}

	return b.String()
}
