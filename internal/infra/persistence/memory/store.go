// Package memory implements an in-process document store with live listeners.
// It backs local development and behavioural tests with the same snapshot
// semantics the hosted store provides: every commit produces, for each
// affected listener, one complete ordered result set, delivered in commit order.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"

	"github.com/google/uuid"
)

type storedDoc struct {
	id         string
	seq        uint64 // insertion order, the natural order of unsorted queries
	version    uint64 // bumped on every write
	data       map[string]any
	createTime time.Time
	updateTime time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the commit clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a repository.DocumentStore kept in memory.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	seq         uint64
	collections map[entity.Collection]map[string]*storedDoc
	watchers    map[*watcher]struct{}
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		collections: make(map[entity.Collection]map[string]*storedDoc),
		watchers:    make(map[*watcher]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, collection entity.Collection, id string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}

	return doc.export(), nil
}

// Create inserts a document under a fresh id.
func (s *Store) Create(ctx context.Context, collection entity.Collection, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	s.docs(collection)[id] = &storedDoc{
		id:         id,
		seq:        s.seq,
		version:    1,
		data:       resolveTimestamps(cloneMap(data), now),
		createTime: now,
		updateTime: now,
	}
	s.notifyLocked(collection, now)

	return id, nil
}

// Set writes a document, creating it when it does not exist.
func (s *Store) Set(ctx context.Context, collection entity.Collection, id string, data map[string]any, mode repository.WriteMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	incoming := resolveTimestamps(cloneMap(data), now)
	docs := s.docs(collection)

	doc, ok := docs[id]
	if !ok {
		s.seq++
		docs[id] = &storedDoc{id: id, seq: s.seq, version: 1, data: incoming, createTime: now, updateTime: now}
		s.notifyLocked(collection, now)

		return nil
	}

	if mode == repository.WriteMerge {
		mergeInto(doc.data, incoming)
	} else {
		doc.data = incoming
	}
	doc.version++
	doc.updateTime = now
	s.notifyLocked(collection, now)

	return nil
}

// Delete removes a document. Listeners are only notified when something was removed.
func (s *Store) Delete(ctx context.Context, collection entity.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	s.notifyLocked(collection, s.now())

	return nil
}

// Query runs a one-shot query.
func (s *Store) Query(ctx context.Context, q repository.Query) ([]*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.evaluateLocked(q), nil
}

// Watch opens a live query. The first snapshot is the current result set.
func (s *Store) Watch(ctx context.Context, q repository.Query) repository.SnapshotIterator {
	return s.watch(ctx, q, func() []*repository.Document {
		return s.evaluateLocked(q)
	})
}

// WatchDocument opens a live listener on a single document.
func (s *Store) WatchDocument(ctx context.Context, collection entity.Collection, id string) repository.SnapshotIterator {
	q := repository.NewQuery(collection, repository.Where(documentIDField, id))

	return s.watch(ctx, q, func() []*repository.Document {
		doc, ok := s.collections[collection][id]
		if !ok {
			return nil
		}

		return []*repository.Document{doc.export()}
	})
}

// FailWatch terminates every listener whose query key matches q with err.
// It simulates a backend failure such as a permission or index error.
func (s *Store) FailWatch(q repository.Query, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Key()
	for w := range s.watchers {
		if w.query.Key() == key {
			w.fail(err)
			delete(s.watchers, w)
		}
	}
}

// Listeners returns the number of open live listeners.
func (s *Store) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.watchers)
}

// documentIDField only appears in the keys of single-document listeners.
const documentIDField = "__name__"

func (s *Store) watch(ctx context.Context, q repository.Query, eval func() []*repository.Document) *watcher {
	w := newWatcher(ctx, s, q, eval)

	s.mu.Lock()
	if ctx.Err() == nil {
		s.watchers[w] = struct{}{}
		w.publish(eval(), s.now())
	}
	s.mu.Unlock()

	go w.awaitCancel()

	return w
}

func (s *Store) removeWatcher(w *watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

func (s *Store) notifyLocked(collection entity.Collection, now time.Time) {
	for w := range s.watchers {
		if w.query.Collection != collection {
			continue
		}
		w.publish(w.eval(), now)
	}
}

func (s *Store) docs(collection entity.Collection) map[string]*storedDoc {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*storedDoc)
		s.collections[collection] = docs
	}

	return docs
}

func (s *Store) evaluateLocked(q repository.Query) []*repository.Document {
	filters := q.Filters()
	orders := q.Orders()

	matched := make([]*storedDoc, 0)
	for _, doc := range s.collections[q.Collection] {
		if doc.matches(filters) && doc.hasFields(orders) {
			matched = append(matched, doc)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].seq < matched[j].seq
	})
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range orders {
			c := compareValues(matched[i].data[o.Field], matched[j].data[o.Field])
			if c == 0 {
				continue
			}
			if o.Direction == repository.Desc {
				return c > 0
			}

			return c < 0
		}

		return false
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*repository.Document, len(matched))
	for i, doc := range matched {
		out[i] = doc.export()
	}

	return out
}

func (d *storedDoc) matches(filters []repository.Constraint) bool {
	for _, f := range filters {
		v, ok := d.data[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}

	return true
}

// hasFields mirrors the hosted store, which leaves out documents missing an ordered field.
func (d *storedDoc) hasFields(orders []repository.Constraint) bool {
	for _, o := range orders {
		if _, ok := d.data[o.Field]; !ok {
			return false
		}
	}

	return true
}

func (d *storedDoc) export() *repository.Document {
	return &repository.Document{
		ID:         d.id,
		Data:       cloneMap(d.data),
		CreateTime: d.createTime,
		UpdateTime: d.updateTime,
	}
}

func resolveTimestamps(data map[string]any, now time.Time) map[string]any {
	for k, v := range data {
		switch tv := v.(type) {
		case map[string]any:
			data[k] = resolveTimestamps(tv, now)
		default:
			if v == repository.ServerTimestamp {
				data[k] = now
			}
		}
	}

	return data
}

// mergeInto applies src onto dst. Nested maps merge key by key, other values replace.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v

			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			dst[k] = sub

			continue
		}
		mergeInto(existing, sub)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	out := maps.Clone(m)
	for k, v := range out {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = cloneMap(tv)
		case []any:
			out[k] = append([]any(nil), tv...)
		case []string:
			out[k] = append([]string(nil), tv...)
		}
	}

	return out
}
