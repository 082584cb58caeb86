// Package firestore implements the document store on Cloud Firestore.
package firestore

import (
	"context"
	"log/slog"
	"sync"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store is a repository.DocumentStore backed by a Firestore client.
type Store struct {
	client *firestore.Client
	logger *slog.Logger
}

var _ repository.DocumentStore = (*Store)(nil)

// NewStore wraps an initialised Firestore client.
func NewStore(client *firestore.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger.With("component", "firestore_store")}
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, collection entity.Collection, id string) (*repository.Document, error) {
	snap, err := s.client.Collection(collection.String()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrDocumentNotFound
		}

		return nil, errors.Wrapf(err, "get %s/%s", collection, id)
	}

	return toDocument(snap), nil
}

// Create inserts a document under an auto-generated id.
func (s *Store) Create(ctx context.Context, collection entity.Collection, data map[string]any) (string, error) {
	ref := s.client.Collection(collection.String()).NewDoc()
	if _, err := ref.Create(ctx, toFirestoreData(data)); err != nil {
		return "", errors.Wrapf(err, "create in %s", collection)
	}

	return ref.ID, nil
}

// Set writes a document with merge or replace semantics.
func (s *Store) Set(ctx context.Context, collection entity.Collection, id string, data map[string]any, mode repository.WriteMode) error {
	ref := s.client.Collection(collection.String()).Doc(id)

	var err error
	if mode == repository.WriteMerge {
		_, err = ref.Set(ctx, toFirestoreData(data), firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, toFirestoreData(data))
	}
	if err != nil {
		return errors.Wrapf(err, "set %s/%s", collection, id)
	}

	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection entity.Collection, id string) error {
	if _, err := s.client.Collection(collection.String()).Doc(id).Delete(ctx); err != nil {
		return errors.Wrapf(err, "delete %s/%s", collection, id)
	}

	return nil
}

// Query runs a one-shot query.
func (s *Store) Query(ctx context.Context, q repository.Query) ([]*repository.Document, error) {
	snaps, err := s.buildQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", q.Key())
	}

	docs := make([]*repository.Document, len(snaps))
	for i, snap := range snaps {
		docs[i] = toDocument(snap)
	}

	return docs, nil
}

// Watch opens a live query listener.
func (s *Store) Watch(ctx context.Context, q repository.Query) repository.SnapshotIterator {
	ctx, cancel := context.WithCancel(ctx)
	it := s.buildQuery(q).Snapshots(ctx)
	s.logger.DebugContext(ctx, "listener opened", "query", q.Key())

	return &iteratorAdapter{
		cancel: cancel,
		next: func() (*repository.Snapshot, error) {
			qs, err := it.Next()
			if err != nil {
				return nil, err
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				return nil, err
			}
			docs := make([]*repository.Document, len(snaps))
			for i, snap := range snaps {
				docs[i] = toDocument(snap)
			}

			return &repository.Snapshot{Documents: docs, ReadTime: qs.ReadTime}, nil
		},
		release: it.Stop,
	}
}

// WatchDocument opens a live listener on one document. A missing document
// yields an empty snapshot instead of an error.
func (s *Store) WatchDocument(ctx context.Context, collection entity.Collection, id string) repository.SnapshotIterator {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection.String()).Doc(id).Snapshots(ctx)
	s.logger.DebugContext(ctx, "document listener opened", "collection", collection, "id", id)

	return &iteratorAdapter{
		cancel: cancel,
		next: func() (*repository.Snapshot, error) {
			snap, err := it.Next()
			if err != nil {
				return nil, err
			}
			out := &repository.Snapshot{ReadTime: snap.ReadTime}
			if snap.Exists() {
				out.Documents = []*repository.Document{toDocument(snap)}
			}

			return out, nil
		},
		release: it.Stop,
	}
}

func (s *Store) buildQuery(q repository.Query) firestore.Query {
	fq := s.client.Collection(q.Collection.String()).Query
	for _, c := range q.Constraints {
		switch c.Kind {
		case repository.ConstraintWhere:
			fq = fq.Where(c.Field, "==", c.Value)
		case repository.ConstraintOrderBy:
			dir := firestore.Asc
			if c.Direction == repository.Desc {
				dir = firestore.Desc
			}
			fq = fq.OrderBy(c.Field, dir)
		}
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	return fq
}

// iteratorAdapter maps Firestore snapshot iterators onto repository.SnapshotIterator.
// The Firestore iterators must not be stopped while Next is running, so Stop
// cancels the listener context and Next releases the iterator once it returns.
type iteratorAdapter struct {
	cancel  context.CancelFunc
	next    func() (*repository.Snapshot, error)
	release func()

	mu      sync.Mutex
	stopped bool
	once    sync.Once
}

func (a *iteratorAdapter) Next() (*repository.Snapshot, error) {
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		a.once.Do(a.release)

		return nil, repository.ErrIteratorStopped
	}

	snap, err := a.next()
	if err == nil {
		return snap, nil
	}

	a.once.Do(a.release)

	a.mu.Lock()
	stopped = a.stopped
	a.mu.Unlock()
	if stopped || errors.Is(err, iterator.Done) {
		return nil, repository.ErrIteratorStopped
	}
	if status.Code(err) == codes.Canceled {
		return nil, context.Canceled
	}

	return nil, errors.Wrap(err, "firestore listener")
}

func (a *iteratorAdapter) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	a.cancel()
}

func toDocument(snap *firestore.DocumentSnapshot) *repository.Document {
	return &repository.Document{
		ID:         snap.Ref.ID,
		Data:       snap.Data(),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

// toFirestoreData swaps the domain server-timestamp sentinel for Firestore's own.
func toFirestoreData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = toFirestoreData(tv)
		default:
			if v == repository.ServerTimestamp {
				out[k] = firestore.ServerTimestamp
			} else {
				out[k] = v
			}
		}
	}

	return out
}
