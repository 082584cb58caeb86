package docstore

import (
	"context"
	"log/slog"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

type recordRepository struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

// NewRecordRepository returns a RecordRepository on the given document store.
func NewRecordRepository(store repository.DocumentStore, logger *slog.Logger) repository.RecordRepository {
	return &recordRepository{store: store, logger: logger.With("repository", "records")}
}

// FindByID retrieves one record of a collection.
func (repo *recordRepository) FindByID(ctx context.Context, collection entity.Collection, id string) (*entity.Record, error) {
	doc, err := repo.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, repository.ErrRecordNotFound
		}

		return nil, errors.Wrapf(err, "failed to find %s record", collection)
	}

	return DecodeRecord(collection, doc)
}

// Create inserts a record with a store-assigned id and creation timestamp.
func (repo *recordRepository) Create(ctx context.Context, record *entity.Record) error {
	id, err := repo.store.Create(ctx, record.Collection, encodeRecord(record))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s record", record.Collection)
	}
	record.ID = id

	created, err := storedCreateTime(ctx, repo.store, record.Collection, id)
	if err != nil {
		repo.logger.WarnContext(ctx, "could not read back created record", "id", id, "error", err)

		return nil
	}
	record.CreatedAt, record.UpdatedAt = created, created

	return nil
}

// Update merges the changed fields into an existing record.
func (repo *recordRepository) Update(ctx context.Context, collection entity.Collection, id string, update repository.RecordUpdate) error {
	if _, err := repo.store.Get(ctx, collection, id); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return repository.ErrRecordNotFound
		}

		return errors.Wrapf(err, "failed to load %s record for update", collection)
	}

	if err := repo.store.Set(ctx, collection, id, encodeRecordUpdate(update), repository.WriteMerge); err != nil {
		return errors.Wrapf(err, "failed to update %s record", collection)
	}

	return nil
}

// Delete hard-deletes a record without touching its comments or notifications.
func (repo *recordRepository) Delete(ctx context.Context, collection entity.Collection, id string) error {
	if err := repo.store.Delete(ctx, collection, id); err != nil {
		return errors.Wrapf(err, "failed to delete %s record", collection)
	}

	return nil
}

// List retrieves records newest first. Records with an unknown status are logged and skipped.
func (repo *recordRepository) List(ctx context.Context, collection entity.Collection, ownerID string) ([]*entity.Record, error) {
	docs, err := repo.store.Query(ctx, repository.RecordsQuery(collection, ownerID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s records", collection)
	}

	records := make([]*entity.Record, 0, len(docs))
	for _, doc := range docs {
		r, err := DecodeRecord(collection, doc)
		if err != nil {
			repo.logger.WarnContext(ctx, "skipping undecodable document", "id", doc.ID, "error", err)

			continue
		}
		records = append(records, r)
	}

	return records, nil
}
