package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/errors"
	"agency/internal/usecase"
)

// recordService implements the RecordUsecase interface.
type recordService struct {
	records  repository.RecordRepository
	profiles repository.ProfileRepository
	notifier usecase.NotificationUsecase
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecordService is the constructor for recordService.
func NewRecordService(
	records repository.RecordRepository,
	profiles repository.ProfileRepository,
	notifier usecase.NotificationUsecase,
	logger *slog.Logger,
) usecase.RecordUsecase {
	return &recordService{
		records:  records,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Create opens a record. Client-created records always start in the collection's initial status.
func (srv *recordService) Create(ctx context.Context, actor *entity.Profile, collection entity.Collection, input *usecase.CreateRecordInput) (*entity.Record, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	ownerID := strings.TrimSpace(input.OwnerID)
	status := collection.InitialStatus()

	if actor.IsAdmin() {
		if ownerID == "" {
			return nil, domainerrors.ErrValidationFailed.WithDetails("ownerId is required")
		}
		owner, err := srv.profiles.FindByID(ctx, ownerID)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return nil, domainerrors.ErrProfileNotFound
			}

			return nil, storeError(err, "read owner profile")
		}
		if owner.Role != entity.RoleClient {
			return nil, domainerrors.ErrValidationFailed.WithDetails("records belong to client profiles")
		}
		if input.Status != "" {
			parsed, err := entity.ParseStatus(collection, input.Status)
			if err != nil {
				return nil, errors.Wrap(domainerrors.ErrInvalidStatus, err.Error())
			}
			status = parsed
		}
	} else {
		if !collection.ClientCreatable() {
			return nil, domainerrors.ErrForbidden
		}
		if ownerID != "" && ownerID != actor.ID {
			return nil, domainerrors.ErrForbidden
		}
		ownerID = actor.ID
	}

	now := srv.now()
	record := &entity.Record{
		Collection: collection,
		OwnerID:    ownerID,
		Title:      strings.TrimSpace(input.Title),
		Status:     status,
		Fields:     input.Fields,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := srv.records.Create(ctx, record); err != nil {
		return nil, storeError(err, "create record")
	}

	srv.logger.InfoContext(ctx, "Record created",
		"collection", collection.String(),
		"record_id", record.ID,
		"owner_id", ownerID,
	)

	if actor.IsAdmin() {
		srv.notify(ctx, record, []string{ownerID})
	}

	return record, nil
}

// Get returns a record visible to the actor. Records of other clients look missing.
func (srv *recordService) Get(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string) (*entity.Record, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	record, err := findVisibleRecord(ctx, srv.records, actor, collection, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		if owner, err := srv.profiles.FindByID(ctx, record.OwnerID); err == nil {
			record.OwnerName = owner.Name
		}
	}

	return record, nil
}

// List returns the records the actor may see, newest first.
func (srv *recordService) List(ctx context.Context, actor *entity.Profile, collection entity.Collection, ownerID string) ([]*entity.Record, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		if ownerID != "" && ownerID != actor.ID {
			return nil, domainerrors.ErrForbidden
		}
		ownerID = actor.ID
	}

	records, err := srv.records.List(ctx, collection, ownerID)
	if err != nil {
		return nil, storeError(err, "list records")
	}

	if actor.IsAdmin() && len(records) > 0 {
		profiles, err := srv.profiles.List(ctx, "")
		if err != nil {
			return nil, storeError(err, "list profiles")
		}
		entity.JoinOwners(records, entity.IndexProfiles(profiles))
	}

	return records, nil
}

// Update merges the given fields into a record.
func (srv *recordService) Update(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string, input *usecase.UpdateRecordInput) (*entity.Record, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := requireRecordCollection(collection); err != nil {
		return nil, err
	}

	update := repository.RecordUpdate{Fields: input.Fields}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, domainerrors.ErrValidationFailed.WithDetails("title cannot be empty")
		}
		update.Title = &title
	}
	if input.Status != nil {
		status, err := entity.ParseStatus(collection, *input.Status)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrInvalidStatus, err.Error())
		}
		update.Status = &status
	}

	if err := srv.records.Update(ctx, collection, id, update); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, domainerrors.ErrRecordNotFound
		}

		return nil, storeError(err, "update record")
	}

	return findVisibleRecord(ctx, srv.records, actor, collection, id)
}

// Delete hard-deletes a record.
func (srv *recordService) Delete(ctx context.Context, actor *entity.Profile, collection entity.Collection, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := requireRecordCollection(collection); err != nil {
		return err
	}

	if _, err := findVisibleRecord(ctx, srv.records, actor, collection, id); err != nil {
		return err
	}
	if err := srv.records.Delete(ctx, collection, id); err != nil {
		return storeError(err, "delete record")
	}

	srv.logger.InfoContext(ctx, "Record deleted", "collection", collection.String(), "record_id", id, "by", actor.ID)

	return nil
}

func (srv *recordService) notify(ctx context.Context, record *entity.Record, recipients []string) {
	err := srv.notifier.Notify(ctx, &usecase.NotifyInput{
		Type:             entity.NotificationRecord,
		Title:            "New " + strings.ReplaceAll(record.Collection.String(), "_", " "),
		Message:          record.Title,
		ParentCollection: record.Collection,
		ParentID:         record.ID,
		RecipientIDs:     recipients,
	})
	if err != nil {
		srv.logger.WarnContext(ctx, "Record notification failed", "record_id", record.ID, "error", err)
	}
}

// findVisibleRecord loads a record and hides it from actors who may not see it.
func findVisibleRecord(ctx context.Context, records repository.RecordRepository, actor *entity.Profile, collection entity.Collection, id string) (*entity.Record, error) {
	record, err := records.FindByID(ctx, collection, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, domainerrors.ErrRecordNotFound
		}

		return nil, storeError(err, "read record")
	}
	if !actor.CanAccessOwner(record.OwnerID) {
		return nil, domainerrors.ErrRecordNotFound
	}

	return record, nil
}
