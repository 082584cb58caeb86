package docstore

import (
	"context"
	"log/slog"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

type profileRepository struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

// NewProfileRepository returns a ProfileRepository on the given document store.
func NewProfileRepository(store repository.DocumentStore, logger *slog.Logger) repository.ProfileRepository {
	return &profileRepository{store: store, logger: logger.With("repository", "profiles")}
}

// FindByID retrieves the profile keyed by an identity UID.
func (repo *profileRepository) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	doc, err := repo.store.Get(ctx, entity.CollectionProfiles, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, repository.ErrProfileNotFound
		}

		return nil, errors.Wrap(err, "failed to find profile by id")
	}

	return DecodeProfile(doc)
}

// Create writes the profile under its identity UID.
func (repo *profileRepository) Create(ctx context.Context, profile *entity.Profile) error {
	if err := repo.store.Set(ctx, entity.CollectionProfiles, profile.ID, encodeProfile(profile), repository.WriteReplace); err != nil {
		return errors.Wrap(err, "failed to create profile")
	}

	return nil
}

// Touch refreshes updatedAt on an existing profile.
func (repo *profileRepository) Touch(ctx context.Context, id string, now time.Time) error {
	data := map[string]any{entity.FieldUpdatedAt: now}
	if err := repo.store.Set(ctx, entity.CollectionProfiles, id, data, repository.WriteMerge); err != nil {
		return errors.Wrap(err, "failed to touch profile")
	}

	return nil
}

// Update merges the changed fields into an existing profile.
func (repo *profileRepository) Update(ctx context.Context, id string, update repository.ProfileUpdate, now time.Time) error {
	if _, err := repo.store.Get(ctx, entity.CollectionProfiles, id); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return repository.ErrProfileNotFound
		}

		return errors.Wrap(err, "failed to load profile for update")
	}

	if err := repo.store.Set(ctx, entity.CollectionProfiles, id, encodeProfileUpdate(update, now), repository.WriteMerge); err != nil {
		return errors.Wrap(err, "failed to update profile")
	}

	return nil
}

// List retrieves profiles ordered by name. Documents with unknown roles are skipped.
func (repo *profileRepository) List(ctx context.Context, role entity.Role) ([]*entity.Profile, error) {
	docs, err := repo.store.Query(ctx, repository.ProfilesQuery(role))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list profiles")
	}

	profiles := make([]*entity.Profile, 0, len(docs))
	for _, doc := range docs {
		p, err := DecodeProfile(doc)
		if err != nil {
			repo.logger.WarnContext(ctx, "skipping undecodable document", "id", doc.ID, "error", err)

			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}
