// Package persistence selects the document store backend and provides the repositories built on it.
package persistence

import (
	"log/slog"

	"agency/config"
	"agency/internal/domain/repository"
	"agency/internal/errors"
	firebaseinfra "agency/internal/infra/firebase"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/infra/persistence/firestore"
	"agency/internal/infra/persistence/memory"

	"go.uber.org/fx"
)

// StoreParams holds dependencies for the document store, injected by Fx
type StoreParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Firebase *firebaseinfra.AppProvider
}

// NewDocumentStore returns the configured document store.
func NewDocumentStore(params StoreParams) (repository.DocumentStore, error) {
	provider := config.StoreProviderMemory
	if params.Config.Store != nil && params.Config.Store.Provider != "" {
		provider = params.Config.Store.Provider
	}

	switch provider {
	case config.StoreProviderMemory:
		params.Logger.Warn("Using in-memory document store, data is lost on restart")

		return memory.NewStore(), nil

	case config.StoreProviderFirestore:
		client, err := params.Firebase.Firestore()
		if err != nil {
			return nil, err
		}
		params.Logger.Info("Using Firestore document store")

		return firestore.NewStore(client, params.Logger), nil

	default:
		return nil, errors.Errorf("unknown store provider: %s", provider)
	}
}

// Module provides the document store and every repository on top of it
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewDocumentStore,
		docstore.NewProfileRepository,
		docstore.NewRecordRepository,
		docstore.NewCommentRepository,
		docstore.NewNotificationRepository,
	),
)
