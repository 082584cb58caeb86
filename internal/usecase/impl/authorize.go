// Package impl contains the application-specific business rules implementations.
package impl

import (
	"agency/internal/access"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"
)

// requireActive admits any active profile.
func requireActive(actor *entity.Profile) error {
	return access.Authorize(actor, "")
}

// requireAdmin admits active admins only.
func requireAdmin(actor *entity.Profile) error {
	return access.Authorize(actor, entity.RoleAdmin)
}

// requireRecordCollection rejects collections that do not hold domain records.
func requireRecordCollection(collection entity.Collection) error {
	if !collection.IsRecord() {
		return errors.Wrap(domainerrors.ErrUnknownCollection, collection.String())
	}

	return nil
}

// storeError marks err as a failed document store call unless it already is an AppError.
func storeError(err error, details string) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	return domainerrors.NewStoreExecuteError(err, details)
}
