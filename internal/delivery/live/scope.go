package live

import (
	"context"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/domain/repository"
	"agency/internal/errors"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/livequery"
)

// target is a scoped live query with the decoder for its documents.
type target struct {
	query  repository.Query
	decode livequery.Decoder[any]
}

func decodeAs[T any](decode func(*repository.Document) (T, error)) livequery.Decoder[any] {
	return func(doc *repository.Document) (any, error) {
		return decode(doc)
	}
}

// scope turns a subscribe frame into a query the profile may follow. Clients
// are always pinned to their own uid; only admins may follow other owners and
// the profile list.
func scope(ctx context.Context, records repository.RecordRepository, profile *entity.Profile, f *ClientFrame) (*target, error) {
	if f.ID == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("subscription id is required")
	}

	switch c := entity.Collection(f.Collection); {
	case c == entity.CollectionNotifications:
		return &target{
			query:  repository.NotificationsQuery(profile.ID),
			decode: decodeAs(docstore.DecodeNotification),
		}, nil

	case c == entity.CollectionProfiles:
		if !profile.IsAdmin() {
			return nil, domainerrors.ErrForbidden
		}
		var role entity.Role
		if f.Role != "" {
			parsed, err := entity.ParseRole(f.Role)
			if err != nil {
				return nil, domainerrors.ErrValidationFailed.WithDetails(err.Error())
			}
			role = parsed
		}

		return &target{query: repository.ProfilesQuery(role), decode: decodeAs(docstore.DecodeProfile)}, nil

	case c == entity.CollectionComments:
		return commentsTarget(ctx, records, profile, f)

	case c.IsRecord():
		ownerID := f.OwnerID
		if !profile.IsAdmin() {
			if ownerID != "" && ownerID != profile.ID {
				return nil, domainerrors.ErrForbidden
			}
			ownerID = profile.ID
		}

		return &target{query: repository.RecordsQuery(c, ownerID), decode: decodeAs(docstore.RecordDecoder(c))}, nil

	default:
		return nil, domainerrors.ErrUnknownCollection
	}
}

func commentsTarget(ctx context.Context, records repository.RecordRepository, profile *entity.Profile, f *ClientFrame) (*target, error) {
	parent, err := entity.ParseRecordCollection(f.Parent)
	if err != nil {
		return nil, domainerrors.ErrUnknownCollection
	}
	if f.RecordID == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("recordId is required")
	}

	record, err := records.FindByID(ctx, parent, f.RecordID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, domainerrors.ErrRecordNotFound
		}

		return nil, domainerrors.NewStoreExecuteError(err, "read comment parent")
	}
	// Other clients' records are reported as missing.
	if !profile.CanAccessOwner(record.OwnerID) {
		return nil, domainerrors.ErrRecordNotFound
	}

	return &target{
		query:  repository.CommentsQuery(record.OwnerID, parent, record.ID),
		decode: decodeAs(docstore.DecodeComment),
	}, nil
}
