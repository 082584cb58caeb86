// Package docstore maps domain entities onto documents of a repository.DocumentStore
// and implements the domain repositories on top of it.
package docstore

import (
	"context"
	"time"

	"agency/internal/domain/entity"
	"agency/internal/domain/repository"
	"agency/internal/errors"
)

// Stored field names not shared across collections.
const (
	fieldRole             = "role"
	fieldActive           = "active"
	fieldEmail            = "email"
	fieldName             = "name"
	fieldAvatar           = "avatar"
	fieldCompany          = "company"
	fieldPhone            = "phone"
	fieldPushTokens       = "pushTokens"
	fieldTitle            = "title"
	fieldFields           = "fields"
	fieldParentCollection = "parentCollection"
	fieldAuthorID         = "authorId"
	fieldAuthorRole       = "authorRole"
	fieldText             = "text"
	fieldType             = "type"
	fieldMessage          = "message"
)

// DecodeProfile maps a profile document onto a Profile, rejecting unknown roles.
func DecodeProfile(doc *repository.Document) (*entity.Profile, error) {
	role, err := entity.ParseRole(str(doc.Data, fieldRole))
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", doc.ID)
	}

	return &entity.Profile{
		ID:         doc.ID,
		Role:       role,
		Active:     boolean(doc.Data, fieldActive),
		Email:      str(doc.Data, fieldEmail),
		Name:       str(doc.Data, fieldName),
		Avatar:     str(doc.Data, fieldAvatar),
		Company:    str(doc.Data, fieldCompany),
		Phone:      str(doc.Data, fieldPhone),
		PushTokens: stringList(doc.Data, fieldPushTokens),
		CreatedAt:  timestamp(doc.Data, entity.FieldCreatedAt, doc.CreateTime),
		UpdatedAt:  timestamp(doc.Data, entity.FieldUpdatedAt, doc.UpdateTime),
	}, nil
}

func encodeProfile(p *entity.Profile) map[string]any {
	return map[string]any{
		fieldRole:              p.Role.String(),
		fieldActive:            p.Active,
		fieldEmail:             p.Email,
		fieldName:              p.Name,
		fieldAvatar:            p.Avatar,
		fieldCompany:           p.Company,
		fieldPhone:             p.Phone,
		fieldPushTokens:        anySlice(p.PushTokens),
		entity.FieldCreatedAt: repository.ServerTimestamp,
		entity.FieldUpdatedAt: repository.ServerTimestamp,
	}
}

func encodeProfileUpdate(u repository.ProfileUpdate, now time.Time) map[string]any {
	data := map[string]any{entity.FieldUpdatedAt: now}
	if u.Role != nil {
		data[fieldRole] = u.Role.String()
	}
	if u.Active != nil {
		data[fieldActive] = *u.Active
	}
	if u.Name != nil {
		data[fieldName] = *u.Name
	}
	if u.Company != nil {
		data[fieldCompany] = *u.Company
	}
	if u.Phone != nil {
		data[fieldPhone] = *u.Phone
	}
	if u.PushTokens != nil {
		data[fieldPushTokens] = anySlice(u.PushTokens)
	}

	return data
}

// DecodeRecord maps a domain-record document onto a Record, rejecting statuses
// outside the collection's closed set.
func DecodeRecord(collection entity.Collection, doc *repository.Document) (*entity.Record, error) {
	status, err := entity.ParseStatus(collection, str(doc.Data, entity.FieldStatus))
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", collection, doc.ID)
	}

	fields, _ := doc.Data[fieldFields].(map[string]any)

	return &entity.Record{
		ID:         doc.ID,
		Collection: collection,
		OwnerID:    str(doc.Data, entity.FieldOwner),
		Title:      str(doc.Data, fieldTitle),
		Status:     status,
		Fields:     fields,
		CreatedAt:  timestamp(doc.Data, entity.FieldCreatedAt, doc.CreateTime),
		UpdatedAt:  timestamp(doc.Data, entity.FieldUpdatedAt, doc.UpdateTime),
	}, nil
}

// RecordDecoder returns a decoder bound to one collection, for live queries.
func RecordDecoder(collection entity.Collection) func(*repository.Document) (*entity.Record, error) {
	return func(doc *repository.Document) (*entity.Record, error) {
		return DecodeRecord(collection, doc)
	}
}

func encodeRecord(r *entity.Record) map[string]any {
	data := map[string]any{
		entity.FieldOwner:     r.OwnerID,
		fieldTitle:            r.Title,
		entity.FieldStatus:    r.Status.String(),
		entity.FieldCreatedAt: repository.ServerTimestamp,
		entity.FieldUpdatedAt: repository.ServerTimestamp,
	}
	if len(r.Fields) > 0 {
		data[fieldFields] = r.Fields
	}

	return data
}

func encodeRecordUpdate(u repository.RecordUpdate) map[string]any {
	data := map[string]any{entity.FieldUpdatedAt: repository.ServerTimestamp}
	if u.Title != nil {
		data[fieldTitle] = *u.Title
	}
	if u.Status != nil {
		data[entity.FieldStatus] = u.Status.String()
	}
	if len(u.Fields) > 0 {
		data[fieldFields] = u.Fields
	}

	return data
}

// DecodeComment maps a comment document onto a Comment.
func DecodeComment(doc *repository.Document) (*entity.Comment, error) {
	parent, err := entity.ParseRecordCollection(str(doc.Data, fieldParentCollection))
	if err != nil {
		return nil, errors.Wrapf(err, "comment %s", doc.ID)
	}
	role, err := entity.ParseRole(str(doc.Data, fieldAuthorRole))
	if err != nil {
		return nil, errors.Wrapf(err, "comment %s", doc.ID)
	}

	return &entity.Comment{
		ID:               doc.ID,
		OwnerID:          str(doc.Data, entity.FieldOwner),
		ParentCollection: parent,
		ParentID:         str(doc.Data, entity.FieldParentID),
		AuthorID:         str(doc.Data, fieldAuthorID),
		AuthorRole:       role,
		Text:             str(doc.Data, fieldText),
		CreatedAt:        timestamp(doc.Data, entity.FieldCreatedAt, doc.CreateTime),
	}, nil
}

func encodeComment(c *entity.Comment) map[string]any {
	return map[string]any{
		entity.FieldOwner:     c.OwnerID,
		fieldParentCollection: c.ParentCollection.String(),
		entity.FieldParentID:  c.ParentID,
		fieldAuthorID:         c.AuthorID,
		fieldAuthorRole:       c.AuthorRole.String(),
		fieldText:             c.Text,
		entity.FieldCreatedAt: repository.ServerTimestamp,
	}
}

// DecodeNotification maps a notification document onto a Notification.
func DecodeNotification(doc *repository.Document) (*entity.Notification, error) {
	typ, err := entity.ParseNotificationType(str(doc.Data, fieldType))
	if err != nil {
		return nil, errors.Wrapf(err, "notification %s", doc.ID)
	}

	return &entity.Notification{
		ID:               doc.ID,
		RecipientID:      str(doc.Data, entity.FieldRecipient),
		Type:             typ,
		Title:            str(doc.Data, fieldTitle),
		Message:          str(doc.Data, fieldMessage),
		ParentCollection: entity.Collection(str(doc.Data, fieldParentCollection)),
		ParentID:         str(doc.Data, entity.FieldParentID),
		Read:             boolean(doc.Data, entity.FieldRead),
		CreatedAt:        timestamp(doc.Data, entity.FieldCreatedAt, doc.CreateTime),
	}, nil
}

func encodeNotification(n *entity.Notification) map[string]any {
	return map[string]any{
		entity.FieldRecipient: n.RecipientID,
		fieldType:             string(n.Type),
		fieldTitle:            n.Title,
		fieldMessage:          n.Message,
		fieldParentCollection: n.ParentCollection.String(),
		entity.FieldParentID:  n.ParentID,
		entity.FieldRead:      n.Read,
		entity.FieldCreatedAt: repository.ServerTimestamp,
	}
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)

	return s
}

func boolean(data map[string]any, key string) bool {
	b, _ := data[key].(bool)

	return b
}

// timestamp reads a time field, falling back to the document metadata while a
// server timestamp is still pending.
func timestamp(data map[string]any, key string, fallback time.Time) time.Time {
	if t, ok := data[key].(time.Time); ok {
		return t
	}

	return fallback
}

// storedCreateTime reads back the creation time the store assigned to a new document.
func storedCreateTime(ctx context.Context, store repository.DocumentStore, collection entity.Collection, id string) (time.Time, error) {
	doc, err := store.Get(ctx, collection, id)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to read back %s %s", collection, id)
	}

	return timestamp(doc.Data, entity.FieldCreatedAt, doc.CreateTime), nil
}

func stringList(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}
