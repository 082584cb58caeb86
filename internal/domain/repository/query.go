package repository

import (
	"fmt"
	"strings"

	"agency/internal/domain/entity"
)

// Direction is the sort direction of an OrderBy constraint.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}

	return "asc"
}

// ConstraintKind distinguishes filter constraints from sort constraints.
type ConstraintKind int

const (
	ConstraintWhere ConstraintKind = iota
	ConstraintOrderBy
)

// Constraint is a single equality filter or sort clause of a Query.
type Constraint struct {
	Kind      ConstraintKind
	Field     string
	Value     any
	Direction Direction
}

// Where filters documents whose field equals value.
func Where(field string, value any) Constraint {
	return Constraint{Kind: ConstraintWhere, Field: field, Value: value}
}

// OrderBy sorts documents by field.
func OrderBy(field string, dir Direction) Constraint {
	return Constraint{Kind: ConstraintOrderBy, Field: field, Direction: dir}
}

// Query is a filtered, ordered collection query.
type Query struct {
	Collection  entity.Collection
	Constraints []Constraint
	Limit       int
}

// NewQuery builds a query over collection with the given constraints, in order.
func NewQuery(collection entity.Collection, constraints ...Constraint) Query {
	return Query{Collection: collection, Constraints: constraints}
}

// WithLimit returns a copy of q returning at most n documents.
func (q Query) WithLimit(n int) Query {
	q.Constraints = append([]Constraint(nil), q.Constraints...)
	q.Limit = n

	return q
}

// Filters returns the equality constraints of q.
func (q Query) Filters() []Constraint {
	return q.collect(ConstraintWhere)
}

// Orders returns the sort constraints of q.
func (q Query) Orders() []Constraint {
	return q.collect(ConstraintOrderBy)
}

func (q Query) collect(kind ConstraintKind) []Constraint {
	out := make([]Constraint, 0, len(q.Constraints))
	for _, c := range q.Constraints {
		if c.Kind == kind {
			out = append(out, c)
		}
	}

	return out
}

// FilterValue returns the value of the equality filter on field, if any.
func (q Query) FilterValue(field string) (any, bool) {
	for _, c := range q.Constraints {
		if c.Kind == ConstraintWhere && c.Field == field {
			return c.Value, true
		}
	}

	return nil, false
}

// Key identifies the constraint set. Two queries with the same key select the same documents in the same order.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(q.Collection.String())
	for _, c := range q.Constraints {
		switch c.Kind {
		case ConstraintWhere:
			fmt.Fprintf(&b, "|where:%s=%v", c.Field, c.Value)
		case ConstraintOrderBy:
			fmt.Fprintf(&b, "|order:%s:%s", c.Field, c.Direction)
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, "|limit:%d", q.Limit)
	}

	return b.String()
}

// RecordsQuery lists records of a collection newest first, scoped to ownerID unless it is empty.
func RecordsQuery(collection entity.Collection, ownerID string) Query {
	constraints := make([]Constraint, 0, 2)
	if ownerID != "" {
		constraints = append(constraints, Where(entity.FieldOwner, ownerID))
	}
	constraints = append(constraints, OrderBy(entity.FieldCreatedAt, Desc))

	return NewQuery(collection, constraints...)
}

// CommentsQuery lists the comments of a record oldest first.
func CommentsQuery(ownerID string, parent entity.Collection, parentID string) Query {
	return NewQuery(entity.CollectionComments,
		Where(entity.FieldOwner, ownerID),
		Where("parentCollection", parent.String()),
		Where(entity.FieldParentID, parentID),
		OrderBy(entity.FieldCreatedAt, Asc),
	)
}

// NotificationsQuery lists the notifications addressed to recipientID newest first.
func NotificationsQuery(recipientID string) Query {
	return NewQuery(entity.CollectionNotifications,
		Where(entity.FieldRecipient, recipientID),
		OrderBy(entity.FieldCreatedAt, Desc),
	)
}

// ProfilesQuery lists profiles, optionally only those with role.
func ProfilesQuery(role entity.Role) Query {
	if role == "" {
		return NewQuery(entity.CollectionProfiles, OrderBy("name", Asc))
	}

	return NewQuery(entity.CollectionProfiles, Where("role", role.String()), OrderBy("name", Asc))
}
