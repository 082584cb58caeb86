package entity

// Collection names a document collection in the store.
type Collection string

// Document collections.
const (
	CollectionProfiles       Collection = "profiles"
	CollectionCampaigns      Collection = "campaigns"
	CollectionDesignRequests Collection = "design_requests"
	CollectionLeads          Collection = "leads"
	CollectionCalendarEvents Collection = "calendar_events"
	CollectionFiles          Collection = "files"
	CollectionInsights       Collection = "insights"
	CollectionIdeas          Collection = "ideas"
	CollectionTransactions   Collection = "transactions"
	CollectionIntegrations   Collection = "integrations"
	CollectionComments       Collection = "comments"
	CollectionNotifications  Collection = "notifications"
)

// Stored field names shared across collections.
const (
	FieldOwner     = "uid_cliente"
	FieldRecipient = "uid_destinatario"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldStatus    = "status"
	FieldRead      = "read"
	FieldParentID  = "parentId"
)

// RecordCollections lists every collection holding owner-scoped domain records.
var RecordCollections = []Collection{
	CollectionCampaigns,
	CollectionDesignRequests,
	CollectionLeads,
	CollectionCalendarEvents,
	CollectionFiles,
	CollectionInsights,
	CollectionIdeas,
	CollectionTransactions,
	CollectionIntegrations,
}

// String returns the collection name.
func (c Collection) String() string {
	return string(c)
}

// IsRecord reports whether c holds domain records.
func (c Collection) IsRecord() bool {
	_, ok := recordStatuses[c]

	return ok
}

// OwnerField returns the foreign key naming the identity a document belongs to.
func (c Collection) OwnerField() string {
	if c == CollectionNotifications {
		return FieldRecipient
	}

	return FieldOwner
}

// ClientCreatable reports whether clients may open records in c for themselves.
func (c Collection) ClientCreatable() bool {
	return c == CollectionDesignRequests || c == CollectionIdeas
}

// ParseRecordCollection converts a path or stored value into a record collection.
func ParseRecordCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.IsRecord() {
		return "", &UnknownValueError{Field: "collection", Value: s}
	}

	return c, nil
}
