package entity

import "slices"

// Status is the lifecycle state of a domain record. Each record collection has its own closed set.
type Status string

// Campaign statuses.
const (
	StatusCampaignDraft    Status = "draft"
	StatusCampaignActive   Status = "active"
	StatusCampaignPaused   Status = "paused"
	StatusCampaignFinished Status = "finished"
)

// Design request statuses.
const (
	StatusDesignPending    Status = "pending"
	StatusDesignInProgress Status = "in_progress"
	StatusDesignInReview   Status = "in_review"
	StatusDesignApproved   Status = "approved"
	StatusDesignDelivered  Status = "delivered"
)

// Lead statuses.
const (
	StatusLeadNew       Status = "new"
	StatusLeadContacted Status = "contacted"
	StatusLeadQualified Status = "qualified"
	StatusLeadConverted Status = "converted"
	StatusLeadLost      Status = "lost"
)

// Calendar event statuses.
const (
	StatusEventScheduled Status = "scheduled"
	StatusEventDone      Status = "done"
	StatusEventCancelled Status = "cancelled"
)

// File statuses.
const (
	StatusFileAvailable Status = "available"
	StatusFileArchived  Status = "archived"
)

// Insight statuses.
const (
	StatusInsightDraft     Status = "draft"
	StatusInsightPublished Status = "published"
)

// Idea statuses.
const (
	StatusIdeaProposed    Status = "proposed"
	StatusIdeaApproved    Status = "approved"
	StatusIdeaRejected    Status = "rejected"
	StatusIdeaImplemented Status = "implemented"
)

// Transaction statuses.
const (
	StatusTransactionPending   Status = "pending"
	StatusTransactionPaid      Status = "paid"
	StatusTransactionOverdue   Status = "overdue"
	StatusTransactionCancelled Status = "cancelled"
)

// Integration statuses.
const (
	StatusIntegrationConnected    Status = "connected"
	StatusIntegrationDisconnected Status = "disconnected"
	StatusIntegrationError        Status = "error"
)

// recordStatuses holds the allowed statuses per record collection. The first entry is the initial status.
var recordStatuses = map[Collection][]Status{
	CollectionCampaigns:      {StatusCampaignDraft, StatusCampaignActive, StatusCampaignPaused, StatusCampaignFinished},
	CollectionDesignRequests: {StatusDesignPending, StatusDesignInProgress, StatusDesignInReview, StatusDesignApproved, StatusDesignDelivered},
	CollectionLeads:          {StatusLeadNew, StatusLeadContacted, StatusLeadQualified, StatusLeadConverted, StatusLeadLost},
	CollectionCalendarEvents: {StatusEventScheduled, StatusEventDone, StatusEventCancelled},
	CollectionFiles:          {StatusFileAvailable, StatusFileArchived},
	CollectionInsights:       {StatusInsightDraft, StatusInsightPublished},
	CollectionIdeas:          {StatusIdeaProposed, StatusIdeaApproved, StatusIdeaRejected, StatusIdeaImplemented},
	CollectionTransactions:   {StatusTransactionPending, StatusTransactionPaid, StatusTransactionOverdue, StatusTransactionCancelled},
	CollectionIntegrations:   {StatusIntegrationConnected, StatusIntegrationDisconnected, StatusIntegrationError},
}

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Statuses returns the allowed statuses for a record collection.
func (c Collection) Statuses() []Status {
	return slices.Clone(recordStatuses[c])
}

// InitialStatus returns the status a new record of c starts in.
func (c Collection) InitialStatus() Status {
	statuses := recordStatuses[c]
	if len(statuses) == 0 {
		return ""
	}

	return statuses[0]
}

// ParseStatus converts a stored value into a Status valid for c.
func ParseStatus(c Collection, s string) (Status, error) {
	status := Status(s)
	if !slices.Contains(recordStatuses[c], status) {
		return "", &UnknownValueError{Field: string(c) + "." + FieldStatus, Value: s}
	}

	return status, nil
}
