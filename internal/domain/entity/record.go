package entity

import "time"

// Record is a flat domain document owned by exactly one client identity:
// a campaign, design request, lead, calendar event, file, insight, idea,
// transaction or integration. Kind-specific attributes live in Fields.
type Record struct {
	ID         string         `json:"id"`
	Collection Collection     `json:"collection"`
	OwnerID    string         `json:"ownerId"`             // uid_cliente
	OwnerName  string         `json:"ownerName,omitempty"` // Filled by admin listings through a ProfileIndex.
	Title      string         `json:"title"`
	Status     Status         `json:"status"`
	Fields     map[string]any `json:"fields,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// JoinOwners fills OwnerName on every record from the index.
func JoinOwners(records []*Record, index ProfileIndex) {
	for _, r := range records {
		r.OwnerName = index.Name(r.OwnerID)
	}
}
