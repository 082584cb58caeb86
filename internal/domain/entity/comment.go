package entity

import "time"

// Comment is an immutable message attached to a domain record.
type Comment struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"ownerId"` // uid_cliente of the parent record.
	ParentCollection Collection `json:"parentCollection"`
	ParentID         string     `json:"parentId"`
	AuthorID         string     `json:"authorId"`
	AuthorRole       Role       `json:"authorRole"`
	Text             string     `json:"text"`
	CreatedAt        time.Time  `json:"createdAt"`
}
