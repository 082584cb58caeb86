// Package live serves the websocket live-sync endpoint. Each connection holds
// its own session resolver and a set of live query subscriptions that only
// exist while the role gate admits the session.
package live

import (
	"time"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"
)

// Client frame types.
const (
	FrameAuth        = "auth"
	FrameSignOut     = "signout"
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
)

// Server frame types.
const (
	FrameSession  = "session"
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// ClientFrame is any frame sent by the client.
type ClientFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"` // auth

	// subscribe / unsubscribe
	ID         string `json:"id,omitempty"`         // Client chosen subscription id
	Collection string `json:"collection,omitempty"` // A record collection, comments, notifications or profiles
	OwnerID    string `json:"ownerId,omitempty"`    // Admin filter on record collections
	Role       string `json:"role,omitempty"`       // Admin filter on profiles
	Parent     string `json:"parent,omitempty"`     // Record collection of a comment thread
	RecordID   string `json:"recordId,omitempty"`   // Record of a comment thread
}

// IdentityView is the public part of the signed-in identity.
type IdentityView struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SessionFrame reports every session transition.
type SessionFrame struct {
	Type     string          `json:"type"`
	Identity *IdentityView   `json:"identity"`
	Profile  *entity.Profile `json:"profile"`
	Loading  bool            `json:"loading"`
	Decision string          `json:"decision"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

// SnapshotFrame carries the complete current result set of a subscription.
type SnapshotFrame struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Items      []any     `json:"items"`
	ReadTime   time.Time `json:"readTime"`
}

// ErrorFrame reports a rejected frame or a failed subscription.
type ErrorFrame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	ErrorBody
}

// ErrorBody is a machine-readable code with a message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(err error) ErrorBody {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) && appErr.HTTPCode() < 500 {
		return ErrorBody{Code: appErr.ErrorCode(), Message: appErr.Message()}
	}

	return ErrorBody{Code: "SUBSCRIPTION_FAILED", Message: "The live query could not be served"}
}

func newErrorFrame(id string, err error) *ErrorFrame {
	return &ErrorFrame{Type: FrameError, ID: id, ErrorBody: errorBody(err)}
}

func newIdentityView(identity *entity.Identity) *IdentityView {
	if identity == nil {
		return nil
	}

	return &IdentityView{UID: identity.UID, Email: identity.Email, Name: identity.DisplayName}
}
