// Package domain contains the core entities of Vigil: activity records,
// alert definitions, trigger filters and the facts recorded while dispatching.
package domain

import (
	"errors"
	"time"
)

// Record is a single activity event produced by an external audit log.
// Vigil consumes records read-only and never mutates them.
type Record struct {
	// ID is the unique identifier assigned by the producer.
	ID string `json:"record_id"`

	// AuthorID identifies the user who performed the action.
	AuthorID string `json:"author_id"`

	// Connector is the subsystem that generated the record (e.g. "posts").
	Connector string `json:"connector"`

	// Context is the object type within the connector (e.g. "post", "page").
	Context string `json:"context"`

	// Action is what happened (e.g. "updated", "deleted").
	Action string `json:"action"`

	// Summary is an optional human readable description.
	Summary string `json:"summary,omitempty"`

	// CreatedAt is when the activity happened.
	CreatedAt time.Time `json:"created_at"`
}

// Validation errors for Record.
var (
	ErrEmptyRecordID  = errors.New("record_id is required")
	ErrEmptyConnector = errors.New("connector is required")
	ErrEmptyAction    = errors.New("action is required")
)

// Validate checks the fields the matching engine relies on.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecordID
	}
	if r.Connector == "" {
		return ErrEmptyConnector
	}
	if r.Action == "" {
		return ErrEmptyAction
	}
	return nil
}

// Field returns the record value for a filter dimension.
// The second return is false for dimensions a record does not carry.
func (r *Record) Field(dim Dimension) (string, bool) {
	switch dim {
	case DimensionAuthor:
		return r.AuthorID, true
	case DimensionConnector:
		return r.Connector, true
	case DimensionContext:
		return r.Context, true
	case DimensionAction:
		return r.Action, true
	default:
		return "", false
	}
}
