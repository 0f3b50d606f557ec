// Package store defines interfaces for data persistence.
// These abstractions allow swapping implementations (Redis, PostgreSQL, in-memory)
// without changing business logic.
package store

import (
	"context"

	"vigil-go/internal/domain"
)

// DedupTracker persists dedup markers keyed by (alert ID, record ID).
// All methods must be safe for concurrent use.
type DedupTracker interface {
	// AlreadyFired reports whether a marker exists for the pair.
	AlreadyFired(ctx context.Context, alertID, recordID string) (bool, error)

	// MarkFired atomically creates the marker if absent. It returns true only
	// for the caller that created it; every other caller gets false. This is
	// the per-pair mutual exclusion the dispatcher relies on.
	MarkFired(ctx context.Context, marker *domain.DedupMarker) (bool, error)

	// SetOutcome records the result of the attempt on an existing marker.
	SetOutcome(ctx context.Context, alertID, recordID string, outcome domain.Outcome) error

	// ListByRecord returns every marker written for a record.
	ListByRecord(ctx context.Context, recordID string) ([]*domain.DedupMarker, error)

	// Close releases any resources held by the tracker.
	Close() error
}

// HighlightStore keeps the highlight marks notifiers attach to records.
type HighlightStore interface {
	// Add stores a mark, replacing any earlier mark from the same alert.
	Add(ctx context.Context, mark *domain.HighlightMark) error

	// ListByRecord returns the marks attached to a record.
	ListByRecord(ctx context.Context, recordID string) ([]*domain.HighlightMark, error)

	// Close releases any resources held by the store.
	Close() error
}
