package memory

import (
	"context"
	"sync"
	"time"

	"vigil-go/internal/domain"
)

// pairKey identifies one (alert, record) pair.
type pairKey struct {
	alertID  string
	recordID string
}

// DedupTracker is an in-memory implementation of store.DedupTracker.
// A single mutex makes MarkFired an atomic check-and-set.
type DedupTracker struct {
	mu       sync.Mutex
	markers  map[pairKey]*domain.DedupMarker
	byRecord map[string][]pairKey
}

// NewDedupTracker creates a new in-memory dedup tracker.
func NewDedupTracker() *DedupTracker {
	return &DedupTracker{
		markers:  make(map[pairKey]*domain.DedupMarker),
		byRecord: make(map[string][]pairKey),
	}
}

// AlreadyFired reports whether a marker exists for the pair.
func (t *DedupTracker) AlreadyFired(ctx context.Context, alertID, recordID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.markers[pairKey{alertID, recordID}]
	return exists, nil
}

// MarkFired creates the marker if absent and reports whether this call created it.
func (t *DedupTracker) MarkFired(ctx context.Context, marker *domain.DedupMarker) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{marker.AlertID, marker.RecordID}
	if _, exists := t.markers[key]; exists {
		return false, nil
	}

	stored := *marker
	t.markers[key] = &stored
	t.byRecord[marker.RecordID] = append(t.byRecord[marker.RecordID], key)
	return true, nil
}

// SetOutcome records the result of the attempt.
func (t *DedupTracker) SetOutcome(ctx context.Context, alertID, recordID string, outcome domain.Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	marker, exists := t.markers[pairKey{alertID, recordID}]
	if !exists {
		return domain.ErrMarkerNotFound
	}
	marker.Outcome = outcome
	marker.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByRecord returns the markers written for a record in creation order.
func (t *DedupTracker) ListByRecord(ctx context.Context, recordID string) ([]*domain.DedupMarker, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := t.byRecord[recordID]
	results := make([]*domain.DedupMarker, 0, len(keys))
	for _, key := range keys {
		m := *t.markers[key]
		results = append(results, &m)
	}
	return results, nil
}

// Len returns the number of stored markers. Useful for tests.
func (t *DedupTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.markers)
}

// Close is a no-op for the in-memory tracker.
func (t *DedupTracker) Close() error {
	return nil
}
