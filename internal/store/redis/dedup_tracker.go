package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
)

// DedupTracker implements store.DedupTracker using Redis.
// Each marker is a JSON string under fired:<alertID>:<recordID>, and a set
// under fired:record:<recordID> indexes the alerts that fired for a record.
type DedupTracker struct {
	client *redis.Client
}

// NewDedupTracker creates a new Redis-backed dedup tracker.
func NewDedupTracker(client *redis.Client) *DedupTracker {
	return &DedupTracker{client: client}
}

func markerKey(alertID, recordID string) string {
	return fmt.Sprintf("%s%s:%s", prefixFired, alertID, recordID)
}

func recordIndexKey(recordID string) string {
	return prefixFiredRecord + recordID
}

// AlreadyFired reports whether a marker exists for the pair.
func (t *DedupTracker) AlreadyFired(ctx context.Context, alertID, recordID string) (exists bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "dedup_exists", start, err) }()

	n, err := t.client.Exists(ctx, markerKey(alertID, recordID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup marker: %w", err)
	}

	return n > 0, nil
}

// MarkFired claims the pair with SETNX. The index set is updated in the same
// transaction so a claimed marker is always listed for its record.
func (t *DedupTracker) MarkFired(ctx context.Context, marker *domain.DedupMarker) (created bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "dedup_mark", start, err) }()

	data, err := json.Marshal(marker)
	if err != nil {
		return false, fmt.Errorf("failed to marshal dedup marker: %w", err)
	}

	var setCmd *redis.BoolCmd
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setCmd = pipe.SetNX(ctx, markerKey(marker.AlertID, marker.RecordID), data, 0)
		pipe.SAdd(ctx, recordIndexKey(marker.RecordID), marker.AlertID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to set dedup marker: %w", err)
	}

	return setCmd.Val(), nil
}

// SetOutcome rewrites the stored marker with the attempt's outcome.
// Only the claiming caller updates a marker, so a read-modify-write is enough.
func (t *DedupTracker) SetOutcome(ctx context.Context, alertID, recordID string, outcome domain.Outcome) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "dedup_set_outcome", start, err) }()

	key := markerKey(alertID, recordID)

	data, err := t.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrMarkerNotFound
		}
		return fmt.Errorf("failed to get dedup marker: %w", err)
	}

	var marker domain.DedupMarker
	if err = json.Unmarshal(data, &marker); err != nil {
		return fmt.Errorf("failed to unmarshal dedup marker: %w", err)
	}

	marker.Outcome = outcome
	marker.UpdatedAt = time.Now().UTC()

	data, err = json.Marshal(&marker)
	if err != nil {
		return fmt.Errorf("failed to marshal dedup marker: %w", err)
	}

	if err = t.client.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update dedup marker: %w", err)
	}

	return nil
}

// ListByRecord returns every marker written for a record, oldest first.
func (t *DedupTracker) ListByRecord(ctx context.Context, recordID string) (markers []*domain.DedupMarker, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "dedup_list", start, err) }()

	alertIDs, err := t.client.SMembers(ctx, recordIndexKey(recordID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list fired alerts: %w", err)
	}

	markers = []*domain.DedupMarker{}
	if len(alertIDs) == 0 {
		return markers, nil
	}

	keys := make([]string, len(alertIDs))
	for i, alertID := range alertIDs {
		keys[i] = markerKey(alertID, recordID)
	}

	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get dedup markers: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var marker domain.DedupMarker
		if err = json.Unmarshal([]byte(raw), &marker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dedup marker: %w", err)
		}
		markers = append(markers, &marker)
	}

	slices.SortFunc(markers, func(a, b *domain.DedupMarker) int {
		if c := a.FiredAt.Compare(b.FiredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.AlertID, b.AlertID)
	})

	return markers, nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (t *DedupTracker) Close() error {
	return nil
}
