package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
)

// HighlightStore implements store.HighlightStore using one hash per record,
// keyed by alert ID so a later mark from the same alert replaces the earlier one.
type HighlightStore struct {
	client *redis.Client
}

// NewHighlightStore creates a new Redis-backed highlight store.
func NewHighlightStore(client *redis.Client) *HighlightStore {
	return &HighlightStore{client: client}
}

// Add stores a highlight mark.
func (s *HighlightStore) Add(ctx context.Context, mark *domain.HighlightMark) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "highlight_add", start, err) }()

	data, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("failed to marshal highlight: %w", err)
	}

	if err = s.client.HSet(ctx, prefixHighlight+mark.RecordID, mark.AlertID, data).Err(); err != nil {
		return fmt.Errorf("failed to store highlight: %w", err)
	}

	return nil
}

// ListByRecord returns the marks attached to a record, oldest first.
func (s *HighlightStore) ListByRecord(ctx context.Context, recordID string) (marks []*domain.HighlightMark, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("redis", "highlight_list", start, err) }()

	entries, err := s.client.HGetAll(ctx, prefixHighlight+recordID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}

	marks = make([]*domain.HighlightMark, 0, len(entries))
	for _, raw := range entries {
		var mark domain.HighlightMark
		if err = json.Unmarshal([]byte(raw), &mark); err != nil {
			return nil, fmt.Errorf("failed to unmarshal highlight: %w", err)
		}
		marks = append(marks, &mark)
	}

	slices.SortFunc(marks, func(a, b *domain.HighlightMark) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.AlertID, b.AlertID)
	})

	return marks, nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (s *HighlightStore) Close() error {
	return nil
}
