package memory

import (
	"context"
	"slices"
	"sync"

	"vigil-go/internal/domain"
)

// HighlightStore is an in-memory implementation of store.HighlightStore.
type HighlightStore struct {
	mu    sync.RWMutex
	marks map[string][]*domain.HighlightMark
}

// NewHighlightStore creates a new in-memory highlight store.
func NewHighlightStore() *HighlightStore {
	return &HighlightStore{
		marks: make(map[string][]*domain.HighlightMark),
	}
}

// Add stores a mark, replacing an earlier mark from the same alert.
func (s *HighlightStore) Add(ctx context.Context, mark *domain.HighlightMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *mark
	marks := s.marks[mark.RecordID]
	idx := slices.IndexFunc(marks, func(m *domain.HighlightMark) bool { return m.AlertID == mark.AlertID })
	if idx >= 0 {
		marks[idx] = &stored
		return nil
	}
	s.marks[mark.RecordID] = append(marks, &stored)
	return nil
}

// ListByRecord returns the marks attached to a record.
func (s *HighlightStore) ListByRecord(ctx context.Context, recordID string) ([]*domain.HighlightMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	marks := s.marks[recordID]
	results := make([]*domain.HighlightMark, 0, len(marks))
	for _, m := range marks {
		c := *m
		results = append(results, &c)
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (s *HighlightStore) Close() error {
	return nil
}
