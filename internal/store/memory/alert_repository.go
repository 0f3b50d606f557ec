// Package memory provides in-memory implementations of store interfaces.
// These are useful for testing and development without external dependencies.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"vigil-go/internal/domain"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
// Definitions are copied on the way in and out so callers never share state.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]*domain.Alert
}

// NewAlertRepository creates a new in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[string]*domain.Alert),
	}
}

// Create stores a new alert definition.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = alert.Clone()
	return nil
}

// UpdateStatus switches an alert on or off.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, domain.ErrAlertNotFound
	}

	alert.SetStatus(status)
	return alert.Clone(), nil
}

// Delete removes an alert definition by ID.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[id]; !exists {
		return domain.ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

// GetByID retrieves an alert definition by its ID.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, domain.ErrAlertNotFound
	}
	return alert.Clone(), nil
}

// List retrieves alert definitions matching the filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	r.mu.RLock()
	results := make([]*domain.Alert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		if filter.Matches(alert) {
			results = append(results, alert.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(results, func(a, b *domain.Alert) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	start := min(filter.Offset, len(results))
	end := len(results)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return results[start:end], nil
}

// ListEnabled returns every enabled alert definition.
func (r *AlertRepository) ListEnabled(ctx context.Context) ([]*domain.Alert, error) {
	return r.List(ctx, domain.AlertFilter{Status: domain.AlertStatusEnabled})
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *AlertRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = make(map[string]*domain.Alert)
}

