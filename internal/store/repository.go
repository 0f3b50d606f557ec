package store

import (
	"context"

	"vigil-go/internal/domain"
)

// AlertRepository defines the interface for alert definition persistence.
// This is typically backed by PostgreSQL for production use.
type AlertRepository interface {
	// Create stores a new alert definition.
	Create(ctx context.Context, alert *domain.Alert) error

	// UpdateStatus switches an alert on or off and returns the updated definition.
	// Trigger and notification fields are immutable, so status is the only
	// mutable column.
	UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error)

	// Delete removes an alert definition by ID.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves an alert definition by its ID.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)

	// List retrieves alert definitions matching the filter criteria.
	List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error)

	// ListEnabled returns a fresh snapshot of every enabled alert definition.
	ListEnabled(ctx context.Context) ([]*domain.Alert, error)
}
