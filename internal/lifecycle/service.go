// Package lifecycle provides the create, enable/disable and delete
// operations over alert definitions that the administrative UI calls.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/store"
	"vigil-go/internal/trigger"
)

// Service manages alert definitions.
type Service struct {
	repo      store.AlertRepository
	triggers  *trigger.Registry
	notifiers *notifier.Registry
	logger    *slog.Logger
}

// NewService creates a new lifecycle service.
func NewService(
	repo store.AlertRepository,
	triggers *trigger.Registry,
	notifiers *notifier.Registry,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		triggers:  triggers,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Create stores a new enabled alert definition.
//
// Trigger and notification kinds are not required to resolve: authoring and
// plugin activation are decoupled, so an unknown kind is accepted and the
// alert stays inert until the kind is registered. A warning is logged.
func (s *Service) Create(ctx context.Context, req *domain.CreateAlertRequest) (*domain.Alert, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	alert := req.ToAlert(uuid.New().String())

	if _, ok := s.triggers.Resolve(alert.TriggerKind); !ok {
		s.logger.Warn("alert references unregistered trigger kind",
			"alertID", alert.ID,
			"triggerKind", alert.TriggerKind,
		)
	}
	if _, ok := s.notifiers.Resolve(alert.NotificationKind); !ok {
		s.logger.Warn("alert references unregistered notification kind",
			"alertID", alert.ID,
			"notifierKind", alert.NotificationKind,
		)
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.logger.Info("alert created",
		"alertID", alert.ID,
		"authorID", alert.AuthorID,
		"triggerKind", alert.TriggerKind,
		"notifierKind", alert.NotificationKind,
	)

	return alert, nil
}

// SetStatus enables or disables an alert definition.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	alert, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert status changed", "alertID", id, "status", status)
	return alert, nil
}

// Delete removes an alert definition. Dedup markers written for it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("alert deleted", "alertID", id)
	return nil
}

// Get returns a single alert definition.
func (s *Service) Get(ctx context.Context, id string) (*domain.Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns alert definitions matching filter.
func (s *Service) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	return s.repo.List(ctx, filter)
}

// Inert reports whether the alert's trigger or notification kind does not
// currently resolve.
func (s *Service) Inert(alert *domain.Alert) bool {
	_, triggerOK := s.triggers.Resolve(alert.TriggerKind)
	_, notifierOK := s.notifiers.Resolve(alert.NotificationKind)
	return !triggerOK || !notifierOK
}
