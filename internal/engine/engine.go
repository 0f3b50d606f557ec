// Package engine decides which enabled alert definitions an activity record
// satisfies.
package engine

import (
	"iter"
	"log/slog"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
	"vigil-go/internal/trigger"
)

// Engine evaluates records against alert definitions. It holds no state
// between records and is safe for concurrent use.
type Engine struct {
	triggers *trigger.Registry
	logger   *slog.Logger
}

// New creates a matching engine over the given trigger registry.
func New(triggers *trigger.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		triggers: triggers,
		logger:   logger,
	}
}

// Matches lazily yields the alerts rec satisfies, in the order of alerts.
//
// Disabled alerts never match. An alert whose trigger kind does not resolve
// is inert and skipped. A trigger error, such as a filter the kind does not
// understand, counts as no match for that alert only.
func (e *Engine) Matches(rec *domain.Record, alerts []*domain.Alert) iter.Seq[*domain.Alert] {
	return func(yield func(*domain.Alert) bool) {
		for _, alert := range alerts {
			if !e.match(alert, rec) {
				continue
			}
			if !yield(alert) {
				return
			}
		}
	}
}

// FindMatches returns every alert rec satisfies.
func (e *Engine) FindMatches(rec *domain.Record, alerts []*domain.Alert) []*domain.Alert {
	matches := []*domain.Alert{}
	for alert := range e.Matches(rec, alerts) {
		matches = append(matches, alert)
	}
	return matches
}

func (e *Engine) match(alert *domain.Alert, rec *domain.Record) bool {
	if alert == nil || !alert.IsEnabled() {
		return false
	}

	t, ok := e.triggers.Resolve(alert.TriggerKind)
	if !ok {
		metrics.InertAlertsTotal.WithLabelValues(alert.TriggerKind).Inc()
		e.logger.Debug("skipping inert alert",
			"alertID", alert.ID,
			"triggerKind", alert.TriggerKind,
		)
		return false
	}

	matched, err := t.Matches(alert.TriggerFilters, rec)
	if err != nil {
		metrics.MatchErrorsTotal.WithLabelValues(alert.TriggerKind).Inc()
		e.logger.Warn("trigger evaluation failed",
			"alertID", alert.ID,
			"recordID", rec.ID,
			"triggerKind", alert.TriggerKind,
			"error", err,
		)
		return false
	}

	if matched {
		metrics.AlertMatchesTotal.WithLabelValues(alert.TriggerKind).Inc()
	}
	return matched
}
