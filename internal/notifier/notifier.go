// Package notifier provides the pluggable channels that deliver a
// notification once a record matches an alert definition.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vigil-go/internal/domain"
	"vigil-go/internal/registry"
)

// ErrMissingConfig is returned when an alert's notification config lacks a
// value the notifier needs.
var ErrMissingConfig = errors.New("notification config value is required")

// Notifier delivers one notification for a matched (alert, record) pair.
// Implementations must honour ctx cancellation; the dispatcher enforces a
// deadline and treats an expired one as a failed attempt.
type Notifier interface {
	registry.Capability

	// Notify sends the notification. A nil error means the channel accepted it.
	Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error
}

// Registry maps notification kinds to implementations.
type Registry = registry.Registry[Notifier]

// NewRegistry creates an empty notifier registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return registry.New[Notifier]("notifier", logger)
}

// Built-in notification kinds.
const (
	KindNone      = "none"
	KindHighlight = "highlight"
	KindEmail     = "email"
	KindWebhook   = "webhook"
	KindIFTTT     = "ifttt"
	KindSlack     = "slack"
)

// ConfigValue returns the trimmed notification config value for key, or
// ErrMissingConfig when it is blank.
func ConfigValue(alert *domain.Alert, key string) (string, error) {
	value := strings.TrimSpace(alert.NotificationConfig[key])
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingConfig, key)
	}
	return value, nil
}

// Payload is the JSON body HTTP notifiers send.
type Payload struct {
	AlertID     string         `json:"alert_id"`
	TriggerKind string         `json:"trigger_kind"`
	Subject     string         `json:"subject"`
	Record      *domain.Record `json:"record"`
	FiredAt     time.Time      `json:"fired_at"`
}

// NewPayload builds the payload for a matched pair.
func NewPayload(alert *domain.Alert, rec *domain.Record) *Payload {
	return &Payload{
		AlertID:     alert.ID,
		TriggerKind: alert.TriggerKind,
		Subject:     Subject(rec),
		Record:      rec,
		FiredAt:     time.Now().UTC(),
	}
}

// Subject returns a one-line description of a record.
func Subject(rec *domain.Record) string {
	target := rec.Connector
	if rec.Context != "" {
		target += "/" + rec.Context
	}
	return fmt.Sprintf("[Vigil] %s on %s", rec.Action, target)
}

// Body returns a plain text description of a record for human channels.
func Body(alert *domain.Alert, rec *domain.Record) string {
	var b strings.Builder
	if rec.Summary != "" {
		b.WriteString(rec.Summary)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Record:    %s\n", rec.ID)
	fmt.Fprintf(&b, "Author:    %s\n", rec.AuthorID)
	fmt.Fprintf(&b, "Connector: %s\n", rec.Connector)
	fmt.Fprintf(&b, "Context:   %s\n", rec.Context)
	fmt.Fprintf(&b, "Action:    %s\n", rec.Action)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Time:      %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\nAlert %s (%s trigger)\n", alert.ID, alert.TriggerKind)
	return b.String()
}
