package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"vigil-go/internal/domain"
	"vigil-go/internal/registry"
	"vigil-go/internal/store"
)

// NoneNotifier accepts every notification and does nothing. Alerts with this
// kind still write dedup markers, which makes them useful for auditing.
type NoneNotifier struct {
	logger *slog.Logger
}

// NewNoneNotifier creates the no-op notifier.
func NewNoneNotifier(logger *slog.Logger) *NoneNotifier {
	return &NoneNotifier{logger: logger}
}

func (n *NoneNotifier) Kind() string                { return KindNone }
func (n *NoneNotifier) Name() string                { return "None" }
func (n *NoneNotifier) Fields() []registry.Field    { return []registry.Field{} }
func (n *NoneNotifier) IsDependencySatisfied() bool { return true }

// Notify logs the match at debug level.
func (n *NoneNotifier) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	n.logger.Debug("alert matched without notification", "alertID", alert.ID, "recordID", rec.ID)
	return nil
}

// Highlight colours.
const (
	ColorYellow = "yellow"
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorBlue   = "blue"
)

var highlightColors = []string{ColorYellow, ColorRed, ColorGreen, ColorBlue}

// HighlightNotifier marks the record so record listings can render it highlighted.
type HighlightNotifier struct {
	store store.HighlightStore
}

// NewHighlightNotifier creates a highlight notifier backed by s.
func NewHighlightNotifier(s store.HighlightStore) *HighlightNotifier {
	return &HighlightNotifier{store: s}
}

func (n *HighlightNotifier) Kind() string { return KindHighlight }
func (n *HighlightNotifier) Name() string { return "Highlight" }

func (n *HighlightNotifier) Fields() []registry.Field {
	return []registry.Field{
		{Name: "color", Label: "Color", Type: "select", Options: slices.Clone(highlightColors)},
	}
}

// IsDependencySatisfied reports whether a highlight store is wired.
func (n *HighlightNotifier) IsDependencySatisfied() bool {
	return n.store != nil
}

// Notify stores a highlight mark for the record. An unset colour means yellow.
func (n *HighlightNotifier) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	color := alert.NotificationConfig["color"]
	if color == "" {
		color = ColorYellow
	}
	if !slices.Contains(highlightColors, color) {
		return fmt.Errorf("unsupported highlight color %q", color)
	}

	mark := &domain.HighlightMark{
		RecordID:  rec.ID,
		AlertID:   alert.ID,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.store.Add(ctx, mark); err != nil {
		return fmt.Errorf("failed to store highlight: %w", err)
	}
	return nil
}
