package engine

import (
	"log/slog"
	"os"
	"slices"
	"testing"

	"vigil-go/internal/domain"
	"vigil-go/internal/registry"
	"vigil-go/internal/trigger"
)

func testSetup() *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	triggers := trigger.NewRegistry(logger)
	for _, t := range trigger.Builtins() {
		_ = triggers.Register(t)
	}
	return New(triggers, logger)
}

func newAlert(id, kind string, status domain.AlertStatus, filters domain.Filters) *domain.Alert {
	return &domain.Alert{
		ID:               id,
		Status:           status,
		TriggerKind:      kind,
		TriggerFilters:   filters,
		NotificationKind: "none",
	}
}

func ids(alerts []*domain.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestFindMatches(t *testing.T) {
	e := testSetup()

	r1 := &domain.Record{ID: "R1", AuthorID: "1", Connector: "posts", Context: "post", Action: "updated"}
	r2 := &domain.Record{ID: "R2", AuthorID: "1", Connector: "posts", Context: "post", Action: "updated"}

	alertA := newAlert("A", trigger.KindContext, domain.AlertStatusEnabled,
		domain.Filters{domain.DimensionConnector: {"posts"}})
	alertB := newAlert("B", trigger.KindContext, domain.AlertStatusEnabled,
		domain.Filters{domain.DimensionConnector: {"posts"}, domain.DimensionContext: {"page"}})

	tests := []struct {
		name   string
		rec    *domain.Record
		alerts []*domain.Alert
		want   []string
	}{
		{
			name:   "connector only filter matches any context",
			rec:    r1,
			alerts: []*domain.Alert{alertA},
			want:   []string{"A"},
		},
		{
			name:   "context mismatch",
			rec:    r2,
			alerts: []*domain.Alert{alertB},
			want:   []string{},
		},
		{
			name: "disabled wildcard alert never matches",
			rec:  r1,
			alerts: []*domain.Alert{
				newAlert("D", trigger.KindActivity, domain.AlertStatusDisabled, domain.Filters{}),
			},
			want: []string{},
		},
		{
			name: "unregistered trigger kind is inert",
			rec:  r1,
			alerts: []*domain.Alert{
				newAlert("X", "geo-fence", domain.AlertStatusEnabled, domain.Filters{}),
				alertA,
			},
			want: []string{"A"},
		},
		{
			name: "malformed filters fail only that alert",
			rec:  r1,
			alerts: []*domain.Alert{
				newAlert("M", trigger.KindAuthor, domain.AlertStatusEnabled,
					domain.Filters{domain.DimensionConnector: {"posts"}}),
				alertA,
			},
			want: []string{"A"},
		},
		{
			name: "all matches reported in input order",
			rec:  r1,
			alerts: []*domain.Alert{
				newAlert("W", trigger.KindActivity, domain.AlertStatusEnabled, domain.Filters{}),
				alertB,
				alertA,
				newAlert("U", trigger.KindAuthor, domain.AlertStatusEnabled,
					domain.Filters{domain.DimensionAuthor: {"1"}}),
			},
			want: []string{"W", "A", "U"},
		},
		{
			name:   "nil alerts are skipped",
			rec:    r1,
			alerts: []*domain.Alert{nil, alertA},
			want:   []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(e.FindMatches(tt.rec, tt.alerts))
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyFiltersMatchEveryRecord(t *testing.T) {
	e := testSetup()
	records := []*domain.Record{
		{ID: "1", Connector: "posts", Context: "post", Action: "updated", AuthorID: "1"},
		{ID: "2", Connector: "users", Action: "login"},
		{ID: "3", Connector: "settings", Context: "general", Action: "updated", AuthorID: "0"},
	}

	for _, kind := range []string{trigger.KindAuthor, trigger.KindContext, trigger.KindAction, trigger.KindActivity} {
		alert := newAlert("wild-"+kind, kind, domain.AlertStatusEnabled, nil)
		for _, rec := range records {
			if got := e.FindMatches(rec, []*domain.Alert{alert}); len(got) != 1 {
				t.Errorf("%s trigger with empty filters did not match record %s", kind, rec.ID)
			}
		}
	}
}

func TestMatchesStopsEarly(t *testing.T) {
	e := testSetup()
	rec := &domain.Record{ID: "R", Connector: "posts", Action: "updated"}
	alerts := []*domain.Alert{
		newAlert("1", trigger.KindActivity, domain.AlertStatusEnabled, nil),
		newAlert("2", trigger.KindActivity, domain.AlertStatusEnabled, nil),
		newAlert("3", trigger.KindActivity, domain.AlertStatusEnabled, nil),
	}

	var seen []string
	for alert := range e.Matches(rec, alerts) {
		seen = append(seen, alert.ID)
		if len(seen) == 2 {
			break
		}
	}

	if !slices.Equal(seen, []string{"1", "2"}) {
		t.Errorf("Matches() yielded %v, want [1 2]", seen)
	}
}

// lateTrigger is registered after a record was evaluated.
type lateTrigger struct{}

func (lateTrigger) Kind() string                { return "late" }
func (lateTrigger) Name() string                { return "Late" }
func (lateTrigger) Fields() []registry.Field    { return nil }
func (lateTrigger) IsDependencySatisfied() bool { return true }
func (lateTrigger) Matches(domain.Filters, *domain.Record) (bool, error) {
	return true, nil
}

func TestLateRegistrationOnlyAffectsNewEvaluations(t *testing.T) {
	e := testSetup()
	rec := &domain.Record{ID: "R", Connector: "posts", Action: "updated"}
	alert := newAlert("L", "late", domain.AlertStatusEnabled, nil)

	first := e.FindMatches(rec, []*domain.Alert{alert})
	if len(first) != 0 {
		t.Fatalf("FindMatches() before registration = %v, want none", ids(first))
	}

	if err := e.triggers.Register(lateTrigger{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if len(first) != 0 {
		t.Error("earlier results must not change after registration")
	}
	if got := e.FindMatches(rec, []*domain.Alert{alert}); len(got) != 1 {
		t.Errorf("FindMatches() after registration = %v, want [L]", ids(got))
	}
}
