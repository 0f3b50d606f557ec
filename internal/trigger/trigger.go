// Package trigger provides the pluggable predicates that decide whether an
// activity record satisfies an alert definition's filters.
package trigger

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"vigil-go/internal/domain"
	"vigil-go/internal/registry"
)

// ErrUnknownFilter is returned when filters constrain a dimension the trigger
// does not evaluate. The definition is malformed for this kind.
var ErrUnknownFilter = errors.New("filter dimension not supported by trigger")

// Trigger evaluates filters against a record. Implementations must be pure:
// the result depends only on the arguments.
type Trigger interface {
	registry.Capability

	// Matches reports whether rec satisfies filters. A dimension the filters
	// leave empty matches any value.
	Matches(filters domain.Filters, rec *domain.Record) (bool, error)
}

// Registry maps trigger kinds to implementations.
type Registry = registry.Registry[Trigger]

// NewRegistry creates an empty trigger registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return registry.New[Trigger]("trigger", logger)
}

// Built-in trigger kinds.
const (
	KindAuthor   = "author"
	KindContext  = "context"
	KindAction   = "action"
	KindActivity = "activity"
)

// DimensionTrigger matches a fixed set of record dimensions with AND semantics.
type DimensionTrigger struct {
	kind string
	name string
	dims []domain.Dimension
}

// New creates a trigger over the given dimensions. Host code can use it to
// register additional kinds or to override a built-in.
func New(kind, name string, dims ...domain.Dimension) *DimensionTrigger {
	return &DimensionTrigger{kind: kind, name: name, dims: dims}
}

// NewAuthorTrigger matches on the acting author.
func NewAuthorTrigger() *DimensionTrigger {
	return New(KindAuthor, "Author", domain.DimensionAuthor)
}

// NewContextTrigger matches on connector and context.
func NewContextTrigger() *DimensionTrigger {
	return New(KindContext, "Context", domain.DimensionConnector, domain.DimensionContext)
}

// NewActionTrigger matches on the action performed, optionally scoped to a connector.
func NewActionTrigger() *DimensionTrigger {
	return New(KindAction, "Action", domain.DimensionConnector, domain.DimensionAction)
}

// NewActivityTrigger matches on every dimension a record carries.
func NewActivityTrigger() *DimensionTrigger {
	return New(KindActivity, "Activity",
		domain.DimensionAuthor,
		domain.DimensionConnector,
		domain.DimensionContext,
		domain.DimensionAction,
	)
}

// Builtins returns fresh instances of every built-in trigger.
func Builtins() []Trigger {
	return []Trigger{
		NewAuthorTrigger(),
		NewContextTrigger(),
		NewActionTrigger(),
		NewActivityTrigger(),
	}
}

// Kind implements registry.Capability.
func (t *DimensionTrigger) Kind() string { return t.kind }

// Name implements registry.Capability.
func (t *DimensionTrigger) Name() string { return t.name }

// IsDependencySatisfied implements registry.Capability. Dimension triggers
// only read the record.
func (t *DimensionTrigger) IsDependencySatisfied() bool { return true }

// Fields implements registry.Capability.
func (t *DimensionTrigger) Fields() []registry.Field {
	fields := make([]registry.Field, 0, len(t.dims))
	for _, dim := range t.dims {
		fields = append(fields, registry.Field{
			Name:  string(dim),
			Label: dimensionLabels[dim],
			Type:  "list",
		})
	}
	return fields
}

// Matches implements Trigger.
func (t *DimensionTrigger) Matches(filters domain.Filters, rec *domain.Record) (bool, error) {
	for dim := range filters {
		if !slices.Contains(t.dims, dim) && !filters.IsWildcard(dim) {
			return false, fmt.Errorf("%w: %s trigger does not filter on %q", ErrUnknownFilter, t.kind, dim)
		}
	}

	for _, dim := range t.dims {
		value, _ := rec.Field(dim)
		if !filters.Accepts(dim, value) {
			return false, nil
		}
	}

	return true, nil
}

var dimensionLabels = map[domain.Dimension]string{
	domain.DimensionAuthor:    "Author",
	domain.DimensionConnector: "Connector",
	domain.DimensionContext:   "Context",
	domain.DimensionAction:    "Action",
}
