// Package registry holds pluggable implementations keyed by kind.
//
// Triggers and notifiers share the same discipline: an implementation is
// admitted only when its runtime dependencies are satisfied, a rejected
// registration is recorded and logged but never fatal, and registering an
// existing kind replaces the previous entry. Registries are populated at
// startup and read concurrently afterwards.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"vigil-go/internal/metrics"
)

// Registration errors.
var (
	ErrNilImplementation     = errors.New("implementation is nil")
	ErrEmptyKind             = errors.New("implementation kind is empty")
	ErrDependencyUnsatisfied = errors.New("implementation dependencies are not satisfied")
)

// Field describes one configuration input an authoring form should render.
type Field struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text, email, url, select, list
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Capability is the contract every registrable implementation satisfies.
type Capability interface {
	// Kind is the identifier alert definitions reference.
	Kind() string

	// Name is a human readable label.
	Name() string

	// Fields lists the configuration inputs for authoring forms.
	Fields() []Field

	// IsDependencySatisfied reports whether runtime prerequisites are present.
	IsDependencySatisfied() bool
}

// Descriptor is the read-only view of a registered implementation.
type Descriptor struct {
	Kind   string  `json:"kind"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Rejection records a refused registration.
type Rejection struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Registry maps kinds to implementations of T.
type Registry[T Capability] struct {
	label  string
	logger *slog.Logger

	mu       sync.RWMutex
	entries  map[string]T
	rejected []Rejection
}

// New creates an empty registry. The label names the registry in logs and metrics.
func New[T Capability](label string, logger *slog.Logger) *Registry[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry[T]{
		label:   label,
		logger:  logger,
		entries: make(map[string]T),
	}
}

// Register admits impl under its kind. A rejected implementation leaves the
// registry unchanged; the returned error is the diagnostic.
func (r *Registry[T]) Register(impl T) error {
	if isNil(impl) {
		return r.reject("", ErrNilImplementation)
	}

	kind := strings.TrimSpace(impl.Kind())
	if kind == "" {
		return r.reject("", ErrEmptyKind)
	}
	if !impl.IsDependencySatisfied() {
		return r.reject(kind, ErrDependencyUnsatisfied)
	}

	r.mu.Lock()
	_, replaced := r.entries[kind]
	r.entries[kind] = impl
	r.mu.Unlock()

	r.logger.Info("registered "+r.label, "kind", kind, "name", impl.Name(), "replaced", replaced)
	return nil
}

// RegisterAll registers every implementation and returns the rejections.
func (r *Registry[T]) RegisterAll(impls ...T) []error {
	var errs []error
	for _, impl := range impls {
		if err := r.Register(impl); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Resolve returns the implementation registered for kind.
func (r *Registry[T]) Resolve(kind string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.entries[kind]
	return impl, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry[T]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Describe returns descriptors for all registered implementations, sorted by kind.
func (r *Registry[T]) Describe() []Descriptor {
	kinds := r.Kinds()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(kinds))
	for _, kind := range kinds {
		impl := r.entries[kind]
		out = append(out, Descriptor{Kind: kind, Name: impl.Name(), Fields: impl.Fields()})
	}
	return out
}

// Rejected returns the registrations refused so far.
func (r *Registry[T]) Rejected() []Rejection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.rejected)
}

func (r *Registry[T]) reject(kind string, cause error) error {
	r.mu.Lock()
	r.rejected = append(r.rejected, Rejection{Kind: kind, Reason: cause.Error()})
	r.mu.Unlock()

	metrics.RegistryRejectionsTotal.WithLabelValues(r.label, kind).Inc()
	r.logger.Warn("rejected "+r.label+" registration", "kind", kind, "error", cause)

	return fmt.Errorf("%s %q: %w", r.label, kind, cause)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
