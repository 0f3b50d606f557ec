package domain

import (
	"slices"
	"strings"
)

// Dimension names one axis a trigger can filter on.
type Dimension string

const (
	DimensionAuthor    Dimension = "author"
	DimensionConnector Dimension = "connector"
	DimensionContext   Dimension = "context"
	DimensionAction    Dimension = "action"
)

// Filters maps a dimension to its accepted values.
// A missing or empty value set means any value matches.
type Filters map[Dimension][]string

// Values returns the non-blank accepted values for a dimension.
func (f Filters) Values(dim Dimension) []string {
	raw := f[dim]
	if len(raw) == 0 {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// IsWildcard reports whether the dimension accepts any value.
func (f Filters) IsWildcard(dim Dimension) bool {
	return len(f.Values(dim)) == 0
}

// Accepts reports whether value satisfies the dimension.
func (f Filters) Accepts(dim Dimension, value string) bool {
	values := f.Values(dim)
	if len(values) == 0 {
		return true
	}
	return slices.Contains(values, value)
}

// Clone returns a deep copy so stored definitions cannot be mutated by callers.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}

// ParseConnectorContext splits the "connector-context" shorthand used by
// authoring forms. A bare connector yields an empty context, meaning any context.
func ParseConnectorContext(value string) (connector, context string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	connector, context, found := strings.Cut(value, "-")
	if !found {
		return value, ""
	}
	return connector, context
}
