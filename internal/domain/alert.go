package domain

import (
	"errors"
	"maps"
	"strings"
	"time"
)

// ErrAlertNotFound is returned when an alert definition cannot be found.
var ErrAlertNotFound = errors.New("alert not found")

// AlertStatus is the on/off switch of an alert definition.
type AlertStatus string

const (
	// AlertStatusEnabled alerts take part in matching.
	AlertStatusEnabled AlertStatus = "enabled"
	// AlertStatusDisabled alerts are never matched.
	AlertStatusDisabled AlertStatus = "disabled"
)

// IsValid returns true if the status is a known value.
func (s AlertStatus) IsValid() bool {
	return s == AlertStatusEnabled || s == AlertStatusDisabled
}

// Alert is a user-defined rule pairing one trigger configuration with one
// notification configuration. Trigger and notification fields are immutable
// after creation; redefining a rule means deleting and recreating it.
type Alert struct {
	ID        string      `json:"id"`
	Status    AlertStatus `json:"status"`
	AuthorID  string      `json:"author_id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// TriggerKind selects a registered trigger implementation.
	TriggerKind string `json:"trigger_kind"`

	// TriggerFilters is forwarded unchanged to the trigger.
	TriggerFilters Filters `json:"trigger_filters"`

	// NotificationKind selects a registered notifier implementation.
	NotificationKind string `json:"notification_kind"`

	// NotificationConfig is interpreted only by the selected notifier.
	NotificationConfig map[string]string `json:"notification_config"`
}

// IsEnabled returns true if the alert takes part in matching.
func (a *Alert) IsEnabled() bool {
	return a.Status == AlertStatusEnabled
}

// SetStatus switches the alert on or off.
func (a *Alert) SetStatus(status AlertStatus) {
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	c := *a
	c.TriggerFilters = a.TriggerFilters.Clone()
	c.NotificationConfig = maps.Clone(a.NotificationConfig)
	return &c
}

// AlertFilter provides filtering options for querying alert definitions.
type AlertFilter struct {
	Status           AlertStatus
	TriggerKind      string
	NotificationKind string
	Limit            int
	Offset           int
}

// Matches reports whether an alert passes the filter, ignoring paging.
func (f AlertFilter) Matches(a *Alert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.TriggerKind != "" && a.TriggerKind != f.TriggerKind {
		return false
	}
	if f.NotificationKind != "" && a.NotificationKind != f.NotificationKind {
		return false
	}
	return true
}

// Validation errors for alert requests.
var (
	ErrEmptyAuthorID         = errors.New("author_id is required")
	ErrEmptyTriggerKind      = errors.New("trigger_kind is required")
	ErrEmptyNotificationKind = errors.New("notification_kind is required")
	ErrInvalidStatus         = errors.New("status must be 'enabled' or 'disabled'")
)

// CreateAlertRequest is the payload for creating an alert definition.
type CreateAlertRequest struct {
	AuthorID           string            `json:"author_id"`
	TriggerKind        string            `json:"trigger_kind"`
	TriggerFilters     Filters           `json:"trigger_filters"`
	NotificationKind   string            `json:"notification_kind"`
	NotificationConfig map[string]string `json:"notification_config"`

	// ConnectorContext accepts the "connector-context" form shorthand and is
	// folded into TriggerFilters by Normalize.
	ConnectorContext string `json:"connector_context,omitempty"`
}

// Normalize trims identifiers and expands the connector-context shorthand.
func (r *CreateAlertRequest) Normalize() {
	r.AuthorID = strings.TrimSpace(r.AuthorID)
	r.TriggerKind = strings.TrimSpace(r.TriggerKind)
	r.NotificationKind = strings.TrimSpace(r.NotificationKind)

	if r.ConnectorContext == "" {
		return
	}
	connector, context := ParseConnectorContext(r.ConnectorContext)
	if r.TriggerFilters == nil {
		r.TriggerFilters = Filters{}
	}
	if connector != "" {
		r.TriggerFilters[DimensionConnector] = []string{connector}
	}
	if context != "" {
		r.TriggerFilters[DimensionContext] = []string{context}
	}
	r.ConnectorContext = ""
}

// Validate checks required fields. Kinds are not resolved here: an alert
// referencing an unknown kind is accepted and stays inert until it resolves.
func (r *CreateAlertRequest) Validate() error {
	if r.AuthorID == "" {
		return ErrEmptyAuthorID
	}
	if r.TriggerKind == "" {
		return ErrEmptyTriggerKind
	}
	if r.NotificationKind == "" {
		return ErrEmptyNotificationKind
	}
	return nil
}

// ToAlert builds an enabled alert definition from the request.
func (r *CreateAlertRequest) ToAlert(id string) *Alert {
	now := time.Now().UTC()
	filters := r.TriggerFilters.Clone()
	if filters == nil {
		filters = Filters{}
	}
	config := maps.Clone(r.NotificationConfig)
	if config == nil {
		config = map[string]string{}
	}
	return &Alert{
		ID:                 id,
		Status:             AlertStatusEnabled,
		AuthorID:           r.AuthorID,
		CreatedAt:          now,
		UpdatedAt:          now,
		TriggerKind:        r.TriggerKind,
		TriggerFilters:     filters,
		NotificationKind:   r.NotificationKind,
		NotificationConfig: config,
	}
}

// SetStatusRequest is the payload for enabling or disabling an alert.
type SetStatusRequest struct {
	Status AlertStatus `json:"status"`
}

// Validate checks the requested status.
func (r *SetStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}
