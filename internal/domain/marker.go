package domain

import (
	"errors"
	"time"
)

// ErrMarkerNotFound is returned when no dedup marker exists for a pair.
var ErrMarkerNotFound = errors.New("dedup marker not found")

// Outcome is the result of one dispatch attempt for an (alert, record) pair.
type Outcome string

const (
	// OutcomePending marks a claimed pair whose attempt has not finished.
	OutcomePending Outcome = "pending"
	// OutcomeSent means the notifier accepted the notification.
	OutcomeSent Outcome = "sent"
	// OutcomeFailed means the notifier returned an error or panicked.
	OutcomeFailed Outcome = "failed"
	// OutcomeTimeout means the notifier exceeded the configured timeout.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeNotifierUnavailable means the notification kind did not resolve.
	OutcomeNotifierUnavailable Outcome = "notifier_unavailable"
	// OutcomeAlreadyFired means another pass already claimed the pair.
	OutcomeAlreadyFired Outcome = "already_fired"
)

// Attempted reports whether the notifier was actually invoked.
func (o Outcome) Attempted() bool {
	return o == OutcomeSent || o == OutcomeFailed || o == OutcomeTimeout
}

// DedupMarker is the durable fact that an (alert, record) pair has fired.
// Markers are never deleted.
type DedupMarker struct {
	AlertID   string    `json:"alert_id"`
	RecordID  string    `json:"record_id"`
	Outcome   Outcome   `json:"outcome"`
	FiredAt   time.Time `json:"fired_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDedupMarker creates a pending marker for a pair.
func NewDedupMarker(alertID, recordID string) *DedupMarker {
	now := time.Now().UTC()
	return &DedupMarker{
		AlertID:   alertID,
		RecordID:  recordID,
		Outcome:   OutcomePending,
		FiredAt:   now,
		UpdatedAt: now,
	}
}

// HighlightMark records that an alert asked for a record to be highlighted.
type HighlightMark struct {
	RecordID  string    `json:"record_id"`
	AlertID   string    `json:"alert_id"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// DispatchResult describes one dispatch attempt. It is what observers,
// logs and metrics see for every (alert, record) pair that matched.
type DispatchResult struct {
	AlertID      string        `json:"alert_id"`
	RecordID     string        `json:"record_id"`
	NotifierKind string        `json:"notifier_kind"`
	Outcome      Outcome       `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}
