package domain

import (
	"testing"
)

func TestCreateAlertRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateAlertRequest
		wantErr error
	}{
		{
			name:    "valid request",
			req:     CreateAlertRequest{AuthorID: "1", TriggerKind: "context", NotificationKind: "email"},
			wantErr: nil,
		},
		{
			name:    "missing author",
			req:     CreateAlertRequest{TriggerKind: "context", NotificationKind: "email"},
			wantErr: ErrEmptyAuthorID,
		},
		{
			name:    "missing trigger kind",
			req:     CreateAlertRequest{AuthorID: "1", NotificationKind: "email"},
			wantErr: ErrEmptyTriggerKind,
		},
		{
			name:    "missing notification kind",
			req:     CreateAlertRequest{AuthorID: "1", TriggerKind: "context"},
			wantErr: ErrEmptyNotificationKind,
		},
		{
			name:    "unregistered kinds are still valid",
			req:     CreateAlertRequest{AuthorID: "1", TriggerKind: "geo", NotificationKind: "pager"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAlertRequest_Normalize(t *testing.T) {
	req := CreateAlertRequest{
		AuthorID:         " 1 ",
		TriggerKind:      "context",
		NotificationKind: "email",
		ConnectorContext: "posts-page",
	}
	req.Normalize()

	if req.AuthorID != "1" {
		t.Errorf("AuthorID = %q, want 1", req.AuthorID)
	}
	if got := req.TriggerFilters.Values(DimensionConnector); len(got) != 1 || got[0] != "posts" {
		t.Errorf("connector filter = %v, want [posts]", got)
	}
	if got := req.TriggerFilters.Values(DimensionContext); len(got) != 1 || got[0] != "page" {
		t.Errorf("context filter = %v, want [page]", got)
	}

	bare := CreateAlertRequest{ConnectorContext: "posts"}
	bare.Normalize()
	if !bare.TriggerFilters.IsWildcard(DimensionContext) {
		t.Errorf("bare connector should leave context as wildcard, got %v", bare.TriggerFilters)
	}
}

func TestCreateAlertRequest_ToAlert(t *testing.T) {
	req := CreateAlertRequest{
		AuthorID:           "1",
		TriggerKind:        "context",
		TriggerFilters:     Filters{DimensionConnector: {"posts"}},
		NotificationKind:   "email",
		NotificationConfig: map[string]string{"to": "ops@example.org"},
	}

	alert := req.ToAlert("alert-1")

	if alert.ID != "alert-1" {
		t.Errorf("ID = %v, want alert-1", alert.ID)
	}
	if !alert.IsEnabled() {
		t.Errorf("Status = %v, want %v", alert.Status, AlertStatusEnabled)
	}
	if alert.CreatedAt.IsZero() || !alert.CreatedAt.Equal(alert.UpdatedAt) {
		t.Errorf("CreatedAt/UpdatedAt not initialised: %v / %v", alert.CreatedAt, alert.UpdatedAt)
	}

	req.TriggerFilters[DimensionConnector][0] = "users"
	req.NotificationConfig["to"] = "other@example.org"
	if alert.TriggerFilters[DimensionConnector][0] != "posts" {
		t.Error("alert filters share storage with the request")
	}
	if alert.NotificationConfig["to"] != "ops@example.org" {
		t.Error("alert config shares storage with the request")
	}
}

func TestAlert_SetStatus(t *testing.T) {
	alert := (&CreateAlertRequest{AuthorID: "1", TriggerKind: "author", NotificationKind: "none"}).ToAlert("a")
	before := alert.UpdatedAt

	alert.SetStatus(AlertStatusDisabled)

	if alert.IsEnabled() {
		t.Error("alert should be disabled")
	}
	if alert.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt moved backwards: %v < %v", alert.UpdatedAt, before)
	}
}

func TestAlertFilter_Matches(t *testing.T) {
	alert := &Alert{Status: AlertStatusEnabled, TriggerKind: "context", NotificationKind: "email"}

	tests := []struct {
		name   string
		filter AlertFilter
		want   bool
	}{
		{"empty filter", AlertFilter{}, true},
		{"status match", AlertFilter{Status: AlertStatusEnabled}, true},
		{"status mismatch", AlertFilter{Status: AlertStatusDisabled}, false},
		{"trigger mismatch", AlertFilter{TriggerKind: "author"}, false},
		{"notification match", AlertFilter{NotificationKind: "email"}, true},
	}

	for _, tt := range tests {
		if got := tt.filter.Matches(alert); got != tt.want {
			t.Errorf("%s: Matches() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSetStatusRequest_Validate(t *testing.T) {
	if err := (&SetStatusRequest{Status: AlertStatusDisabled}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := (&SetStatusRequest{Status: "paused"}).Validate(); err != ErrInvalidStatus {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidStatus)
	}
}
