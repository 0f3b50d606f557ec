package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-go/internal/config"
	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
)

// captured is one request seen by a test server.
type captured struct {
	Path   string
	Header http.Header
	Body   []byte
}

func newServer(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var seen []captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), seen...)
	}
}

func testPair(kind string, cfg map[string]string) (*domain.Alert, *domain.Record) {
	return &domain.Alert{ID: "a-1", TriggerKind: "context", NotificationKind: kind, NotificationConfig: cfg},
		&domain.Record{ID: "r-1", AuthorID: "7", Connector: "posts", Context: "post", Action: "updated", Summary: "Post updated"}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://hooks.test/endpoint", true},
		{"http://hooks.test/endpoint", true},
		{"hooks.test/endpoint", false},
		{"", false},
		{"ftp://hooks.test", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.url); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSigner(t *testing.T) {
	s := NewSigner("secret")
	sig := s.Sign([]byte("body"))

	assert.True(t, s.Verify([]byte("body"), sig))
	assert.False(t, s.Verify([]byte("tampered"), sig))
	assert.False(t, NewSigner("other").Verify([]byte("body"), sig))
	assert.Equal(t, "sha256=", sig[:7])
}

func TestWebhook_Notify(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK)
	w := NewWebhook(&config.WebhookConfig{SigningSecret: "secret"})
	alert, rec := testPair(notifier.KindWebhook, map[string]string{"url": srv.URL + "/hook"})

	require.NoError(t, w.Notify(context.Background(), alert, rec))

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/hook", reqs[0].Path)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "a-1", reqs[0].Header.Get("X-Vigil-Alert"))
	assert.True(t, NewSigner("secret").Verify(reqs[0].Body, reqs[0].Header.Get(SignatureHeader)))

	var payload notifier.Payload
	require.NoError(t, json.Unmarshal(reqs[0].Body, &payload))
	assert.Equal(t, "a-1", payload.AlertID)
	assert.Equal(t, "r-1", payload.Record.ID)
}

func TestWebhook_Unsigned(t *testing.T) {
	srv, seen := newServer(t, http.StatusNoContent)
	w := NewWebhook(&config.WebhookConfig{})
	alert, rec := testPair(notifier.KindWebhook, map[string]string{"url": srv.URL})

	require.NoError(t, w.Notify(context.Background(), alert, rec))
	assert.Empty(t, seen()[0].Header.Get(SignatureHeader))
}

func TestWebhook_Errors(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError)
	w := NewWebhook(&config.WebhookConfig{})

	alert, rec := testPair(notifier.KindWebhook, map[string]string{"url": srv.URL})
	assert.Error(t, w.Notify(context.Background(), alert, rec), "non-2xx must fail")

	alert, rec = testPair(notifier.KindWebhook, map[string]string{"url": "hooks.test/x"})
	assert.ErrorIs(t, w.Notify(context.Background(), alert, rec), ErrInvalidURL)

	alert, rec = testPair(notifier.KindWebhook, map[string]string{})
	assert.ErrorIs(t, w.Notify(context.Background(), alert, rec), notifier.ErrMissingConfig)
}

func TestWebhook_HonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	w := NewWebhook(&config.WebhookConfig{})
	alert, rec := testPair(notifier.KindWebhook, map[string]string{"url": srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Notify(ctx, alert, rec)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIFTTT_Notify(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK)
	n := NewIFTTT(&config.HTTPConfig{}).WithBaseURL(srv.URL)
	alert, rec := testPair(notifier.KindIFTTT, map[string]string{"event_name": "post_changed", "maker_key": "k3y"})

	require.NoError(t, n.Notify(context.Background(), alert, rec))

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/trigger/post_changed/with/key/k3y", reqs[0].Path)

	var body iftttPayload
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, "[Vigil] updated on posts/post", body.Value1)
	assert.Equal(t, "Post updated", body.Value2)
	assert.Equal(t, "r-1", body.Value3)
}

func TestIFTTT_MissingKey(t *testing.T) {
	n := NewIFTTT(&config.HTTPConfig{})
	alert, rec := testPair(notifier.KindIFTTT, map[string]string{"event_name": "x"})
	assert.ErrorIs(t, n.Notify(context.Background(), alert, rec), notifier.ErrMissingConfig)
}

func TestSlack_Notify(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK)
	s := NewSlack(&config.HTTPConfig{})
	alert, rec := testPair(notifier.KindSlack, map[string]string{"webhook_url": srv.URL})

	require.NoError(t, s.Notify(context.Background(), alert, rec))

	var msg slackMessage
	require.NoError(t, json.Unmarshal(seen()[0].Body, &msg))
	assert.Contains(t, msg.Text, "*[Vigil] updated on posts/post*")
	assert.Contains(t, msg.Text, "Post updated")
	assert.Contains(t, msg.Text, "`r-1`")
}

func TestSlack_RejectsChannelNames(t *testing.T) {
	s := NewSlack(&config.HTTPConfig{})
	alert, rec := testPair(notifier.KindSlack, map[string]string{"webhook_url": "#alerts"})
	assert.ErrorIs(t, s.Notify(context.Background(), alert, rec), ErrInvalidURL)
}

func TestNewHTTPClientDefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, newHTTPClient(0).Timeout)
	assert.Equal(t, 5*time.Second, newHTTPClient(5*time.Second).Timeout)
}
