package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"vigil-go/internal/config"
	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/registry"
)

// DefaultIFTTTBaseURL is the IFTTT Maker webhooks endpoint.
const DefaultIFTTTBaseURL = "https://maker.ifttt.com"

// iftttPayload carries the three values Maker applets can reference.
type iftttPayload struct {
	Value1 string `json:"value1"`
	Value2 string `json:"value2"`
	Value3 string `json:"value3"`
}

// IFTTT fires a Maker webhooks event named by the alert's "event_name",
// authenticated with its "maker_key".
type IFTTT struct {
	client  *http.Client
	baseURL string
}

// NewIFTTT creates an IFTTT notifier against the public Maker endpoint.
func NewIFTTT(cfg *config.HTTPConfig) *IFTTT {
	return &IFTTT{client: newHTTPClient(cfg.Timeout), baseURL: DefaultIFTTTBaseURL}
}

// WithBaseURL points the notifier at another endpoint.
func (n *IFTTT) WithBaseURL(baseURL string) *IFTTT {
	n.baseURL = baseURL
	return n
}

func (n *IFTTT) Kind() string                { return notifier.KindIFTTT }
func (n *IFTTT) Name() string                { return "IFTTT" }
func (n *IFTTT) IsDependencySatisfied() bool { return true }

func (n *IFTTT) Fields() []registry.Field {
	return []registry.Field{
		{Name: "event_name", Label: "Event name", Type: "text", Required: true},
		{Name: "maker_key", Label: "Maker key", Type: "text", Required: true},
	}
}

// Notify triggers the event with the subject, summary and record ID as values.
func (n *IFTTT) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	event, err := notifier.ConfigValue(alert, "event_name")
	if err != nil {
		return err
	}
	key, err := notifier.ConfigValue(alert, "maker_key")
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/trigger/%s/with/key/%s", n.baseURL, url.PathEscape(event), url.PathEscape(key))
	body := iftttPayload{
		Value1: notifier.Subject(rec),
		Value2: rec.Summary,
		Value3: rec.ID,
	}

	return postJSON(ctx, n.client, endpoint, body, nil)
}
