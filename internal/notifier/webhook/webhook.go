package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"vigil-go/internal/config"
	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/registry"
)

// Webhook POSTs the notifier payload as JSON to the alert's "url".
// When a signing secret is configured the body is signed.
type Webhook struct {
	client *http.Client
	signer *Signer
}

// NewWebhook creates a generic webhook notifier.
func NewWebhook(cfg *config.WebhookConfig) *Webhook {
	w := &Webhook{client: newHTTPClient(cfg.Timeout)}
	if cfg.SigningSecret != "" {
		w.signer = NewSigner(cfg.SigningSecret)
	}
	return w
}

func (w *Webhook) Kind() string                { return notifier.KindWebhook }
func (w *Webhook) Name() string                { return "Webhook" }
func (w *Webhook) IsDependencySatisfied() bool { return true }

func (w *Webhook) Fields() []registry.Field {
	return []registry.Field{
		{Name: "url", Label: "Webhook URL", Type: "url", Required: true},
	}
}

// Notify sends the payload.
func (w *Webhook) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	url, err := notifier.ConfigValue(alert, "url")
	if err != nil {
		return err
	}
	if !IsValidURL(url) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	data, err := json.Marshal(notifier.NewPayload(alert, rec))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	header := http.Header{}
	header.Set("X-Vigil-Alert", alert.ID)
	if w.signer != nil {
		header.Set(SignatureHeader, w.signer.Sign(data))
	}

	return post(ctx, w.client, url, data, header)
}
