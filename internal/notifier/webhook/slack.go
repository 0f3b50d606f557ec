package webhook

import (
	"context"
	"fmt"
	"net/http"

	"vigil-go/internal/config"
	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/registry"
)

type slackMessage struct {
	Text string `json:"text"`
}

// Slack posts a message to the alert's incoming "webhook_url".
type Slack struct {
	client *http.Client
}

// NewSlack creates a Slack notifier.
func NewSlack(cfg *config.HTTPConfig) *Slack {
	return &Slack{client: newHTTPClient(cfg.Timeout)}
}

func (s *Slack) Kind() string                { return notifier.KindSlack }
func (s *Slack) Name() string                { return "Slack" }
func (s *Slack) IsDependencySatisfied() bool { return true }

func (s *Slack) Fields() []registry.Field {
	return []registry.Field{
		{Name: "webhook_url", Label: "Incoming webhook URL", Type: "url", Required: true},
	}
}

// Notify posts a short text message.
func (s *Slack) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	url, err := notifier.ConfigValue(alert, "webhook_url")
	if err != nil {
		return err
	}
	if !IsValidURL(url) {
		return fmt.Errorf("%w: Slack webhook URLs start with https://hooks.slack.com/services/", ErrInvalidURL)
	}

	text := fmt.Sprintf("*%s*", notifier.Subject(rec))
	if rec.Summary != "" {
		text += "\n" + rec.Summary
	}
	text += fmt.Sprintf("\nrecord `%s` by author `%s`", rec.ID, rec.AuthorID)

	return postJSON(ctx, s.client, url, slackMessage{Text: text}, nil)
}
