// Package email provides the email notifier.
package email

import (
	"context"
	"fmt"
	"strings"

	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/notifier/email/provider"
	"vigil-go/internal/registry"
)

// Notifier sends an email for every matched record. Recipients come from the
// alert's "to" config value as a comma separated list.
type Notifier struct {
	providers *provider.Registry
	from      string
}

// New creates an email notifier that sends from the given address.
func New(providers *provider.Registry, from string) *Notifier {
	return &Notifier{providers: providers, from: from}
}

func (n *Notifier) Kind() string { return notifier.KindEmail }
func (n *Notifier) Name() string { return "Email" }

func (n *Notifier) Fields() []registry.Field {
	return []registry.Field{
		{Name: "to", Label: "Recipients", Type: "email", Required: true},
		{Name: "subject", Label: "Subject", Type: "text"},
	}
}

// IsDependencySatisfied reports whether at least one email provider is configured.
func (n *Notifier) IsDependencySatisfied() bool {
	return n.providers != nil && n.providers.HasConfigured()
}

// Notify sends the email through the provider registry.
func (n *Notifier) Notify(ctx context.Context, alert *domain.Alert, rec *domain.Record) error {
	to, err := notifier.ConfigValue(alert, "to")
	if err != nil {
		return err
	}

	recipients := parseRecipients(to)
	if len(recipients) == 0 {
		return fmt.Errorf("%w: to", notifier.ErrMissingConfig)
	}

	subject := strings.TrimSpace(alert.NotificationConfig["subject"])
	if subject == "" {
		subject = notifier.Subject(rec)
	}

	req := &provider.EmailRequest{
		From:    n.from,
		To:      recipients,
		Subject: subject,
		Body:    notifier.Body(alert, rec),
	}

	if err := n.providers.Send(ctx, req); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// parseRecipients parses a comma-separated list of email addresses.
func parseRecipients(value string) []string {
	parts := strings.Split(value, ",")
	recipients := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}
