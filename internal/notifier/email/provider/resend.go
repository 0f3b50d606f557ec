package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendProvider implements email sending via the Resend API.
type ResendProvider struct {
	client *resend.Client
	logger *slog.Logger
}

// NewResendProvider creates a Resend provider. An empty key leaves it unconfigured.
func NewResendProvider(apiKey string, logger *slog.Logger) *ResendProvider {
	p := &ResendProvider{logger: logger}
	if apiKey != "" {
		p.client = resend.NewClient(apiKey)
	}
	return p
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return NameResend
}

// IsConfigured returns true if Resend is properly configured.
func (p *ResendProvider) IsConfigured() bool {
	return p.client != nil
}

// Send sends an email via the Resend API.
func (p *ResendProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.client == nil {
		return fmt.Errorf("%s: %w", NameResend, ErrNotConfigured)
	}
	if len(req.To) == 0 {
		return ErrNoRecipients
	}

	params := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
	}

	// Prefer HTML if available, otherwise use plain text
	if req.HTML != "" {
		params.Html = req.HTML
	} else {
		params.Text = req.Body
	}

	// The client has no context support; the dispatcher's deadline bounds the call.
	result, err := p.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	p.logger.Debug("email sent via resend", "emailID", result.Id, "to", req.To)
	return nil
}
