package provider

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESProvider implements email sending via AWS SES.
type SESProvider struct {
	client *sesv2.Client
	region string
	logger *slog.Logger
}

// NewSESProvider creates an SES provider using the default AWS credential
// chain. A config load failure leaves the provider unconfigured.
func NewSESProvider(ctx context.Context, region string, logger *slog.Logger) *SESProvider {
	p := &SESProvider{region: region, logger: logger}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		logger.Warn("failed to load AWS config, SES provider unavailable", "region", region, "error", err)
		return p
	}

	p.client = sesv2.NewFromConfig(cfg)
	return p
}

// Name returns the provider name.
func (p *SESProvider) Name() string {
	return NameSES
}

// IsConfigured returns true if SES is properly configured.
func (p *SESProvider) IsConfigured() bool {
	return p.client != nil
}

// Send sends an email via AWS SES.
func (p *SESProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.client == nil {
		return fmt.Errorf("%s: %w", NameSES, ErrNotConfigured)
	}
	if len(req.To) == 0 {
		return ErrNoRecipients
	}

	var body types.Body
	if req.HTML != "" {
		body.Html = &types.Content{Data: &req.HTML}
	}
	if req.Body != "" {
		body.Text = &types.Content{Data: &req.Body}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: &req.From,
		Destination: &types.Destination{
			ToAddresses: req.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &req.Subject},
				Body:    &body,
			},
		},
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	if result.MessageId != nil {
		p.logger.Debug("email sent via ses", "messageID", *result.MessageId, "to", req.To)
	}
	return nil
}
