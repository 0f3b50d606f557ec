// Package provider defines the email provider interface and a registry that
// picks a configured provider with fallback support.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"vigil-go/internal/config"
)

// Provider names.
const (
	NameSMTP   = "smtp"
	NameResend = "resend"
	NameSES    = "ses"
)

// Errors returned by providers and the registry.
var (
	ErrNoProvider    = errors.New("no configured email provider available")
	ErrNoRecipients  = errors.New("no recipients specified")
	ErrNotConfigured = errors.New("email provider not configured")
)

// EmailRequest represents an email to be sent.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Body    string // Plain text body
	HTML    string // HTML body (optional)
}

// Provider is the interface that all email providers must implement.
type Provider interface {
	// Name returns the provider name (e.g., "ses", "resend")
	Name() string

	// Send sends an email using this provider.
	Send(ctx context.Context, req *EmailRequest) error

	// IsConfigured returns true if the provider is properly configured.
	IsConfigured() bool
}

// Registry manages email providers with fallback support.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	providers map[string]Provider
	primary   string   // Primary provider name
	fallback  []string // Fallback provider names in order
}

// NewRegistry creates a new email provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// FromConfig registers every known provider from cfg and applies the
// primary and fallback order. Unconfigured providers are registered too so
// they show up in diagnostics.
func FromConfig(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)

	r.Register(NewSMTPProvider(&cfg.SMTP))
	r.Register(NewResendProvider(cfg.Resend.APIKey, logger))
	if cfg.SES.Enabled {
		r.Register(NewSESProvider(ctx, cfg.SES.Region, logger))
	} else {
		r.Register(&SESProvider{region: cfg.SES.Region, logger: logger})
	}

	if err := r.SetPrimary(cfg.Primary); err != nil {
		return nil, err
	}
	if err := r.SetFallback(cfg.Fallback...); err != nil {
		return nil, err
	}

	return r, nil
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
	r.logger.Info("registered email provider", "name", provider.Name(), "configured", provider.IsConfigured())
}

// SetPrimary sets the primary provider by name.
func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("email provider %q not registered", name)
	}
	r.primary = name
	return nil
}

// SetFallback sets the fallback providers in order.
func (r *Registry) SetFallback(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("email provider %q not registered", name)
		}
	}
	r.fallback = slices.Clone(names)
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// HasConfigured reports whether any provider can send.
func (r *Registry) HasConfigured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.IsConfigured() {
			return true
		}
	}
	return false
}

// candidates returns configured providers in preference order: primary,
// fallbacks, then any other configured provider sorted by name.
func (r *Registry) candidates() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if p, ok := r.providers[name]; ok && p.IsConfigured() {
			out = append(out, p)
		}
	}

	if r.primary != "" {
		add(r.primary)
	}
	for _, name := range r.fallback {
		add(name)
	}

	rest := make([]string, 0, len(r.providers))
	for name := range r.providers {
		rest = append(rest, name)
	}
	slices.Sort(rest)
	for _, name := range rest {
		add(name)
	}

	return out
}

// Send sends an email using the best available provider, trying the next
// configured provider when one fails. The first error is returned when all fail.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) error {
	providers := r.candidates()
	if len(providers) == 0 {
		return ErrNoProvider
	}

	var firstErr error
	for i, p := range providers {
		err := p.Send(ctx, req)
		if err == nil {
			if i > 0 {
				r.logger.Warn("email sent via fallback provider", "provider", p.Name(), "primaryError", firstErr)
			}
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
		r.logger.Warn("email provider failed", "provider", p.Name(), "error", err)
	}

	return firstErr
}

// Names returns all registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
