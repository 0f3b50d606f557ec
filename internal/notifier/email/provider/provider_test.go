package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-go/internal/config"
)

type fakeProvider struct {
	name       string
	configured bool
	err        error
	sent       []*EmailRequest
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) Send(ctx context.Context, req *EmailRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_SendUsesPrimary(t *testing.T) {
	r := NewRegistry(testLogger())
	primary := &fakeProvider{name: "a", configured: true}
	other := &fakeProvider{name: "b", configured: true}
	r.Register(primary)
	r.Register(other)
	require.NoError(t, r.SetPrimary("b"))

	require.NoError(t, r.Send(context.Background(), &EmailRequest{To: []string{"x@test"}}))

	assert.Empty(t, primary.sent)
	assert.Len(t, other.sent, 1)
}

func TestRegistry_SendFallsBack(t *testing.T) {
	r := NewRegistry(testLogger())
	failing := &fakeProvider{name: "a", configured: true, err: errors.New("boom")}
	backup := &fakeProvider{name: "b", configured: true}
	r.Register(failing)
	r.Register(backup)
	require.NoError(t, r.SetPrimary("a"))
	require.NoError(t, r.SetFallback("b"))

	require.NoError(t, r.Send(context.Background(), &EmailRequest{To: []string{"x@test"}}))
	assert.Len(t, failing.sent, 1)
	assert.Len(t, backup.sent, 1)
}

func TestRegistry_SendReturnsFirstError(t *testing.T) {
	r := NewRegistry(testLogger())
	first := errors.New("primary down")
	r.Register(&fakeProvider{name: "a", configured: true, err: first})
	r.Register(&fakeProvider{name: "b", configured: true, err: errors.New("backup down")})
	require.NoError(t, r.SetPrimary("a"))

	err := r.Send(context.Background(), &EmailRequest{To: []string{"x@test"}})
	assert.ErrorIs(t, err, first)
}

func TestRegistry_SkipsUnconfigured(t *testing.T) {
	r := NewRegistry(testLogger())
	off := &fakeProvider{name: "a"}
	r.Register(off)

	assert.False(t, r.HasConfigured())
	assert.ErrorIs(t, r.Send(context.Background(), &EmailRequest{}), ErrNoProvider)
	assert.Empty(t, off.sent)
}

func TestRegistry_SetPrimaryUnknown(t *testing.T) {
	r := NewRegistry(testLogger())
	assert.Error(t, r.SetPrimary("nope"))
	assert.Error(t, r.SetFallback("nope"))
}

func TestFromConfig(t *testing.T) {
	cfg := &config.EmailConfig{
		From:     "vigil@test",
		Primary:  NameSMTP,
		Fallback: []string{NameResend},
		SMTP:     config.SMTPConfig{Host: "mail.test", Port: 587},
	}

	r, err := FromConfig(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{NameResend, NameSES, NameSMTP}, r.Names())
	assert.True(t, r.HasConfigured())

	resend, ok := r.Get(NameResend)
	require.True(t, ok)
	assert.False(t, resend.IsConfigured())

	ses, ok := r.Get(NameSES)
	require.True(t, ok)
	assert.False(t, ses.IsConfigured())
}

func TestFromConfig_UnknownPrimary(t *testing.T) {
	cfg := &config.EmailConfig{Primary: "carrier-pigeon"}
	_, err := FromConfig(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	req := &EmailRequest{
		From:    "vigil@test",
		To:      []string{"a@test", "b@test"},
		Subject: "line one\r\nBcc: evil@test",
		Body:    "hello\nworld",
	}
	msg := string(buildMessage(req, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Contains(t, msg, "To: a@test, b@test\r\n")
	assert.Contains(t, msg, "Subject: line one  Bcc: evil@test\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nhello\r\nworld"))
}

func TestUnconfiguredProvidersRefuse(t *testing.T) {
	ctx := context.Background()
	req := &EmailRequest{To: []string{"x@test"}}

	assert.ErrorIs(t, NewSMTPProvider(&config.SMTPConfig{}).Send(ctx, req), ErrNotConfigured)
	assert.ErrorIs(t, NewResendProvider("", testLogger()).Send(ctx, req), ErrNotConfigured)
	assert.ErrorIs(t, (&SESProvider{}).Send(ctx, req), ErrNotConfigured)
	assert.ErrorIs(t, NewSMTPProvider(&config.SMTPConfig{Host: "mail.test"}).Send(ctx, &EmailRequest{}), ErrNoRecipients)
}
