// Package webhook provides notifiers that deliver over HTTP: generic JSON
// webhooks, IFTTT Maker events and Slack incoming webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidURL is returned for endpoints that are not http(s) URLs.
var ErrInvalidURL = errors.New("invalid webhook URL")

// defaultTimeout is used when the configured timeout is zero.
const defaultTimeout = 30 * time.Second

// IsValidURL checks if a string is a valid HTTP/HTTPS URL.
func IsValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// maskURL shortens a URL for logs and errors. Slack and IFTTT URLs embed secrets.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON marshals body and POSTs it to url. Any non-2xx status is an error.
func postJSON(ctx context.Context, client *http.Client, url string, body any, header http.Header) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return post(ctx, client, url, data, header)
}

func post(ctx context.Context, client *http.Client, url string, data []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to %s: %w", maskURL(url), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", maskURL(url), resp.StatusCode)
	}
	return nil
}
