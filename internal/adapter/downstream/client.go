package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"payment-reconciler/config"
	"payment-reconciler/internal/core/domain"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 1 << 20

var ErrEndpointNotConfigured = errors.New("downstream endpoint not configured")

// StatusError is a non-2xx answer from the accounting system. Body is also
// returned to the caller alongside the error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned HTTP %d", e.StatusCode)
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.DownstreamClient. It makes exactly one attempt per call.
type Client struct {
	cfg  config.DownstreamConfig
	http HTTPClient
	log  zerolog.Logger
}

func NewClient(cfg config.DownstreamConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient, log: log}
}

func (c *Client) endpoint(kind domain.NotificationKind) string {
	switch kind {
	case domain.NotificationUpdate:
		return c.cfg.UpdateURL
	case domain.NotificationGenerate:
		return c.cfg.GenerateURL
	default:
		return ""
	}
}

// Send posts the notification as JSON and returns the response body.
func (c *Client) Send(ctx context.Context, notification domain.Notification) (string, error) {
	url := strings.TrimSpace(c.endpoint(notification.Kind()))
	if url == "" {
		return "", fmt.Errorf("%w: %s", ErrEndpointNotConfigured, notification.Kind())
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return "", fmt.Errorf("marshal downstream payload: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building downstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading downstream response: %w", err)
	}
	text := string(body)

	c.log.Debug().
		Str("kind", string(notification.Kind())).
		Int("status", resp.StatusCode).
		Msg("downstream notification answered")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return text, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return text, nil
}
