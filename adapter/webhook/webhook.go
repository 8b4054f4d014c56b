// Package webhook posts join completion events to an HTTP endpoint.
//
// Every request carries the event type and an idempotency key derived from
// the command and join id, so receivers can drop duplicates caused by
// retries. With a secret configured the body is signed with HMAC-SHA256.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pithecene-io/joinery/adapter"
	"github.com/pithecene-io/joinery/iox"
)

// Request headers set on every delivery.
const (
	HeaderEvent          = "X-Joinery-Event"
	HeaderSignature      = "X-Joinery-Signature"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 10 * time.Second

// maxRetryAfter caps how long a Retry-After header may stall a retry.
const maxRetryAfter = 30 * time.Second

// Config configures the webhook adapter.
type Config struct {
	// URL is the endpoint to POST to (required).
	URL string
	// Headers are added to each request after the built-in headers.
	Headers map[string]string
	// Secret, when set, signs each body. The signature header holds
	// "sha256=" followed by the hex HMAC.
	Secret string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes completion events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	// RetryAfter is the server's requested delay, if any.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// retriable reports whether a status is worth another attempt: server
// errors and 429 are, other client errors are not.
func (e *StatusError) retriable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Publish posts the event. 5xx, 429 and network errors are retried.
func (a *Adapter) Publish(ctx context.Context, event *adapter.JoinCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	key := IdempotencyKey(event)

	return adapter.Retry(ctx, "webhook", a.config.Retries, func(ctx context.Context) error {
		err := a.post(ctx, body, event.EventType, key)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			return err
		}
		if !statusErr.retriable() {
			return adapter.Permanent(err)
		}
		if statusErr.RetryAfter > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(statusErr.RetryAfter):
			}
		}
		return err
	})
}

// IdempotencyKey identifies one completion across retries.
func IdempotencyKey(event *adapter.JoinCompletedEvent) string {
	return event.Command + ":" + event.JoinID
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) post(ctx context.Context, body []byte, eventType, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderIdempotencyKey, key)
	if a.config.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(a.config.Secret, body))
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
}

// parseRetryAfter reads a delay in seconds. HTTP dates and invalid values
// yield zero, which leaves the regular backoff in charge.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
