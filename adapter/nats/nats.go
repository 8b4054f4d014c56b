// Package nats implements a NATS adapter.
//
// Publishes join completion events as JSON to a NATS subject and flushes
// so a returned nil means the server has the message.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pithecene-io/joinery/adapter"
)

// DefaultSubject is the default subject.
const DefaultSubject = "joinery.join_completed"

// DefaultTimeout is the default connect and per-publish timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the NATS adapter.
type Config struct {
	// URL is the NATS server URL (required).
	URL string
	// Subject is the subject to publish on (default: joinery.join_completed).
	Subject string
	// Timeout bounds connecting and each publish+flush (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes completion events to a NATS subject.
type Adapter struct {
	config Config
	conn   *nats.Conn
}

// New connects to NATS and returns an adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats adapter requires a URL")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("joinery"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}
	return &Adapter{config: cfg, conn: nc}, nil
}

// Publish sends the event and waits for the server to acknowledge the flush.
func (a *Adapter) Publish(ctx context.Context, event *adapter.JoinCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}

	return adapter.Retry(ctx, "nats", a.config.Retries, func(ctx context.Context) error {
		if err := a.conn.Publish(a.config.Subject, body); err != nil {
			if errors.Is(err, nats.ErrConnectionClosed) {
				return adapter.Permanent(err)
			}
			return err
		}
		flushCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.conn.FlushWithContext(flushCtx)
	})
}

// Close closes the connection.
func (a *Adapter) Close() error {
	a.conn.Close()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
