// Package redis delivers join completion events through Redis.
//
// In publish mode the JSON event goes to a pub/sub channel, reaching only
// subscribers connected at that moment. In stream mode it is appended to a
// capped stream with XADD, so consumers that were offline can catch up.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/joinery/adapter"
)

// Delivery modes.
const (
	ModePublish = "publish"
	ModeStream  = "stream"
)

// DefaultChannel is the default channel, or stream key in stream mode.
const DefaultChannel = "joinery:join_completed"

// DefaultTimeout is the default per-command timeout.
const DefaultTimeout = 5 * time.Second

// DefaultStreamMaxLen caps the stream in stream mode.
const DefaultStreamMaxLen = 10000

// Config configures the Redis adapter.
type Config struct {
	// URL is the connection URL (required): redis://[:password@]host:port[/db]
	URL string
	// Mode is ModePublish (default) or ModeStream.
	Mode string
	// Channel is the pub/sub channel or stream key.
	Channel string
	// StreamMaxLen caps the stream length in stream mode.
	StreamMaxLen int64
	// Timeout is the per-command timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter sends completion events to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter. It does not connect until the first send.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	switch cfg.Mode {
	case "":
		cfg.Mode = ModePublish
	case ModePublish, ModeStream:
	default:
		return nil, fmt.Errorf("redis adapter: unknown mode %q (must be %s or %s)", cfg.Mode, ModePublish, ModeStream)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish sends the event in the configured mode.
func (a *Adapter) Publish(ctx context.Context, event *adapter.JoinCompletedEvent) error {
	body, err := adapter.Encode(event)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, func(ctx context.Context) error {
		cmdCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		if a.config.Mode == ModeStream {
			return a.client.XAdd(cmdCtx, &goredis.XAddArgs{
				Stream: a.config.Channel,
				MaxLen: a.config.StreamMaxLen,
				Values: map[string]any{
					"join_id": event.JoinID,
					"command": event.Command,
					"outcome": event.Outcome,
					"event":   string(body),
				},
			}).Err()
		}
		return a.client.Publish(cmdCtx, a.config.Channel, body).Err()
	})
}

// Close closes the client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
