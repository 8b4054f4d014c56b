// Package adapter publishes join completion notifications to downstream
// systems.
//
// Adapters are optional. A failed notification never invalidates a join or
// a reconstruction; the CLI reports it with its own exit code.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
)

// EventTypeJoinCompleted is the event type of every JoinCompletedEvent.
const EventTypeJoinCompleted = "join_completed"

// Outcome values.
const (
	OutcomeSuccess      = "success"
	OutcomeFormatError  = "format_error"
	OutcomeStorageError = "storage_error"
)

// JoinCompletedEvent is the payload published when a join or a
// reconstruction finishes.
type JoinCompletedEvent struct {
	Version   string `json:"version"`
	EventType string `json:"event_type"`
	Command   string `json:"command"`
	JoinID    string `json:"join_id"`
	Outcome   string `json:"outcome"`
	Output    string `json:"output,omitempty"`
	// StoragePath is where reconstructed examples were written, if anywhere.
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"` // RFC 3339

	Interactions          int64 `json:"interactions"`
	ObservationsJoined    int64 `json:"observations_joined"`
	UnmatchedInteractions int64 `json:"unmatched_interactions"`
	Examples              int64 `json:"examples"`
	DurationMs            int64 `json:"duration_ms"`
}

// Adapter publishes completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event. Must respect context cancellation
	// and deadlines.
	Publish(ctx context.Context, event *JoinCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Encode renders an event as JSON.
func Encode(event *JoinCompletedEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

// BaseBackoff is the delay before the first retry. Each further retry
// doubles it.
var BaseBackoff = 500 * time.Millisecond

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "non-retriable error: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retry stops immediately.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. It stops early on success, on a PermanentError, or when ctx is
// done. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var permanent *PermanentError
		if errors.As(lastErr, &permanent) {
			return fmt.Errorf("%s: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

// Notify publishes event through a and records the result. A nil adapter
// is a no-op.
func Notify(ctx context.Context, a Adapter, event *JoinCompletedEvent, collector *metrics.Collector, logger *log.Logger) error {
	if a == nil {
		return nil
	}
	if logger == nil {
		logger = log.Nop()
	}
	if err := a.Publish(ctx, event); err != nil {
		collector.IncNotifyFailure()
		logger.Error("notification failed", map[string]any{
			"join_id": event.JoinID,
			"error":   err.Error(),
		})
		return err
	}
	collector.IncNotifySuccess()
	logger.Debug("notification published", map[string]any{"join_id": event.JoinID})
	return nil
}

// StubAdapter records published events for testing.
type StubAdapter struct {
	Events []*JoinCompletedEvent
	Err    error
	Closed bool
}

// Publish implements Adapter.
func (s *StubAdapter) Publish(_ context.Context, event *JoinCompletedEvent) error {
	if s.Err != nil {
		return s.Err
	}
	s.Events = append(s.Events, event)
	return nil
}

// Close implements Adapter.
func (s *StubAdapter) Close() error {
	s.Closed = true
	return nil
}

var _ Adapter = (*StubAdapter)(nil)
