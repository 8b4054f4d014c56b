// Package lode persists reconstructed examples and invocation metrics in a
// Lode dataset on the local filesystem or S3.
package lode

import (
	"context"
	"time"

	"github.com/pithecene-io/joinery/delivery"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// DefaultDataset is the dataset id used when none is configured.
const DefaultDataset = "joinery"

// DeriveDay computes the partition day from a join time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds Lode sink configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key for the producing application.
	Source string
	// Day is the partition key derived from the join time (YYYY-MM-DD UTC).
	Day string
	// JoinID is the partition key for the merged log the examples came from.
	JoinID string
}

func (c Config) withDefaults() Config {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Source == "" {
		c.Source = "default"
	}
	if c.Day == "" {
		c.Day = DeriveDay(time.Now())
	}
	return c
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteExamples writes a batch of examples. Must preserve ordering
	// within the batch.
	WriteExamples(ctx context.Context, examples []*types.Example) error

	// WriteMetrics writes one metrics record for the invocation.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed implementation of delivery.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteExamples implements delivery.Sink.
func (s *Sink) WriteExamples(ctx context.Context, examples []*types.Example) error {
	return s.client.WriteExamples(ctx, examples)
}

// Close implements delivery.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ delivery.Sink = (*Sink)(nil)

// StubClient records writes without persisting.
type StubClient struct {
	Examples [][]*types.Example
	Metrics  []metrics.Snapshot
	Closed   bool
	Err      error
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteExamples implements Client.
func (c *StubClient) WriteExamples(_ context.Context, examples []*types.Example) error {
	if c.Err != nil {
		return c.Err
	}
	c.Examples = append(c.Examples, examples)
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	if c.Err != nil {
		return c.Err
	}
	c.Metrics = append(c.Metrics, snap)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.Closed = true
	return nil
}

var _ Client = (*StubClient)(nil)
