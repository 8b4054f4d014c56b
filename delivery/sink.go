// Package delivery moves reconstructed examples into sinks.
//
// A Policy sits between the reconstructor and a Sink and decides when
// examples are written: strict writes each one immediately, buffered
// batches them.
package delivery

import (
	"context"
	"sync"

	"github.com/pithecene-io/joinery/types"
)

// Sink abstracts example persistence.
// Implementations may write to storage, a file, or stub for testing.
type Sink interface {
	// WriteExamples persists a batch of examples.
	// Must preserve ordering within the batch.
	WriteExamples(ctx context.Context, examples []*types.Example) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that records writes.
type StubSink struct {
	mu sync.Mutex

	// Written stores all written examples in order.
	Written []*types.Example
	// Batches is the number of WriteExamples calls.
	Batches int64
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnWrite, if non-nil, is returned by WriteExamples.
	ErrorOnWrite error
}

// NewStubSink creates a new stub sink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteExamples records the examples.
func (s *StubSink) WriteExamples(_ context.Context, examples []*types.Example) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.Batches++
	s.Written = append(s.Written, examples...)
	return nil
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// SetError sets the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ErrorOnWrite = err
}

// Snapshot returns a copy of the written examples and batch count.
func (s *StubSink) Snapshot() ([]*types.Example, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Example, len(s.Written))
	copy(out, s.Written)
	return out, s.Batches
}
