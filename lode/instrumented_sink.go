package lode

import (
	"context"
	"errors"

	"github.com/pithecene-io/joinery/delivery"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// InstrumentedSink counts each non-empty batch it forwards as a Lode
// write success or failure. Batches abandoned by cancellation are not
// counted.
type InstrumentedSink struct {
	delivery.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps inner. A nil collector disables counting.
func NewInstrumentedSink(inner delivery.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{Sink: inner, collector: collector}
}

// WriteExamples forwards the batch and records the outcome.
func (s *InstrumentedSink) WriteExamples(ctx context.Context, examples []*types.Example) error {
	err := s.Sink.WriteExamples(ctx, examples)
	switch {
	case len(examples) == 0:
	case err == nil:
		s.collector.IncLodeWriteSuccess()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		s.collector.IncLodeWriteFailure()
	}
	return err
}
