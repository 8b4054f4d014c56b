package delivery

import (
	"context"
	"errors"

	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/types"
)

// DefaultMaxBuffer is the buffered policy batch size when none is set.
const DefaultMaxBuffer = 1000

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: MaxBuffer must not be negative")

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	Options
	// MaxBuffer is the number of examples that triggers a flush.
	MaxBuffer int
	// Logger is optional.
	Logger *log.Logger
}

// BufferedPolicy batches examples and writes them when the buffer fills or
// on Flush. A failed flush keeps the buffer intact so a retry writes the
// same batch again (at-least-once).
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	// mu (stats.mu) guards buffer and stats together.
	buffer []*types.Example
	stats  *statsRecorder
}

// NewBufferedPolicy creates a buffered policy writing to sink.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBuffer < 0 {
		return nil, ErrInvalidConfig
	}
	if config.MaxBuffer == 0 {
		config.MaxBuffer = DefaultMaxBuffer
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: logger.With(log.Context{Component: "delivery"}),
		buffer: make([]*types.Example, 0, min(config.MaxBuffer, DefaultMaxBuffer)),
		stats:  newStatsRecorder(),
	}, nil
}

// Ingest buffers ex, flushing when the buffer reaches MaxBuffer.
func (p *BufferedPolicy) Ingest(ctx context.Context, ex *types.Example) error {
	p.stats.mu.Lock()
	p.stats.incTotalLocked()
	if reason := p.config.dropReason(ex); reason != "" {
		p.stats.incDroppedLocked(reason)
		p.stats.mu.Unlock()
		return nil
	}
	p.buffer = append(p.buffer, ex)
	p.stats.setBufferedLocked(int64(len(p.buffer)))
	full := len(p.buffer) >= p.config.MaxBuffer
	p.stats.mu.Unlock()

	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered examples in one batch.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.stats.mu.Lock()
	p.stats.incFlushLocked()
	batch := p.buffer
	p.stats.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := p.sink.WriteExamples(ctx, batch); err != nil {
		p.stats.mu.Lock()
		p.stats.incErrorsLocked()
		p.stats.mu.Unlock()
		p.logger.Error("flush failed, keeping buffer", map[string]any{
			"buffered": len(batch),
			"error":    err.Error(),
		})
		return err
	}

	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()
	p.stats.incPersistedLocked(int64(len(batch)))
	// Examples ingested while the write was in flight stay buffered.
	p.buffer = append(make([]*types.Example, 0, cap(p.buffer)), p.buffer[len(batch):]...)
	p.stats.setBufferedLocked(int64(len(p.buffer)))
	return nil
}

// Close closes the underlying sink. Buffered examples are not flushed.
func (p *BufferedPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()

	return p.stats.snapshotLocked()
}
