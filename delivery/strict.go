package delivery

import (
	"context"

	"github.com/pithecene-io/joinery/types"
)

// StrictPolicy writes each example to the sink as it arrives.
// Sink errors are returned to the caller; nothing is buffered.
type StrictPolicy struct {
	sink  Sink
	opts  Options
	stats *statsRecorder
}

// NewStrictPolicy creates a strict policy writing to sink.
func NewStrictPolicy(sink Sink, opts Options) *StrictPolicy {
	return &StrictPolicy{sink: sink, opts: opts, stats: newStatsRecorder()}
}

// Ingest writes ex immediately (batch of 1).
func (p *StrictPolicy) Ingest(ctx context.Context, ex *types.Example) error {
	p.stats.mu.Lock()
	p.stats.incTotalLocked()
	if reason := p.opts.dropReason(ex); reason != "" {
		p.stats.incDroppedLocked(reason)
		p.stats.mu.Unlock()
		return nil
	}
	p.stats.mu.Unlock()

	err := p.sink.WriteExamples(ctx, []*types.Example{ex})

	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()
	if err != nil {
		p.stats.incErrorsLocked()
		return err
	}
	p.stats.incPersistedLocked(1)
	return nil
}

// Flush is a no-op; strict policy buffers nothing.
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()

	p.stats.incFlushLocked()
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()

	return p.stats.snapshotLocked()
}
