package delivery

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pithecene-io/joinery/types"
)

// Drop reasons.
const (
	// DropUnresolved marks an example whose deferred action never arrived.
	DropUnresolved = "unresolved"
)

// Policy controls how examples reach a sink.
type Policy interface {
	// Ingest accepts one example. Returns error on sink failure.
	Ingest(ctx context.Context, ex *types.Example) error

	// Flush writes any buffered examples.
	Flush(ctx context.Context) error

	// Close closes the sink. It does not flush.
	Close() error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats
}

// Stats are policy counters.
type Stats struct {
	TotalExamples     int64            `json:"total_examples"`
	ExamplesPersisted int64            `json:"examples_persisted"`
	ExamplesDropped   int64            `json:"examples_dropped"`
	DroppedByReason   map[string]int64 `json:"dropped_by_reason,omitempty"`
	Buffered          int64            `json:"buffered"`
	FlushCount        int64            `json:"flush_count"`
	Errors            int64            `json:"errors"`
}

// Options are shared by all policies.
type Options struct {
	// SkipUnresolved drops examples without a chosen action instead of
	// writing them.
	SkipUnresolved bool
}

// dropReason returns the reason ex should be dropped, or "".
func (o Options) dropReason(ex *types.Example) string {
	if o.SkipUnresolved && !ex.Resolved {
		return DropUnresolved
	}
	return ""
}

// statsRecorder guards Stats. Methods suffixed Locked require the caller to
// hold mu.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{DroppedByReason: make(map[string]int64)}}
}

func (r *statsRecorder) incTotalLocked()            { r.stats.TotalExamples++ }
func (r *statsRecorder) incPersistedLocked(n int64) { r.stats.ExamplesPersisted += n }
func (r *statsRecorder) incErrorsLocked()           { r.stats.Errors++ }
func (r *statsRecorder) incFlushLocked()            { r.stats.FlushCount++ }
func (r *statsRecorder) setBufferedLocked(n int64)  { r.stats.Buffered = n }

func (r *statsRecorder) incDroppedLocked(reason string) {
	r.stats.ExamplesDropped++
	r.stats.DroppedByReason[reason]++
}

func (r *statsRecorder) snapshotLocked() Stats {
	s := r.stats
	s.DroppedByReason = make(map[string]int64, len(r.stats.DroppedByReason))
	for k, v := range r.stats.DroppedByReason {
		s.DroppedByReason[k] = v
	}
	return s
}

// Source yields examples until io.EOF.
type Source interface {
	Next() (*types.Example, error)
}

// Drain pulls every example from src into p, then flushes. It stops at the
// first error from either side, or when ctx is cancelled.
func Drain(ctx context.Context, src Source, p Policy) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		ex, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if err := p.Ingest(ctx, ex); err != nil {
			return n, err
		}
		n++
	}
	return n, p.Flush(ctx)
}
