// Package joiner merges an interaction artifact with an observation
// artifact into a merged log.
//
// The observation artifact is indexed in memory by event id. The
// interaction artifact is then streamed one batch at a time: each batch
// becomes one JoinedPayload in which every interaction is followed by all
// observations sharing its id.
package joiner

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// Name is written to the joiner header property.
const Name = "joinery"

// DefaultEUD is the experimental unit duration written when none is configured.
const DefaultEUD = "-1"

// Config configures a join.
type Config struct {
	// Checkpoint is written verbatim as the Checkpoint frame.
	Checkpoint types.CheckpointInfo
	// EUD is the experimental unit duration header property.
	EUD string
	// Properties are appended to the header after the joiner's own.
	Properties []types.Property
	// JoinID overrides the generated join id.
	JoinID string
	// Now overrides the clock.
	Now func() time.Time

	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Stats summarizes a completed join.
type Stats struct {
	JoinID                string `json:"join_id"`
	Batches               int    `json:"batches"`
	Interactions          int    `json:"interactions"`
	ObservationsJoined    int    `json:"observations_joined"`
	UnmatchedInteractions int    `json:"unmatched_interactions"`
	UnusedObservationIDs  int    `json:"unused_observation_ids"`
	EmptyBatches          int    `json:"empty_batches"`
}

// Joiner runs joins.
type Joiner struct {
	cfg    Config
	logger *log.Logger
}

// New creates a Joiner. A zero Config joins with the earliest reward
// function, default reward 0 and online learning mode.
func New(cfg Config) *Joiner {
	if cfg.EUD == "" {
		cfg.EUD = DefaultEUD
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.JoinID == "" {
		cfg.JoinID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Joiner{cfg: cfg, logger: logger.With(log.Context{Component: "joiner", JoinID: cfg.JoinID})}
}

// JoinID returns the id written to the header.
func (j *Joiner) JoinID() string {
	return j.cfg.JoinID
}

// Header returns the header the joiner writes.
func (j *Joiner) Header() *types.FileHeader {
	props := []types.Property{
		{Key: types.HeaderEUD, Value: j.cfg.EUD},
		{Key: types.HeaderJoiner, Value: Name + "/" + types.Version},
		{Key: types.HeaderJoinID, Value: j.cfg.JoinID},
	}
	props = append(props, j.cfg.Properties...)
	return &types.FileHeader{Properties: props, JoinTime: j.cfg.Now().UTC()}
}

// Join indexes observations, then streams interactions into out as a
// complete merged log, EndOfFile included.
func (j *Joiner) Join(interactions, observations io.Reader, out io.Writer) (Stats, error) {
	index, err := BuildIndex(observations)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to index observations: %w", err)
	}
	j.cfg.Metrics.AddObservationsIndexed(index.Total())
	j.logger.Info("indexed observations", map[string]any{
		"observations": index.Total(),
		"ids":          index.Len(),
	})
	return j.JoinIndexed(interactions, index, out)
}

// JoinIndexed streams interactions into out against a prebuilt index.
func (j *Joiner) JoinIndexed(interactions io.Reader, index *Index, out io.Writer) (Stats, error) {
	stats := Stats{JoinID: j.cfg.JoinID}

	lw, err := joinlog.NewWriter(out, j.Header(), &j.cfg.Checkpoint)
	if err != nil {
		return stats, err
	}

	used := make(map[string]struct{})
	br := NewBatchReader(interactions)
	for {
		batch, err := br.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("interaction batch %d: %w", stats.Batches, err)
		}
		j.cfg.Metrics.IncBatchesRead()

		jp, err := j.joinBatch(batch, index, used, &stats)
		if err != nil {
			return stats, fmt.Errorf("interaction batch %d: %w", stats.Batches, err)
		}
		stats.Batches++
		if len(jp.Events) == 0 {
			stats.EmptyBatches++
			j.logger.Warn("skipping empty interaction batch", map[string]any{"batch": stats.Batches - 1})
			continue
		}
		if err := lw.WriteJoined(jp); err != nil {
			return stats, err
		}
		j.cfg.Metrics.IncPayloadsWritten()
	}

	if err := lw.Close(); err != nil {
		return stats, err
	}

	stats.UnusedObservationIDs = index.Len() - len(used)
	j.logger.Info("join complete", map[string]any{
		"batches":                stats.Batches,
		"interactions":           stats.Interactions,
		"observations_joined":    stats.ObservationsJoined,
		"unmatched_interactions": stats.UnmatchedInteractions,
		"unused_observation_ids": stats.UnusedObservationIDs,
	})
	return stats, nil
}

func (j *Joiner) joinBatch(batch *types.EventBatch, index *Index, used map[string]struct{}, stats *Stats) (*types.JoinedPayload, error) {
	ts := j.cfg.Now().UTC()
	jp := &types.JoinedPayload{Events: make([]types.JoinedEvent, 0, len(batch.Events))}

	for i, raw := range batch.Events {
		meta, err := codec.PeekMetadata(raw)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		jp.Events = append(jp.Events, types.JoinedEvent{Event: raw, Timestamp: ts})
		stats.Interactions++
		j.cfg.Metrics.IncInteractionsJoined()

		observations := index.Lookup(meta.ID)
		if len(observations) == 0 {
			stats.UnmatchedInteractions++
			j.cfg.Metrics.IncUnmatchedInteractions()
			continue
		}
		used[meta.ID] = struct{}{}
		for _, obs := range observations {
			jp.Events = append(jp.Events, types.JoinedEvent{Event: obs, Timestamp: ts})
		}
		stats.ObservationsJoined += len(observations)
		j.cfg.Metrics.AddObservationsJoined(len(observations))
	}
	return jp, nil
}
