package reader

import (
	"fmt"
	"io"
	"math"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/types"
)

// InspectLog walks a merged log and summarizes it. Limit caps the number
// of payload details kept; 0 keeps none.
//
// A log that opens but breaks later is still summarized up to the break:
// Complete is false and Error holds the format error. Errors opening the
// log, and undecodable event metadata, are returned.
func InspectLog(r io.Reader, path string, limit int) (*InspectLogResponse, error) {
	lr, err := joinlog.Open(r)
	if err != nil {
		return nil, err
	}

	h := lr.Header()
	cp := lr.Checkpoint()
	resp := &InspectLogResponse{
		Path:       path,
		JoinTime:   h.JoinTime,
		Properties: make(map[string]string, len(h.Properties)),
		Checkpoint: CheckpointView{
			RewardFunction: cp.RewardFunction.String(),
			DefaultReward:  cp.DefaultReward,
			LearningMode:   cp.LearningMode.String(),
			ProblemType:    cp.ProblemType.String(),
			UseClientTime:  cp.UseClientTime,
		},
		EventsByType: make(map[string]int64),
	}
	resp.JoinID, _ = h.Get(types.HeaderJoinID)
	resp.Joiner, _ = h.Get(types.HeaderJoiner)
	for _, p := range h.Properties {
		if _, ok := resp.Properties[p.Key]; !ok {
			resp.Properties[p.Key] = p.Value
		}
	}

	ids := make(map[string]struct{})
	for {
		jp, err := lr.Next()
		if err == io.EOF {
			resp.Complete = true
			break
		}
		if joinlog.IsFormatError(err) {
			resp.Error = err.Error()
			break
		}
		if err != nil {
			return nil, err
		}

		ps := PayloadSummary{Index: resp.Payloads, Events: len(jp.Events)}
		for i, je := range jp.Events {
			meta, err := codec.PeekMetadata(je.Event)
			if err != nil {
				return nil, fmt.Errorf("payload %d event %d: %w", resp.Payloads, i, err)
			}
			if i == 0 {
				ps.FirstID = meta.ID
				ps.JoinTime = je.Timestamp
			}
			resp.EventsByType[meta.PayloadType.String()]++
			ids[meta.ID] = struct{}{}
			switch {
			case meta.PayloadType.IsInteraction():
				ps.Interactions++
			case meta.PayloadType == types.PayloadTypeOutcome:
				ps.Outcomes++
			}
		}

		resp.Events += ps.Events
		resp.Interactions += ps.Interactions
		resp.Outcomes += ps.Outcomes
		if len(resp.PayloadDetails) < limit {
			resp.PayloadDetails = append(resp.PayloadDetails, ps)
		}
		resp.Payloads++
	}
	resp.DistinctIDs = len(ids)
	return resp, nil
}

// StatsCollector accumulates ExampleStats.
type StatsCollector struct {
	stats     ExampleStats
	rewardSum float64
}

// NewStatsCollector returns an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{stats: ExampleStats{ByPayloadType: make(map[string]int64)}}
}

// Add records one example.
func (c *StatsCollector) Add(ex *types.Example) {
	if ex == nil {
		return
	}
	s := &c.stats
	if s.Examples == 0 {
		s.MinReward = float32(math.Inf(1))
		s.MaxReward = float32(math.Inf(-1))
	}
	s.Examples++
	if ex.Resolved {
		s.Resolved++
	} else {
		s.Unresolved++
	}
	if ex.StepID != "" {
		s.Steps++
	}
	if ex.Outcomes > 0 {
		s.WithOutcomes++
	}
	s.ByPayloadType[ex.PayloadType.String()]++
	c.rewardSum += float64(ex.Reward)
	s.MinReward = min(s.MinReward, ex.Reward)
	s.MaxReward = max(s.MaxReward, ex.Reward)
}

// Stats returns the aggregate so far. Reward bounds are zero when no
// examples were added.
func (c *StatsCollector) Stats() ExampleStats {
	s := c.stats
	if s.Examples == 0 {
		s.MinReward, s.MaxReward = 0, 0
		return s
	}
	s.MeanReward = c.rewardSum / float64(s.Examples)
	byType := make(map[string]int64, len(s.ByPayloadType))
	for k, v := range s.ByPayloadType {
		byType[k] = v
	}
	s.ByPayloadType = byType
	return s
}
