package reconstruct

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

var base = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

type logBuilder struct {
	t        *testing.T
	payloads [][]types.JoinedEvent
}

func (b *logBuilder) payload(events ...*types.Event) *logBuilder {
	b.t.Helper()
	var jes []types.JoinedEvent
	for i, ev := range events {
		raw, err := codec.EncodeEvent(ev)
		if err != nil {
			b.t.Fatalf("EncodeEvent failed: %v", err)
		}
		jes = append(jes, types.JoinedEvent{Event: raw, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	b.payloads = append(b.payloads, jes)
	return b
}

func (b *logBuilder) raw(events ...[]byte) *logBuilder {
	var jes []types.JoinedEvent
	for _, raw := range events {
		jes = append(jes, types.JoinedEvent{Event: raw, Timestamp: base})
	}
	b.payloads = append(b.payloads, jes)
	return b
}

func (b *logBuilder) build(cp types.CheckpointInfo) *bytes.Buffer {
	b.t.Helper()
	var buf bytes.Buffer
	hdr := &types.FileHeader{Properties: []types.Property{{Key: types.HeaderJoinID, Value: "j-1"}}}
	w, err := joinlog.NewWriter(&buf, hdr, &cp)
	if err != nil {
		b.t.Fatalf("NewWriter failed: %v", err)
	}
	for _, jes := range b.payloads {
		if err := w.WriteJoined(&types.JoinedPayload{Events: jes}); err != nil {
			b.t.Fatalf("WriteJoined failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		b.t.Fatalf("Close failed: %v", err)
	}
	return &buf
}

func newLog(t *testing.T) *logBuilder {
	return &logBuilder{t: t}
}

func cb(id string, actions ...uint64) *types.Event {
	probs := make([]float32, len(actions))
	for i := range probs {
		probs[i] = 1 / float32(len(actions))
	}
	return &types.Event{
		Meta:    types.Metadata{ID: id, PassProbability: 1},
		Payload: &types.CbPayload{Context: []byte("ctx-" + id), ActionIDs: actions, Probabilities: probs, ModelID: "m"},
	}
}

func deferredCb(id string, actions ...uint64) *types.Event {
	ev := cb(id, actions...)
	ev.Payload.(*types.CbPayload).DeferredAction = true
	return ev
}

func outcome(id string, v float32) *types.Event {
	return &types.Event{Meta: types.Metadata{ID: id}, Payload: &types.OutcomePayload{Value: types.NumericValue(v)}}
}

func actionTaken(id string, action int32) *types.Event {
	return &types.Event{Meta: types.Metadata{ID: id}, Payload: &types.OutcomePayload{Index: types.NumericIndex(action), ActionTaken: true}}
}

func stepEvent(episodeID, eventID string, prev *string, clientSec int) *types.Event {
	return &types.Event{
		Meta: types.Metadata{ID: episodeID, ClientTimeUTC: base.Add(time.Duration(clientSec) * time.Second), PassProbability: 1},
		Payload: &types.MultiStepPayload{
			EventID:       eventID,
			PreviousID:    prev,
			Context:       []byte(eventID),
			ActionIDs:     []uint64{3, 1},
			Probabilities: []float32{0.75, 0.25},
		},
	}
}

func stepOutcome(episodeID string, index *types.OutcomeIndex, v float32) *types.Event {
	return &types.Event{Meta: types.Metadata{ID: episodeID}, Payload: &types.OutcomePayload{Index: index, Value: types.NumericValue(v)}}
}

func ref(s string) *string { return &s }

func collect(t *testing.T, r *Reconstructor) []*types.Example {
	t.Helper()
	var out []*types.Example
	for {
		ex, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, ex)
	}
}

func open(t *testing.T, buf *bytes.Buffer, opts Options) *Reconstructor {
	t.Helper()
	r, err := Open(buf, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r
}

func TestReconstruct_AverageReward(t *testing.T) {
	buf := newLog(t).payload(cb("d1", 2, 1), outcome("d1", 1), outcome("d1", 3), outcome("d1", 5)).
		build(types.CheckpointInfo{RewardFunction: types.RewardAverage})

	examples := collect(t, open(t, buf, Options{}))
	if len(examples) != 1 {
		t.Fatalf("got %d examples, want 1", len(examples))
	}
	ex := examples[0]
	if ex.Reward != 3 || ex.Cost != -3 {
		t.Errorf("Reward = %v, Cost = %v; want 3, -3", ex.Reward, ex.Cost)
	}
	if ex.Action != 2 || !ex.Resolved || ex.Err() != nil {
		t.Errorf("Action = %d, Resolved = %v, Err = %v", ex.Action, ex.Resolved, ex.Err())
	}
	if ex.Probability != 0.5 {
		t.Errorf("Probability = %v, want 0.5", ex.Probability)
	}
	if ex.Outcomes != 3 {
		t.Errorf("Outcomes = %d, want 3", ex.Outcomes)
	}
	if ex.Weight != 1 {
		t.Errorf("Weight = %v, want 1", ex.Weight)
	}
}

func TestReconstruct_DefaultReward(t *testing.T) {
	buf := newLog(t).payload(cb("d1", 1)).build(types.CheckpointInfo{RewardFunction: types.RewardMedian, DefaultReward: 0.3})
	examples := collect(t, open(t, buf, Options{}))
	if len(examples) != 1 || examples[0].Reward != 0.3 {
		t.Fatalf("examples = %+v, want one with reward 0.3", examples)
	}
}

func TestReconstruct_DeferredAction(t *testing.T) {
	buf := newLog(t).
		payload(deferredCb("d1", 1, 2, 3), actionTaken("d1", 2), outcome("d1", 1)).
		payload(deferredCb("d2", 1, 2), outcome("d2", 1)).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 2 {
		t.Fatalf("got %d examples, want 2", len(examples))
	}

	if !examples[0].Resolved || examples[0].Action != 2 {
		t.Errorf("d1 Action = %d, Resolved = %v; want 2, true", examples[0].Action, examples[0].Resolved)
	}

	d2 := examples[1]
	if d2.Resolved {
		t.Error("d2 should be unresolved")
	}
	var unresolved *types.UnresolvedActionError
	if !errors.As(d2.Err(), &unresolved) || unresolved.DecisionID != "d2" {
		t.Errorf("d2.Err() = %v, want *UnresolvedActionError for d2", d2.Err())
	}
	if d2.Reward != 1 {
		t.Errorf("d2 Reward = %v, want 1", d2.Reward)
	}

	if s := collector.Snapshot(); s.UnresolvedActions != 1 || s.ExamplesEmitted != 2 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestReconstruct_FirstActionTakenWins(t *testing.T) {
	buf := newLog(t).
		payload(deferredCb("d1", 1, 2, 3), actionTaken("d1", 3), actionTaken("d1", 1)).
		build(types.CheckpointInfo{})
	examples := collect(t, open(t, buf, Options{}))
	if examples[0].Action != 3 {
		t.Errorf("Action = %d, want 3", examples[0].Action)
	}
}

func TestReconstruct_FlushOnNextDecision(t *testing.T) {
	buf := newLog(t).
		payload(cb("a", 1), outcome("a", 1), cb("b", 1), outcome("b", 2), outcome("a", 9)).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 2 {
		t.Fatalf("got %d examples, want 2", len(examples))
	}
	if examples[0].DecisionID != "a" || examples[0].Reward != 1 {
		t.Errorf("a = %+v", examples[0])
	}
	if examples[1].DecisionID != "b" || examples[1].Reward != 2 {
		t.Errorf("b = %+v", examples[1])
	}
	if s := collector.Snapshot(); s.OrphanOutcomes != 1 {
		t.Errorf("OrphanOutcomes = %d, want 1", s.OrphanOutcomes)
	}
}

func TestReconstruct_EarliestUsesClientTime(t *testing.T) {
	late := outcome("d", 1)
	late.Meta.ClientTimeUTC = base.Add(time.Hour)
	early := outcome("d", 2)
	early.Meta.ClientTimeUTC = base

	build := func() *bytes.Buffer {
		return newLog(t).payload(cb("d", 1), late, early).build(types.CheckpointInfo{RewardFunction: types.RewardEarliest})
	}

	joinTime := collect(t, open(t, build(), Options{}))
	if joinTime[0].Reward != 1 {
		t.Errorf("join-time earliest = %v, want 1", joinTime[0].Reward)
	}

	cp := types.CheckpointInfo{RewardFunction: types.RewardEarliest, UseClientTime: true}
	clientTime := collect(t, open(t, build(), Options{Checkpoint: &cp}))
	if clientTime[0].Reward != 2 {
		t.Errorf("client-time earliest = %v, want 2", clientTime[0].Reward)
	}
}

func TestReconstruct_ApprenticeMode(t *testing.T) {
	matching := cb("m", BaselineAction, 2)
	matching.Payload.(*types.CbPayload).LearningMode = types.LearningModeApprentice
	diverging := cb("x", 2, BaselineAction)
	diverging.Payload.(*types.CbPayload).LearningMode = types.LearningModeApprentice

	buf := newLog(t).
		payload(matching, outcome("m", 1)).
		payload(diverging, outcome("x", 1)).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum, DefaultReward: -0.5})

	examples := collect(t, open(t, buf, Options{}))
	if examples[0].Reward != 1 {
		t.Errorf("matching apprentice reward = %v, want 1", examples[0].Reward)
	}
	if examples[1].Reward != -0.5 {
		t.Errorf("diverging apprentice reward = %v, want default -0.5", examples[1].Reward)
	}
}

func TestReconstruct_LiteralAndImportanceWeight(t *testing.T) {
	d := cb("d", 1)
	d.Meta.PassProbability = 0.25
	lit := &types.Event{Meta: types.Metadata{ID: "d"}, Payload: &types.OutcomePayload{Value: types.LiteralValue("0.5")}}
	junk := &types.Event{Meta: types.Metadata{ID: "d"}, Payload: &types.OutcomePayload{Value: types.LiteralValue("click")}}

	buf := newLog(t).payload(d, lit, junk).build(types.CheckpointInfo{RewardFunction: types.RewardSum})
	examples := collect(t, open(t, buf, Options{}))
	if examples[0].Reward != 0.5 {
		t.Errorf("Reward = %v, want 0.5", examples[0].Reward)
	}
	if examples[0].Weight != 4 {
		t.Errorf("Weight = %v, want 4", examples[0].Weight)
	}
}

func TestReconstruct_Episode(t *testing.T) {
	// Steps arrive child-first; the joiner repeats the episode outcomes
	// after every step.
	o1 := stepOutcome("ep", types.LiteralIndex("s1"), 1)
	o2 := stepOutcome("ep", types.LiteralIndex("s2"), 2)
	oEp := stepOutcome("ep", nil, 10)

	buf := newLog(t).
		payload(
			stepEvent("ep", "s3", ref("s2"), 3), o1, o2, oEp,
			stepEvent("ep", "s2", ref("s1"), 2), o1, o2, oEp,
			stepEvent("ep", "s1", nil, 1), o1, o2, oEp,
		).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 3 {
		t.Fatalf("got %d examples, want 3", len(examples))
	}

	want := []struct {
		step   string
		depth  int
		reward float32
	}{
		{"s1", 0, 11},
		{"s2", 1, 2},
		{"s3", 2, 0},
	}
	for i, w := range want {
		ex := examples[i]
		if ex.DecisionID != "ep" || ex.StepID != w.step || ex.Depth != w.depth {
			t.Errorf("examples[%d] = %s/%s depth %d, want ep/%s depth %d", i, ex.DecisionID, ex.StepID, ex.Depth, w.step, w.depth)
		}
		if ex.Reward != w.reward {
			t.Errorf("%s Reward = %v, want %v", w.step, ex.Reward, w.reward)
		}
		if ex.Action != 3 || !ex.Resolved || ex.Probability != 0.75 {
			t.Errorf("%s Action = %d, Resolved = %v, Probability = %v", w.step, ex.Action, ex.Resolved, ex.Probability)
		}
	}
	if s := collector.Snapshot(); s.OrphanOutcomes != 0 {
		t.Errorf("OrphanOutcomes = %d, want 0", s.OrphanOutcomes)
	}
}

func TestReconstruct_RepeatedRunsCountOnce(t *testing.T) {
	one := func(id string) *types.Event { return outcome(id, 1) }
	epOne := func() *types.Event { return stepOutcome("ep", nil, 1) }
	epThree := func() *types.Event { return stepOutcome("ep", nil, 3) }

	tests := []struct {
		name         string
		events       []*types.Event
		wantReward   float32
		wantOutcomes int
	}{
		{
			name:         "identical outcomes on a decision",
			events:       []*types.Event{cb("d", 1), one("d"), one("d"), outcome("d", 3)},
			wantReward:   5.0 / 3,
			wantOutcomes: 3,
		},
		{
			name:         "duplicate interaction repeats its outcomes",
			events:       []*types.Event{cb("d", 1), one("d"), outcome("d", 3), cb("d", 1), one("d"), outcome("d", 3)},
			wantReward:   2,
			wantOutcomes: 2,
		},
		{
			name:         "identical outcomes on a single step",
			events:       []*types.Event{stepEvent("ep", "s1", nil, 1), epOne(), epOne(), epThree()},
			wantReward:   5.0 / 3,
			wantOutcomes: 3,
		},
		{
			name: "episode outcomes repeated after every step",
			events: []*types.Event{
				stepEvent("ep", "s2", ref("s1"), 2), epOne(), epOne(), epThree(),
				stepEvent("ep", "s1", nil, 1), epOne(), epOne(), epThree(),
			},
			wantReward:   5.0 / 3,
			wantOutcomes: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newLog(t).payload(tt.events...).build(types.CheckpointInfo{RewardFunction: types.RewardAverage})
			examples := collect(t, open(t, buf, Options{}))
			if len(examples) == 0 {
				t.Fatal("got no examples")
			}
			ex := examples[0]
			if ex.Outcomes != tt.wantOutcomes {
				t.Errorf("Outcomes = %d, want %d", ex.Outcomes, tt.wantOutcomes)
			}
			if diff := ex.Reward - tt.wantReward; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("Reward = %v, want %v", ex.Reward, tt.wantReward)
			}
		})
	}
}

func TestReconstruct_DuplicateInteractionSum(t *testing.T) {
	buf := newLog(t).
		payload(cb("d1", 1), outcome("d1", 1), cb("d1", 1), outcome("d1", 1)).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 1 {
		t.Fatalf("got %d examples, want 1", len(examples))
	}
	if examples[0].Reward != 1 || examples[0].Outcomes != 1 {
		t.Errorf("Reward = %v, Outcomes = %d; want 1, 1", examples[0].Reward, examples[0].Outcomes)
	}
	if s := collector.Snapshot(); s.SkippedByType[skipDuplicateInteraction] != 1 {
		t.Errorf("SkippedByType = %v", s.SkippedByType)
	}
}

func TestReconstruct_DeferredStep(t *testing.T) {
	deferred := func(eventID string, prev *string, sec int) *types.Event {
		ev := stepEvent("ep", eventID, prev, sec)
		ev.Payload.(*types.MultiStepPayload).DeferredAction = true
		return ev
	}
	taken := func(step string, v types.OutcomeValue) *types.Event {
		return &types.Event{Meta: types.Metadata{ID: "ep"}, Payload: &types.OutcomePayload{
			Index:       types.LiteralIndex(step),
			Value:       v,
			ActionTaken: true,
		}}
	}

	buf := newLog(t).
		payload(
			deferred("s1", nil, 1),
			deferred("s2", ref("s1"), 2),
			stepEvent("ep", "s3", ref("s2"), 3),
			taken("s1", types.NumericValue(1)),
			taken("s1", types.NumericValue(3)),
			stepOutcome("ep", types.LiteralIndex("s1"), 2),
			taken("s3", types.NumericValue(1)),
		).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 3 {
		t.Fatalf("got %d examples, want 3", len(examples))
	}

	s1, s2, s3 := examples[0], examples[1], examples[2]
	if !s1.Resolved || s1.Action != 1 || s1.Probability != 0.25 {
		t.Errorf("s1 Action = %d, Resolved = %v, Probability = %v; want 1, true, 0.25", s1.Action, s1.Resolved, s1.Probability)
	}
	if s1.Reward != 2 || s1.Outcomes != 1 {
		t.Errorf("s1 Reward = %v, Outcomes = %d; want 2, 1", s1.Reward, s1.Outcomes)
	}
	var unresolved *types.UnresolvedActionError
	if s2.Resolved || !errors.As(s2.Err(), &unresolved) {
		t.Errorf("s2 Resolved = %v, Err = %v; want unresolved", s2.Resolved, s2.Err())
	}
	if !s3.Resolved || s3.Action != 3 || s3.Outcomes != 0 {
		t.Errorf("s3 Action = %d, Resolved = %v, Outcomes = %d; want logged action 3", s3.Action, s3.Resolved, s3.Outcomes)
	}
	if s := collector.Snapshot(); s.UnresolvedActions != 1 {
		t.Errorf("UnresolvedActions = %d, want 1", s.UnresolvedActions)
	}
}

func TestActionFromValue(t *testing.T) {
	tests := []struct {
		in      types.OutcomeValue
		want    uint64
		wantErr bool
	}{
		{types.NumericValue(4), 4, false},
		{types.LiteralValue(" 7 "), 7, false},
		{types.NumericValue(1.5), 0, true},
		{types.NumericValue(-1), 0, true},
		{types.LiteralValue("left"), 0, true},
		{types.OutcomeValue{}, 0, true},
	}
	for _, tt := range tests {
		got, err := actionFromValue(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("actionFromValue(%+v) = %d, %v; want %d, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestReconstruct_EpisodeSuffixSum(t *testing.T) {
	buf := newLog(t).
		payload(
			stepEvent("ep", "s1", nil, 1),
			stepEvent("ep", "s2", ref("s1"), 2),
			stepOutcome("ep", types.LiteralIndex("s1"), 1),
			stepOutcome("ep", types.LiteralIndex("s2"), 2),
		).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	examples := collect(t, open(t, buf, Options{MultistepReward: MultistepSuffixSum}))
	if len(examples) != 2 {
		t.Fatalf("got %d examples, want 2", len(examples))
	}
	if examples[0].Reward != 3 || examples[1].Reward != 2 {
		t.Errorf("rewards = %v, %v; want 3, 2", examples[0].Reward, examples[1].Reward)
	}
}

func TestReconstruct_DanglingEpisodeDropped(t *testing.T) {
	buf := newLog(t).
		payload(stepEvent("bad", "s2", ref("missing"), 1)).
		payload(cb("ok", 1), outcome("ok", 1)).
		build(types.CheckpointInfo{RewardFunction: types.RewardSum})

	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 1 || examples[0].DecisionID != "ok" {
		t.Fatalf("examples = %+v, want only ok", examples)
	}
	if s := collector.Snapshot(); s.DanglingEpisodes != 1 {
		t.Errorf("DanglingEpisodes = %d, want 1", s.DanglingEpisodes)
	}
}

func TestReconstruct_SkipsUnsupportedInteractions(t *testing.T) {
	ca := &types.Event{Meta: types.Metadata{ID: "ca"}, Payload: &types.CaPayload{Action: 1.5}}
	dedup := &types.Event{Meta: types.Metadata{ID: "dd"}, Payload: &types.DedupInfoPayload{IDs: []uint64{1}, Values: []string{"x"}}}

	buf := newLog(t).payload(dedup, ca, cb("d", 1)).build(types.CheckpointInfo{})
	collector := metrics.NewCollector("parse", "", "")
	examples := collect(t, open(t, buf, Options{Metrics: collector}))
	if len(examples) != 1 {
		t.Fatalf("got %d examples, want 1", len(examples))
	}
	s := collector.Snapshot()
	if s.SkippedByType["ca"] != 1 || s.SkippedByType["dedup_info"] != 1 {
		t.Errorf("SkippedByType = %v", s.SkippedByType)
	}
}

func TestReconstruct_ProblemTypeMismatch(t *testing.T) {
	buf := newLog(t).payload(cb("d", 1)).build(types.CheckpointInfo{ProblemType: types.ProblemTypeCA})
	collector := metrics.NewCollector("parse", "", "")
	if examples := collect(t, open(t, buf, Options{Metrics: collector})); len(examples) != 0 {
		t.Errorf("got %d examples, want 0", len(examples))
	}
	if s := collector.Snapshot(); s.SkippedByType[skipProblemTypeMismatch] != 1 {
		t.Errorf("SkippedByType = %v", s.SkippedByType)
	}
}

func TestReconstruct_DecodeErrorsPropagate(t *testing.T) {
	good, _ := codec.EncodeEvent(cb("d", 1))

	t.Run("malformed event", func(t *testing.T) {
		buf := newLog(t).raw(good).raw([]byte{0xC1}).build(types.CheckpointInfo{})
		r := open(t, buf, Options{})
		if _, err := r.Next(); err != nil {
			t.Fatalf("first Next failed: %v", err)
		}
		_, err := r.Next()
		var fe *joinlog.FormatError
		if !errors.As(err, &fe) || fe.Kind != joinlog.FormatErrorEvent {
			t.Fatalf("expected malformed event format error, got %v", err)
		}
		if fe.Offset <= 0 {
			t.Errorf("Offset = %d, want the payload frame offset", fe.Offset)
		}
		if !codec.IsDecodeError(err) {
			t.Errorf("format error should wrap the decode error, got %v", err)
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("expected io.EOF after failure, got %v", err)
		}
	})

	t.Run("corrupt container", func(t *testing.T) {
		buf := newLog(t).raw(good).build(types.CheckpointInfo{})
		truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()-8])
		r := open(t, truncated, Options{})
		if _, err := r.Next(); err != nil {
			t.Fatalf("first Next failed: %v", err)
		}
		if _, err := r.Next(); !joinlog.IsFormatError(err) {
			t.Errorf("expected format error, got %v", err)
		}
	})
}

func TestReconstruct_HeaderAndCheckpoint(t *testing.T) {
	buf := newLog(t).build(types.CheckpointInfo{RewardFunction: types.RewardMax})
	r := open(t, buf, Options{})
	if r.Checkpoint().RewardFunction != types.RewardMax {
		t.Errorf("Checkpoint = %+v", r.Checkpoint())
	}
	if v, _ := r.Header().Get(types.HeaderJoinID); v != "j-1" {
		t.Errorf("join_id = %q", v)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF for empty log, got %v", err)
	}
}
