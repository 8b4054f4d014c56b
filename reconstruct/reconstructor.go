// Package reconstruct turns a merged log into training examples.
//
// Each JoinedPayload is processed in isolation. A contextual-bandit
// decision opens at its interaction and accumulates every following outcome
// with the same id; it is flushed when the next interaction of a different
// decision starts or the payload ends. Multi-step episodes are gathered for
// the whole payload, linked with the episode package and flushed at the end
// of the payload, so their steps may arrive in any order.
package reconstruct

import (
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/episode"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// Skip reasons recorded in metrics alongside payload type names.
const (
	skipDuplicateInteraction = "duplicate_interaction"
	skipProblemTypeMismatch  = "problem_type_mismatch"
)

// BaselineAction is the action an apprentice decision must have chosen for
// its outcomes to count.
const BaselineAction uint64 = 1

// Options configures a Reconstructor.
type Options struct {
	// Checkpoint overrides the checkpoint read from the log.
	Checkpoint *types.CheckpointInfo
	// MultistepReward reshapes episode rewards. Defaults to identity.
	MultistepReward MultistepReward

	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Reconstructor yields examples from a merged log. It is single-use and
// not safe for concurrent use.
type Reconstructor struct {
	lr      *joinlog.Reader
	cp      types.CheckpointInfo
	opts    Options
	logger  *log.Logger
	pending []*types.Example
	done    bool
}

// Open validates a merged log and returns a Reconstructor over it.
func Open(r io.Reader, opts Options) (*Reconstructor, error) {
	lr, err := joinlog.Open(r)
	if err != nil {
		return nil, err
	}
	return New(lr, opts), nil
}

// New returns a Reconstructor over an opened log.
func New(lr *joinlog.Reader, opts Options) *Reconstructor {
	cp := *lr.Checkpoint()
	if opts.Checkpoint != nil {
		cp = *opts.Checkpoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	joinID, _ := lr.Header().Get(types.HeaderJoinID)
	return &Reconstructor{
		lr:     lr,
		cp:     cp,
		opts:   opts,
		logger: logger.With(log.Context{Component: "reconstruct", JoinID: joinID}),
	}
}

// Checkpoint returns the reward policy in effect.
func (r *Reconstructor) Checkpoint() types.CheckpointInfo {
	return r.cp
}

// Header returns the merged log header.
func (r *Reconstructor) Header() *types.FileHeader {
	return r.lr.Header()
}

// Next returns the next example, or io.EOF when the log is exhausted.
// Format and decode errors are returned as-is and end reconstruction.
func (r *Reconstructor) Next() (*types.Example, error) {
	for len(r.pending) == 0 {
		if r.done {
			return nil, io.EOF
		}
		jp, err := r.lr.Next()
		if err == io.EOF {
			r.done = true
			continue
		}
		if err != nil {
			r.done = true
			return nil, err
		}
		r.opts.Metrics.IncPayloadsRead()
		if err := r.processPayload(jp); err != nil {
			r.done = true
			return nil, fmt.Errorf("payload %d: %w", r.lr.Regular()-1, err)
		}
	}
	ex := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return ex, nil
}

type decodedEvent struct {
	raw      []byte
	event    *types.Event
	joinTime time.Time
	seq      int
}

// outcomeRuns holds the outcomes of one id, split into runs. A run is the
// stretch of outcomes following one interaction with that id. The joiner
// appends every observation of an id after each interaction carrying it,
// so runs repeat each other and only the largest count of an outcome
// within a single run is real.
type outcomeRuns struct {
	runs [][]decodedEvent
}

func (o *outcomeRuns) start() {
	o.runs = append(o.runs, nil)
}

func (o *outcomeRuns) add(de decodedEvent) {
	if len(o.runs) == 0 {
		o.start()
	}
	last := len(o.runs) - 1
	o.runs[last] = append(o.runs[last], de)
}

// merge returns every outcome as many times as its most populated run
// holds it, in arrival order. Identical outcomes inside one run are kept.
func (o *outcomeRuns) merge() []decodedEvent {
	if len(o.runs) == 1 {
		return o.runs[0]
	}
	kept := make(map[string]int)
	var out []decodedEvent
	for _, run := range o.runs {
		inRun := make(map[string]int, len(run))
		for _, de := range run {
			key := string(de.raw)
			inRun[key]++
			if inRun[key] > kept[key] {
				kept[key]++
				out = append(out, de)
			}
		}
	}
	return out
}

// decision is an open contextual-bandit decision.
type decision struct {
	ev       decodedEvent
	payload  *types.CbPayload
	outcomes outcomeRuns
	rewards  []Reward
	action   uint64
	resolved bool
}

// episodeGroup collects one episode's steps and outcomes within a payload.
type episodeGroup struct {
	id       string
	steps    []episode.Step
	outcomes outcomeRuns
}

func (r *Reconstructor) processPayload(jp *types.JoinedPayload) error {
	events := make([]decodedEvent, len(jp.Events))
	for i, je := range jp.Events {
		ev, err := codec.DecodeEvent(je.Event)
		if codec.IsDecodeError(err) {
			return &joinlog.FormatError{
				Kind:   joinlog.FormatErrorEvent,
				Offset: r.lr.Offset(),
				Msg:    fmt.Sprintf("event %d", i),
				Err:    err,
			}
		}
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		r.opts.Metrics.IncEventsDecoded()
		events[i] = decodedEvent{raw: je.Event, event: ev, joinTime: je.Timestamp, seq: i}
	}

	// Episode ids are collected up front so outcomes preceding their steps
	// still route to the episode.
	groups := make(map[string]*episodeGroup)
	var groupOrder []*episodeGroup
	for _, de := range events {
		if _, ok := de.event.Payload.(*types.MultiStepPayload); !ok {
			continue
		}
		if _, ok := groups[de.event.Meta.ID]; !ok {
			g := &episodeGroup{id: de.event.Meta.ID}
			groups[de.event.Meta.ID] = g
			groupOrder = append(groupOrder, g)
		}
	}

	// active is the run that outcomes of the latest interaction extend.
	var open *decision
	var active *outcomeRuns
	flush := func() {
		if open != nil {
			r.emit(r.finishDecision(open))
			open = nil
		}
	}

	for _, de := range events {
		meta := de.event.Meta
		switch p := de.event.Payload.(type) {
		case *types.CbPayload:
			if !r.accepts(types.PayloadTypeCb) {
				r.skip(skipProblemTypeMismatch, meta.ID)
				active = nil
				continue
			}
			if open != nil && open.ev.event.Meta.ID == meta.ID {
				r.skip(skipDuplicateInteraction, meta.ID)
				open.outcomes.start()
				active = &open.outcomes
				continue
			}
			flush()
			open = &decision{ev: de, payload: p}
			open.outcomes.start()
			active = &open.outcomes
			if !p.DeferredAction && len(p.ActionIDs) > 0 {
				open.action = p.ActionIDs[0]
				open.resolved = true
			}
		case *types.MultiStepPayload:
			flush()
			if !r.accepts(types.PayloadTypeMultiStep) {
				r.skip(skipProblemTypeMismatch, meta.ID)
				active = nil
				continue
			}
			g := groups[meta.ID]
			g.outcomes.start()
			active = &g.outcomes
			g.steps = append(g.steps, episode.Step{
				EventID:    p.EventID,
				PreviousID: p.PreviousID,
				Timestamp:  r.enqueueTime(de),
				Event:      de.event,
			})
		case *types.OutcomePayload:
			var runs *outcomeRuns
			if g, ok := groups[meta.ID]; ok {
				runs = &g.outcomes
			} else if open != nil && open.ev.event.Meta.ID == meta.ID {
				runs = &open.outcomes
			} else {
				r.orphan(meta.ID, "no open decision")
				continue
			}
			if active != runs {
				runs.start()
				active = runs
			}
			runs.add(de)
		case *types.CaPayload, *types.MultiSlotPayload:
			flush()
			active = nil
			r.skip(meta.PayloadType.String(), meta.ID)
		case *types.DedupInfoPayload:
			r.skip(meta.PayloadType.String(), meta.ID)
		default:
			return &codec.UnknownPayloadTypeError{PayloadType: meta.PayloadType, ID: meta.ID}
		}
	}
	flush()

	for _, g := range groupOrder {
		r.finishEpisode(g)
	}
	return nil
}

// accepts reports whether the configured problem type admits an
// interaction payload type. An unknown problem type admits everything.
func (r *Reconstructor) accepts(pt types.PayloadType) bool {
	switch r.cp.ProblemType {
	case types.ProblemTypeUnknown:
		return true
	case types.ProblemTypeCB:
		return pt == types.PayloadTypeCb || pt == types.PayloadTypeMultiStep
	case types.ProblemTypeCCB, types.ProblemTypeSlates:
		return pt == types.PayloadTypeMultiSlot
	case types.ProblemTypeCA:
		return pt == types.PayloadTypeCa
	default:
		return false
	}
}

func (r *Reconstructor) enqueueTime(de decodedEvent) time.Time {
	if r.cp.UseClientTime {
		return de.event.Meta.ClientTimeUTC
	}
	return de.joinTime
}

func (r *Reconstructor) skip(reason, id string) {
	r.opts.Metrics.IncSkipped(reason)
	r.logger.Debug("skipping event", map[string]any{"id": id, "reason": reason})
}

func (r *Reconstructor) orphan(id, reason string) {
	r.opts.Metrics.IncOrphanOutcomes()
	r.logger.Warn("dropping orphan outcome", map[string]any{"id": id, "reason": reason})
}

func (r *Reconstructor) emit(ex *types.Example) {
	r.opts.Metrics.IncExamplesEmitted()
	if !ex.Resolved {
		r.opts.Metrics.IncUnresolvedActions()
	}
	r.pending = append(r.pending, ex)
}

func (r *Reconstructor) addOutcome(d *decision, de decodedEvent, p *types.OutcomePayload) {
	id := de.event.Meta.ID
	if p.ActionTaken && d.payload.DeferredAction && !d.resolved {
		action, err := actionFromIndex(p.Index)
		if err != nil {
			r.logger.Warn("ignoring unusable action_taken outcome", map[string]any{"id": id, "error": err.Error()})
		} else {
			d.action = action
			d.resolved = true
		}
	}

	value, ok, err := outcomeValue(p.Value)
	if err != nil {
		r.logger.Warn("ignoring outcome value", map[string]any{"id": id, "error": err.Error()})
		return
	}
	if ok {
		d.rewards = append(d.rewards, Reward{Value: value, Time: r.enqueueTime(de), Seq: de.seq})
	}
}

func (r *Reconstructor) finishDecision(d *decision) *types.Example {
	meta := d.ev.event.Meta
	p := d.payload
	for _, de := range d.outcomes.merge() {
		r.addOutcome(d, de, de.event.Payload.(*types.OutcomePayload))
	}

	reward := r.cp.DefaultReward
	if p.LearningMode != types.LearningModeApprentice || (len(p.ActionIDs) > 0 && p.ActionIDs[0] == BaselineAction) {
		reward = ApplyPolicy(d.rewards, r.cp.RewardFunction, r.cp.DefaultReward)
	}

	ex := &types.Example{
		DecisionID:    meta.ID,
		PayloadType:   types.PayloadTypeCb,
		Context:       p.Context,
		ModelID:       p.ModelID,
		LearningMode:  p.LearningMode,
		Timestamp:     r.enqueueTime(d.ev),
		Action:        d.action,
		Resolved:      d.resolved,
		ActionIDs:     p.ActionIDs,
		Probabilities: p.Probabilities,
		Reward:        reward,
		Cost:          -reward,
		Weight:        importanceWeight(meta.PassProbability),
		Outcomes:      len(d.rewards),
	}
	if d.resolved {
		ex.Probability = probabilityOf(d.action, p.ActionIDs, p.Probabilities)
	}
	return ex
}

func (r *Reconstructor) finishEpisode(g *episodeGroup) {
	forest, err := episode.Resolve(g.id, g.steps)
	if err != nil {
		r.opts.Metrics.IncDanglingEpisodes()
		r.logger.Error("dropping unresolvable episode", map[string]any{"episode_id": g.id, "error": err.Error()})
		return
	}
	for _, de := range g.outcomes.merge() {
		o := episode.Outcome{
			Payload:    de.event.Payload.(*types.OutcomePayload),
			ClientTime: de.event.Meta.ClientTimeUTC,
			JoinTime:   de.joinTime,
			Seq:        de.seq,
		}
		if !forest.Attach(o) {
			r.orphan(g.id, "no matching step")
		}
	}

	order := forest.Order()
	rewards := make([]float32, len(order))
	examples := make([]*types.Example, len(order))
	for i, n := range order {
		p := n.Event.Payload.(*types.MultiStepPayload)
		ex := &types.Example{
			DecisionID:    g.id,
			StepID:        n.EventID,
			Depth:         n.Depth,
			PayloadType:   types.PayloadTypeMultiStep,
			Context:       p.Context,
			ModelID:       p.ModelID,
			LearningMode:  p.LearningMode,
			Timestamp:     n.Timestamp,
			ActionIDs:     p.ActionIDs,
			Probabilities: p.Probabilities,
			Weight:        importanceWeight(n.Event.Meta.PassProbability),
		}
		if !p.DeferredAction && len(p.ActionIDs) > 0 {
			ex.Action = p.ActionIDs[0]
			ex.Resolved = true
		}

		var rs []Reward
		for _, o := range n.Outcomes {
			// An indexed action_taken outcome addresses its step through
			// the index and names the chosen action in its value.
			if o.Payload.ActionTaken && o.Payload.Index != nil {
				r.resolveStep(g.id, ex, p, o.Payload)
				continue
			}
			value, ok, err := outcomeValue(o.Payload.Value)
			if err != nil {
				r.logger.Warn("ignoring outcome value", map[string]any{"episode_id": g.id, "error": err.Error()})
				continue
			}
			if !ok {
				continue
			}
			t := o.JoinTime
			if r.cp.UseClientTime {
				t = o.ClientTime
			}
			rs = append(rs, Reward{Value: value, Time: t, Seq: o.Seq})
		}
		rewards[i] = ApplyPolicy(rs, r.cp.RewardFunction, r.cp.DefaultReward)
		ex.Outcomes = len(rs)
		if ex.Resolved {
			ex.Probability = probabilityOf(ex.Action, p.ActionIDs, p.Probabilities)
		}
		examples[i] = ex
	}
	r.opts.MultistepReward.Apply(rewards)

	for i, ex := range examples {
		ex.Reward = rewards[i]
		ex.Cost = -rewards[i]
		r.emit(ex)
	}
}

// resolveStep applies an action_taken outcome to a step. Only the first
// usable one resolves a deferred step; steps that are not deferred ignore
// them.
func (r *Reconstructor) resolveStep(episodeID string, ex *types.Example, p *types.MultiStepPayload, o *types.OutcomePayload) {
	if !p.DeferredAction || ex.Resolved {
		return
	}
	action, err := actionFromValue(o.Value)
	if err != nil {
		r.logger.Warn("ignoring unusable action_taken outcome", map[string]any{
			"episode_id": episodeID,
			"step_id":    ex.StepID,
			"error":      err.Error(),
		})
		return
	}
	ex.Action = action
	ex.Resolved = true
}

// importanceWeight is 1 / pass probability. A missing or invalid
// probability counts as never dropped.
func importanceWeight(pass float32) float32 {
	if pass <= 0 || pass > 1 {
		return 1
	}
	return 1 / pass
}

func probabilityOf(action uint64, ids []uint64, probs []float32) float32 {
	for i, id := range ids {
		if id == action && i < len(probs) {
			return probs[i]
		}
	}
	return 0
}
