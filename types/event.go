package types

import (
	"strconv"
	"time"
)

// Metadata is the envelope every event carries.
type Metadata struct {
	// ID correlates interactions with outcomes. For multistep events it is
	// the episode id.
	ID string
	// ClientTimeUTC is the time the decision service produced the event.
	ClientTimeUTC time.Time
	// PayloadType tags the payload variant.
	PayloadType PayloadType
	// Encoding is the byte encoding of the payload on the wire.
	Encoding Encoding
	// PassProbability is the sampling probability under which the event
	// survived. 1 means the event was never subject to drop.
	PassProbability float32
	// AppID identifies the producing application, if set.
	AppID string
}

// Event is a decoded event.
type Event struct {
	Meta    Metadata
	Payload Payload
}

// Payload is the closed set of event payload variants.
// Consumers switch over the concrete types exhaustively; the unexported
// method keeps the set closed to this package.
type Payload interface {
	PayloadType() PayloadType
	isPayload()
}

// CbPayload is a contextual-bandit decision.
type CbPayload struct {
	// Context is the opaque feature bytes the decision was made on.
	Context []byte `msgpack:"context"`
	// ActionIDs is the ranked action list. ActionIDs[0] is the chosen action
	// unless DeferredAction is set.
	ActionIDs []uint64 `msgpack:"action_ids"`
	// Probabilities is parallel to ActionIDs.
	Probabilities []float32 `msgpack:"probabilities"`
	// ModelID identifies the model that produced the ranking.
	ModelID string `msgpack:"model_id"`
	// LearningMode is the mode the decision was made under.
	LearningMode LearningMode `msgpack:"learning_mode"`
	// DeferredAction is set when the chosen action arrives later in an outcome.
	DeferredAction bool `msgpack:"deferred_action"`
}

// MultiStepPayload is one step of a multi-step episode.
type MultiStepPayload struct {
	// EventID identifies the step within its episode.
	EventID string `msgpack:"event_id"`
	// PreviousID links to the parent step. Nil marks a root.
	PreviousID *string `msgpack:"previous_id,omitempty"`

	Context        []byte       `msgpack:"context"`
	ActionIDs      []uint64     `msgpack:"action_ids"`
	Probabilities  []float32    `msgpack:"probabilities"`
	ModelID        string       `msgpack:"model_id"`
	LearningMode   LearningMode `msgpack:"learning_mode"`
	DeferredAction bool         `msgpack:"deferred_action"`
}

// IndexKind discriminates OutcomeIndex.
type IndexKind uint8

// Index kinds.
const (
	IndexNumeric IndexKind = 1
	IndexLiteral IndexKind = 2
)

// OutcomeIndex addresses a slot, an action, or a step.
type OutcomeIndex struct {
	Kind    IndexKind `msgpack:"kind"`
	Numeric int32     `msgpack:"numeric,omitempty"`
	Literal string    `msgpack:"literal,omitempty"`
}

// NumericIndex returns a numeric outcome index.
func NumericIndex(n int32) *OutcomeIndex {
	return &OutcomeIndex{Kind: IndexNumeric, Numeric: n}
}

// LiteralIndex returns a literal outcome index.
func LiteralIndex(s string) *OutcomeIndex {
	return &OutcomeIndex{Kind: IndexLiteral, Literal: s}
}

// String renders the index; numeric indices render in decimal.
func (i *OutcomeIndex) String() string {
	if i.Kind == IndexNumeric {
		return strconv.FormatInt(int64(i.Numeric), 10)
	}
	return i.Literal
}

// ValueKind discriminates OutcomeValue.
type ValueKind uint8

// Value kinds.
const (
	ValueNone    ValueKind = 0
	ValueNumeric ValueKind = 1
	ValueLiteral ValueKind = 2
)

// OutcomeValue is the reward carried by an outcome.
type OutcomeValue struct {
	Kind    ValueKind `msgpack:"kind"`
	Numeric float32   `msgpack:"numeric,omitempty"`
	Literal string    `msgpack:"literal,omitempty"`
}

// NumericValue returns a numeric outcome value.
func NumericValue(v float32) OutcomeValue {
	return OutcomeValue{Kind: ValueNumeric, Numeric: v}
}

// LiteralValue returns a literal outcome value.
func LiteralValue(s string) OutcomeValue {
	return OutcomeValue{Kind: ValueLiteral, Literal: s}
}

// OutcomePayload is an observation following a decision.
type OutcomePayload struct {
	// Index is nil when the outcome applies to the whole decision or episode.
	Index *OutcomeIndex `msgpack:"index,omitempty"`
	// Value is the reward, if any.
	Value OutcomeValue `msgpack:"value"`
	// ActionTaken marks Index as the action actually taken for a deferred
	// decision.
	ActionTaken bool `msgpack:"action_taken"`
}

// DedupInfoPayload maps content hashes to their deduplicated strings.
type DedupInfoPayload struct {
	IDs    []uint64 `msgpack:"ids"`
	Values []string `msgpack:"values"`
}

// CaPayload is a continuous-action decision.
type CaPayload struct {
	Context      []byte       `msgpack:"context"`
	Action       float32      `msgpack:"action"`
	PdfValue     float32      `msgpack:"pdf_value"`
	ModelID      string       `msgpack:"model_id"`
	LearningMode LearningMode `msgpack:"learning_mode"`
}

// SlotRanking is the ranking of one slot in a multi-slot decision.
type SlotRanking struct {
	ActionIDs     []uint64  `msgpack:"action_ids"`
	Probabilities []float32 `msgpack:"probabilities"`
}

// MultiSlotPayload is a multi-slot (slates or CCB) decision.
type MultiSlotPayload struct {
	Context         []byte        `msgpack:"context"`
	Slots           []SlotRanking `msgpack:"slots"`
	ModelID         string        `msgpack:"model_id"`
	LearningMode    LearningMode  `msgpack:"learning_mode"`
	DeferredAction  bool          `msgpack:"deferred_action"`
	BaselineActions []uint64      `msgpack:"baseline_actions,omitempty"`
}

func (*CbPayload) PayloadType() PayloadType        { return PayloadTypeCb }
func (*MultiStepPayload) PayloadType() PayloadType { return PayloadTypeMultiStep }
func (*OutcomePayload) PayloadType() PayloadType   { return PayloadTypeOutcome }
func (*DedupInfoPayload) PayloadType() PayloadType { return PayloadTypeDedupInfo }
func (*CaPayload) PayloadType() PayloadType        { return PayloadTypeCa }
func (*MultiSlotPayload) PayloadType() PayloadType { return PayloadTypeMultiSlot }

func (*CbPayload) isPayload()        {}
func (*MultiStepPayload) isPayload() {}
func (*OutcomePayload) isPayload()   {}
func (*DedupInfoPayload) isPayload() {}
func (*CaPayload) isPayload()        {}
func (*MultiSlotPayload) isPayload() {}
