package types

import "time"

// Example is one reconstructed training record.
type Example struct {
	// DecisionID is the event id (or episode id for multistep).
	DecisionID string `json:"decision_id" yaml:"decision_id"`
	// StepID is the multistep event id; empty for single decisions.
	StepID string `json:"step_id,omitempty" yaml:"step_id,omitempty"`
	// Depth is the step's distance from its episode root.
	Depth int `json:"depth,omitempty" yaml:"depth,omitempty"`

	PayloadType  PayloadType  `json:"-" yaml:"-"`
	Context      []byte       `json:"context" yaml:"context"`
	ModelID      string       `json:"model_id" yaml:"model_id"`
	LearningMode LearningMode `json:"learning_mode" yaml:"learning_mode"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`

	// Action is the chosen action id; meaningful only when Resolved.
	Action      uint64  `json:"action" yaml:"action"`
	Resolved    bool    `json:"resolved" yaml:"resolved"`
	Probability float32 `json:"probability" yaml:"probability"`

	ActionIDs     []uint64  `json:"action_ids" yaml:"action_ids"`
	Probabilities []float32 `json:"probabilities" yaml:"probabilities"`

	Reward float32 `json:"reward" yaml:"reward"`
	// Cost is the negated reward.
	Cost float32 `json:"cost" yaml:"cost"`
	// Weight is the importance weight, 1 / pass probability.
	Weight float32 `json:"weight" yaml:"weight"`
	// Outcomes counts the observations that contributed a reward.
	Outcomes int `json:"outcomes" yaml:"outcomes"`
}

// UnresolvedActionError marks an example whose deferred action was never
// supplied by an outcome. It is reported on the example, not returned by
// the reconstructor.
type UnresolvedActionError struct {
	DecisionID string
	StepID     string
}

func (e *UnresolvedActionError) Error() string {
	if e.StepID != "" {
		return "unresolved deferred action for decision " + e.DecisionID + " step " + e.StepID
	}
	return "unresolved deferred action for decision " + e.DecisionID
}

// Err returns *UnresolvedActionError when the chosen action is unknown.
func (e *Example) Err() error {
	if e.Resolved {
		return nil
	}
	return &UnresolvedActionError{DecisionID: e.DecisionID, StepID: e.StepID}
}
