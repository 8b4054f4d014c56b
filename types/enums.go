package types

import (
	"fmt"
	"strings"
)

// PayloadType tags the variant carried by an Event.
// Values are wire-stable.
type PayloadType uint8

// Payload type constants.
const (
	PayloadTypeCb        PayloadType = 1
	PayloadTypeMultiStep PayloadType = 2
	PayloadTypeOutcome   PayloadType = 3
	PayloadTypeDedupInfo PayloadType = 4
	PayloadTypeCa        PayloadType = 5
	PayloadTypeMultiSlot PayloadType = 6
)

var payloadTypeNames = map[PayloadType]string{
	PayloadTypeCb:        "cb",
	PayloadTypeMultiStep: "multistep",
	PayloadTypeOutcome:   "outcome",
	PayloadTypeDedupInfo: "dedup_info",
	PayloadTypeCa:        "ca",
	PayloadTypeMultiSlot: "multislot",
}

func (p PayloadType) String() string {
	if name, ok := payloadTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("payload_type(%d)", uint8(p))
}

// IsInteraction returns true if the payload type starts a decision.
func (p PayloadType) IsInteraction() bool {
	switch p {
	case PayloadTypeCb, PayloadTypeMultiStep, PayloadTypeCa, PayloadTypeMultiSlot:
		return true
	}
	return false
}

// Encoding is the byte encoding applied to an event payload.
type Encoding uint8

// Encoding constants.
const (
	EncodingIdentity Encoding = 0
	EncodingZstd     Encoding = 1
)

func (e Encoding) String() string {
	switch e {
	case EncodingIdentity:
		return "identity"
	case EncodingZstd:
		return "zstd"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// RewardFunction selects how a decision's outcome rewards collapse to a scalar.
type RewardFunction uint8

// Reward function constants. Values match the merged-log checkpoint encoding.
const (
	RewardEarliest RewardFunction = 0
	RewardAverage  RewardFunction = 1
	RewardMedian   RewardFunction = 2
	RewardSum      RewardFunction = 3
	RewardMin      RewardFunction = 4
	RewardMax      RewardFunction = 5
)

var rewardFunctionNames = []string{"earliest", "average", "median", "sum", "min", "max"}

func (r RewardFunction) String() string {
	if int(r) < len(rewardFunctionNames) {
		return rewardFunctionNames[r]
	}
	return fmt.Sprintf("reward_function(%d)", uint8(r))
}

// ParseRewardFunction parses a reward function name (case-insensitive).
func ParseRewardFunction(s string) (RewardFunction, error) {
	for i, name := range rewardFunctionNames {
		if strings.EqualFold(s, name) {
			return RewardFunction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown reward function %q", s)
}

// LearningMode is the decision service mode an event was logged under.
type LearningMode uint8

// Learning mode constants.
const (
	LearningModeOnline      LearningMode = 0
	LearningModeApprentice  LearningMode = 1
	LearningModeLoggingOnly LearningMode = 2
)

var learningModeNames = []string{"online", "apprentice", "logging_only"}

func (m LearningMode) String() string {
	if int(m) < len(learningModeNames) {
		return learningModeNames[m]
	}
	return fmt.Sprintf("learning_mode(%d)", uint8(m))
}

// ParseLearningMode parses a learning mode name (case-insensitive).
func ParseLearningMode(s string) (LearningMode, error) {
	for i, name := range learningModeNames {
		if strings.EqualFold(s, name) {
			return LearningMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown learning mode %q", s)
}

// ProblemType identifies the learning problem the log serves.
type ProblemType uint8

// Problem type constants.
const (
	ProblemTypeUnknown ProblemType = 0
	ProblemTypeCB      ProblemType = 1
	ProblemTypeCCB     ProblemType = 2
	ProblemTypeSlates  ProblemType = 3
	ProblemTypeCA      ProblemType = 4
)

var problemTypeNames = []string{"unknown", "cb", "ccb", "slates", "ca"}

func (p ProblemType) String() string {
	if int(p) < len(problemTypeNames) {
		return problemTypeNames[p]
	}
	return fmt.Sprintf("problem_type(%d)", uint8(p))
}

// ParseProblemType parses a problem type name (case-insensitive).
func ParseProblemType(s string) (ProblemType, error) {
	for i, name := range problemTypeNames {
		if strings.EqualFold(s, name) {
			return ProblemType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown problem type %q", s)
}
