package reconstruct

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pithecene-io/joinery/types"
)

// Reward is one outcome's contribution to a decision.
type Reward struct {
	Value float32
	// Time is the enqueue time used by the earliest policy.
	Time time.Time
	// Seq is the arrival position, which breaks ties.
	Seq int
}

// ApplyPolicy collapses rewards to a scalar. With no rewards every policy
// returns def.
func ApplyPolicy(rewards []Reward, fn types.RewardFunction, def float32) float32 {
	if len(rewards) == 0 {
		return def
	}
	switch fn {
	case types.RewardEarliest:
		first := rewards[0]
		for _, r := range rewards[1:] {
			if r.Time.Before(first.Time) || (r.Time.Equal(first.Time) && r.Seq < first.Seq) {
				first = r
			}
		}
		return first.Value
	case types.RewardAverage:
		return sum(rewards) / float32(len(rewards))
	case types.RewardSum:
		return sum(rewards)
	case types.RewardMin:
		v := rewards[0].Value
		for _, r := range rewards[1:] {
			v = min(v, r.Value)
		}
		return v
	case types.RewardMax:
		v := rewards[0].Value
		for _, r := range rewards[1:] {
			v = max(v, r.Value)
		}
		return v
	case types.RewardMedian:
		values := make([]float32, len(rewards))
		for i, r := range rewards {
			values[i] = r.Value
		}
		slices.Sort(values)
		mid := len(values) / 2
		if len(values)%2 == 1 {
			return values[mid]
		}
		return (values[mid-1] + values[mid]) / 2
	default:
		return def
	}
}

func sum(rewards []Reward) float32 {
	var total float32
	for _, r := range rewards {
		total += r.Value
	}
	return total
}

// outcomeValue extracts the numeric reward of an outcome. Literal values
// must parse as floats.
func outcomeValue(v types.OutcomeValue) (float32, bool, error) {
	switch v.Kind {
	case types.ValueNumeric:
		return v.Numeric, true, nil
	case types.ValueLiteral:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Literal), 32)
		if err != nil {
			return 0, false, fmt.Errorf("literal reward %q: %w", v.Literal, err)
		}
		return float32(f), true, nil
	default:
		return 0, false, nil
	}
}

// actionFromIndex reads a deferred action id from an outcome index.
func actionFromIndex(idx *types.OutcomeIndex) (uint64, error) {
	if idx == nil {
		return 0, fmt.Errorf("action_taken outcome has no index")
	}
	switch idx.Kind {
	case types.IndexNumeric:
		if idx.Numeric < 0 {
			return 0, fmt.Errorf("negative action index %d", idx.Numeric)
		}
		return uint64(idx.Numeric), nil
	case types.IndexLiteral:
		return strconv.ParseUint(idx.Literal, 10, 64)
	default:
		return 0, fmt.Errorf("unknown index kind %d", idx.Kind)
	}
}

// actionFromValue reads the action chosen for a deferred episode step
// from an action_taken outcome value.
func actionFromValue(v types.OutcomeValue) (uint64, error) {
	switch v.Kind {
	case types.ValueNumeric:
		f := float64(v.Numeric)
		if f < 0 || f >= math.MaxUint64 || f != math.Trunc(f) {
			return 0, fmt.Errorf("action value %v is not an action id", v.Numeric)
		}
		return uint64(f), nil
	case types.ValueLiteral:
		return strconv.ParseUint(strings.TrimSpace(v.Literal), 10, 64)
	default:
		return 0, fmt.Errorf("action_taken outcome carries no action")
	}
}

// MultistepReward reshapes per-step rewards of an episode, in step order.
type MultistepReward uint8

// Multistep reward functions.
const (
	MultistepIdentity MultistepReward = iota
	MultistepSuffixMean
	MultistepSuffixSum
)

var multistepRewardNames = []string{"identity", "suffix_mean", "suffix_sum"}

func (m MultistepReward) String() string {
	if int(m) < len(multistepRewardNames) {
		return multistepRewardNames[m]
	}
	return fmt.Sprintf("multistep_reward(%d)", uint8(m))
}

// ParseMultistepReward parses a multistep reward name (case-insensitive).
func ParseMultistepReward(s string) (MultistepReward, error) {
	for i, name := range multistepRewardNames {
		if strings.EqualFold(s, name) {
			return MultistepReward(i), nil
		}
	}
	return 0, fmt.Errorf("unknown multistep reward %q", s)
}

// Apply rewrites rewards in place.
//   - identity: unchanged
//   - suffix_sum: r[i] = r[i] + ... + r[n-1]
//   - suffix_mean: r[i] = (r[i] + ... + r[n-1]) / (n-i)
func (m MultistepReward) Apply(rewards []float32) {
	var acc float32
	for i := len(rewards) - 1; i >= 0; i-- {
		acc += rewards[i]
		switch m {
		case MultistepSuffixSum:
			rewards[i] = acc
		case MultistepSuffixMean:
			rewards[i] = acc / float32(len(rewards)-i)
		}
	}
}
