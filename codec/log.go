package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/joinery/types"
)

type joinedEventWire struct {
	Event     []byte `msgpack:"event"`
	Timestamp *int64 `msgpack:"timestamp,omitempty"`
}

type joinedPayloadWire struct {
	Events []joinedEventWire `msgpack:"events"`
}

type headerWire struct {
	Properties []types.Property `msgpack:"properties"`
	JoinTime   *int64           `msgpack:"join_time,omitempty"`
}

type checkpointWire struct {
	RewardFunction uint8   `msgpack:"reward_function"`
	DefaultReward  float32 `msgpack:"default_reward"`
	LearningMode   uint8   `msgpack:"learning_mode"`
	ProblemType    uint8   `msgpack:"problem_type"`
	UseClientTime  bool    `msgpack:"use_client_time"`
}

// EncodeJoinedPayload encodes the body of a Regular frame.
func EncodeJoinedPayload(jp *types.JoinedPayload) ([]byte, error) {
	wire := joinedPayloadWire{Events: make([]joinedEventWire, len(jp.Events))}
	for i, ev := range jp.Events {
		ts, err := toWireTime(ev.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("joined event %d: %w", i, err)
		}
		wire.Events[i] = joinedEventWire{Event: ev.Event, Timestamp: ts}
	}
	return msgpack.Marshal(&wire)
}

// DecodeJoinedPayload decodes the body of a Regular frame.
func DecodeJoinedPayload(raw []byte) (*types.JoinedPayload, error) {
	var wire joinedPayloadWire
	if err := msgpack.Unmarshal(raw, &wire); err != nil {
		return nil, &DecodeError{What: "joined payload", Err: err}
	}
	jp := &types.JoinedPayload{Events: make([]types.JoinedEvent, len(wire.Events))}
	for i, ev := range wire.Events {
		jp.Events[i] = types.JoinedEvent{Event: ev.Event, Timestamp: fromWireTime(ev.Timestamp)}
	}
	return jp, nil
}

// EncodeFileHeader encodes the body of the Header frame.
func EncodeFileHeader(h *types.FileHeader) ([]byte, error) {
	joinTime, err := toWireTime(h.JoinTime)
	if err != nil {
		return nil, fmt.Errorf("join time: %w", err)
	}
	return msgpack.Marshal(&headerWire{Properties: h.Properties, JoinTime: joinTime})
}

// DecodeFileHeader decodes the body of the Header frame.
func DecodeFileHeader(raw []byte) (*types.FileHeader, error) {
	var wire headerWire
	if err := msgpack.Unmarshal(raw, &wire); err != nil {
		return nil, &DecodeError{What: "file header", Err: err}
	}
	return &types.FileHeader{Properties: wire.Properties, JoinTime: fromWireTime(wire.JoinTime)}, nil
}

// EncodeCheckpoint encodes the body of the Checkpoint frame.
func EncodeCheckpoint(c *types.CheckpointInfo) ([]byte, error) {
	return msgpack.Marshal(&checkpointWire{
		RewardFunction: uint8(c.RewardFunction),
		DefaultReward:  c.DefaultReward,
		LearningMode:   uint8(c.LearningMode),
		ProblemType:    uint8(c.ProblemType),
		UseClientTime:  c.UseClientTime,
	})
}

// DecodeCheckpoint decodes the body of the Checkpoint frame. Enum values
// outside their defined range are rejected.
func DecodeCheckpoint(raw []byte) (*types.CheckpointInfo, error) {
	var wire checkpointWire
	if err := msgpack.Unmarshal(raw, &wire); err != nil {
		return nil, &DecodeError{What: "checkpoint", Err: err}
	}
	if wire.RewardFunction > uint8(types.RewardMax) {
		return nil, &DecodeError{What: "checkpoint", Err: fmt.Errorf("unknown reward function %d", wire.RewardFunction)}
	}
	if wire.LearningMode > uint8(types.LearningModeLoggingOnly) {
		return nil, &DecodeError{What: "checkpoint", Err: fmt.Errorf("unknown learning mode %d", wire.LearningMode)}
	}
	if wire.ProblemType > uint8(types.ProblemTypeCA) {
		return nil, &DecodeError{What: "checkpoint", Err: fmt.Errorf("unknown problem type %d", wire.ProblemType)}
	}
	return &types.CheckpointInfo{
		RewardFunction: types.RewardFunction(wire.RewardFunction),
		DefaultReward:  wire.DefaultReward,
		LearningMode:   types.LearningMode(wire.LearningMode),
		ProblemType:    types.ProblemType(wire.ProblemType),
		UseClientTime:  wire.UseClientTime,
	}, nil
}

// EncodeEventBatch encodes the body of a raw artifact message.
func EncodeEventBatch(b *types.EventBatch) ([]byte, error) {
	return msgpack.Marshal(b)
}

// DecodeEventBatch decodes the body of a raw artifact message.
func DecodeEventBatch(raw []byte) (*types.EventBatch, error) {
	var batch types.EventBatch
	if err := msgpack.Unmarshal(raw, &batch); err != nil {
		return nil, &DecodeError{What: "event batch", Err: err}
	}
	return &batch, nil
}
