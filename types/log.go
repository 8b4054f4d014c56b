package types

import "time"

// Header property keys written by the joiner.
const (
	HeaderJoiner = "joiner"
	HeaderJoinID = "join_id"
	HeaderEUD    = "eud"
)

// Property is one ordered header key/value pair.
type Property struct {
	Key   string `msgpack:"key"`
	Value string `msgpack:"value"`
}

// FileHeader is the first frame of a merged log.
type FileHeader struct {
	// Properties keep insertion order.
	Properties []Property
	// JoinTime is when the merged log was produced.
	JoinTime time.Time
}

// Get returns the first value for key.
func (h *FileHeader) Get(key string) (string, bool) {
	for _, p := range h.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// CheckpointInfo carries the reward policy the log was joined under.
type CheckpointInfo struct {
	RewardFunction RewardFunction
	DefaultReward  float32
	LearningMode   LearningMode
	ProblemType    ProblemType
	// UseClientTime selects client time over join time for the earliest
	// reward policy.
	UseClientTime bool
}

// JoinedEvent is one raw event inside a JoinedPayload.
type JoinedEvent struct {
	// Event is the encoded event, exactly as read from its source artifact.
	Event []byte
	// Timestamp is the join time attributed to the event.
	Timestamp time.Time
}

// JoinedPayload is the body of one Regular frame: an interaction batch
// with each interaction followed by its observations.
type JoinedPayload struct {
	Events []JoinedEvent
}

// Content encodings recorded on an EventBatch.
const (
	ContentEncodingIdentity = "IDENTITY"
	ContentEncodingDedup    = "DEDUP"
)

// BatchMetadata describes an EventBatch.
type BatchMetadata struct {
	ContentEncoding     string `msgpack:"content_encoding"`
	OriginalPayloadSize uint64 `msgpack:"original_payload_size"`
}

// EventBatch is the body of one raw artifact message.
type EventBatch struct {
	Events   [][]byte      `msgpack:"events"`
	Metadata BatchMetadata `msgpack:"metadata"`
}
