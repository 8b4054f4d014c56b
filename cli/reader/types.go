// Package reader is the read side of the joinery CLI.
//
// It summarizes merged logs and reconstructed examples, and parses metrics
// records read back from Lode, into plain response types that the render
// and tui packages display.
package reader

import "time"

// InspectLogResponse summarizes one merged log.
type InspectLogResponse struct {
	Path       string            `json:"path" yaml:"path"`
	JoinID     string            `json:"join_id" yaml:"join_id"`
	Joiner     string            `json:"joiner" yaml:"joiner"`
	JoinTime   time.Time         `json:"join_time" yaml:"join_time"`
	Properties map[string]string `json:"properties" yaml:"properties"`
	Checkpoint CheckpointView    `json:"checkpoint" yaml:"checkpoint"`

	Payloads     int              `json:"payloads" yaml:"payloads"`
	Events       int              `json:"events" yaml:"events"`
	Interactions int              `json:"interactions" yaml:"interactions"`
	Outcomes     int              `json:"outcomes" yaml:"outcomes"`
	DistinctIDs  int              `json:"distinct_ids" yaml:"distinct_ids"`
	EventsByType map[string]int64 `json:"events_by_type" yaml:"events_by_type"`
	// Complete is false when the log ended without an EndOfFile frame or
	// with a malformed frame; Error carries the reason.
	Complete bool   `json:"complete" yaml:"complete"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`

	// PayloadDetails holds the first Limit payloads.
	PayloadDetails []PayloadSummary `json:"payload_details,omitempty" yaml:"payload_details,omitempty"`
}

// CheckpointView is the checkpoint with enum names spelled out.
type CheckpointView struct {
	RewardFunction string  `json:"reward_function" yaml:"reward_function"`
	DefaultReward  float32 `json:"default_reward" yaml:"default_reward"`
	LearningMode   string  `json:"learning_mode" yaml:"learning_mode"`
	ProblemType    string  `json:"problem_type" yaml:"problem_type"`
	UseClientTime  bool    `json:"use_client_time" yaml:"use_client_time"`
}

// PayloadSummary describes one Regular frame.
type PayloadSummary struct {
	Index        int       `json:"index" yaml:"index"`
	Events       int       `json:"events" yaml:"events"`
	Interactions int       `json:"interactions" yaml:"interactions"`
	Outcomes     int       `json:"outcomes" yaml:"outcomes"`
	FirstID      string    `json:"first_id" yaml:"first_id"`
	JoinTime     time.Time `json:"join_time" yaml:"join_time"`
}

// ExampleStats aggregates reconstructed examples.
type ExampleStats struct {
	Examples      int              `json:"examples" yaml:"examples"`
	Resolved      int              `json:"resolved" yaml:"resolved"`
	Unresolved    int              `json:"unresolved" yaml:"unresolved"`
	Steps         int              `json:"steps" yaml:"steps"`
	WithOutcomes  int              `json:"with_outcomes" yaml:"with_outcomes"`
	MeanReward    float64          `json:"mean_reward" yaml:"mean_reward"`
	MinReward     float32          `json:"min_reward" yaml:"min_reward"`
	MaxReward     float32          `json:"max_reward" yaml:"max_reward"`
	ByPayloadType map[string]int64 `json:"by_payload_type" yaml:"by_payload_type"`
}

// MetricsSnapshot is a metrics record read back from Lode.
type MetricsSnapshot struct {
	CompletedAt string `json:"completed_at" yaml:"completed_at"`

	BatchesRead           int64 `json:"batches_read" yaml:"batches_read"`
	ObservationsIndexed   int64 `json:"observations_indexed" yaml:"observations_indexed"`
	InteractionsJoined    int64 `json:"interactions_joined" yaml:"interactions_joined"`
	ObservationsJoined    int64 `json:"observations_joined" yaml:"observations_joined"`
	UnmatchedInteractions int64 `json:"unmatched_interactions" yaml:"unmatched_interactions"`
	PayloadsWritten       int64 `json:"payloads_written" yaml:"payloads_written"`

	PayloadsRead      int64            `json:"payloads_read" yaml:"payloads_read"`
	EventsDecoded     int64            `json:"events_decoded" yaml:"events_decoded"`
	ExamplesEmitted   int64            `json:"examples_emitted" yaml:"examples_emitted"`
	UnresolvedActions int64            `json:"unresolved_actions" yaml:"unresolved_actions"`
	OrphanOutcomes    int64            `json:"orphan_outcomes" yaml:"orphan_outcomes"`
	DanglingEpisodes  int64            `json:"dangling_episodes" yaml:"dangling_episodes"`
	SkippedByType     map[string]int64 `json:"skipped_by_type,omitempty" yaml:"skipped_by_type,omitempty"`

	LodeWriteSuccess int64 `json:"lode_write_success" yaml:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure" yaml:"lode_write_failure"`
	NotifySuccess    int64 `json:"notify_success" yaml:"notify_success"`
	NotifyFailure    int64 `json:"notify_failure" yaml:"notify_failure"`

	Command        string `json:"command" yaml:"command"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	Source         string `json:"source" yaml:"source"`
	JoinID         string `json:"join_id" yaml:"join_id"`
}
