package lode

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// RecordKind discriminator values. record_kind is also the last partition
// key, so examples and metrics land in separate partitions.
const (
	RecordKindExample = "example"
	RecordKindMetrics = "metrics"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "join_id", "record_kind"}

// MetricsRecord is the storage format for one invocation's counters.
type MetricsRecord struct {
	RecordKind string `json:"record_kind"`

	BatchesRead           int64 `json:"batches_read"`
	ObservationsIndexed   int64 `json:"observations_indexed"`
	InteractionsJoined    int64 `json:"interactions_joined"`
	ObservationsJoined    int64 `json:"observations_joined"`
	UnmatchedInteractions int64 `json:"unmatched_interactions"`
	PayloadsWritten       int64 `json:"payloads_written"`

	PayloadsRead      int64            `json:"payloads_read"`
	EventsDecoded     int64            `json:"events_decoded"`
	ExamplesEmitted   int64            `json:"examples_emitted"`
	UnresolvedActions int64            `json:"unresolved_actions"`
	OrphanOutcomes    int64            `json:"orphan_outcomes"`
	DanglingEpisodes  int64            `json:"dangling_episodes"`
	SkippedByType     map[string]int64 `json:"skipped_by_type"`

	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`
	NotifySuccess    int64 `json:"notify_success"`
	NotifyFailure    int64 `json:"notify_failure"`

	Command        string `json:"command"`
	StorageBackend string `json:"storage_backend"`
	CompletedAt    string `json:"completed_at"`

	Source string `json:"source"`
	Day    string `json:"day"`
	JoinID string `json:"join_id"`
}

// toExampleRecordMap converts an example to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any; the example's JSON
// form supplies the fields and the partition keys are added on top.
func toExampleRecordMap(ex *types.Example, seq int64, cfg Config) (map[string]any, error) {
	data, err := json.Marshal(ex)
	if err != nil {
		return nil, fmt.Errorf("failed to encode example %s: %w", ex.DecisionID, err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode example %s: %w", ex.DecisionID, err)
	}
	m["record_kind"] = RecordKindExample
	m["payload_type"] = ex.PayloadType.String()
	m["seq"] = seq
	m["source"] = cfg.Source
	m["day"] = cfg.Day
	m["join_id"] = cfg.JoinID
	return m, nil
}

// exampleFromRecord converts a stored record back into an example.
func exampleFromRecord(record map[string]any) (*types.Example, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var ex types.Example
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, err
	}
	ex.PayloadType = types.PayloadTypeCb
	if toString(record["payload_type"]) == types.PayloadTypeMultiStep.String() {
		ex.PayloadType = types.PayloadTypeMultiStep
	}
	return &ex, nil
}

func toMetricsRecord(snap metrics.Snapshot, completedAt time.Time, cfg Config) MetricsRecord {
	skipped := snap.SkippedByType
	if skipped == nil {
		skipped = map[string]int64{}
	}
	return MetricsRecord{
		RecordKind:            RecordKindMetrics,
		BatchesRead:           snap.BatchesRead,
		ObservationsIndexed:   snap.ObservationsIndexed,
		InteractionsJoined:    snap.InteractionsJoined,
		ObservationsJoined:    snap.ObservationsJoined,
		UnmatchedInteractions: snap.UnmatchedInteractions,
		PayloadsWritten:       snap.PayloadsWritten,
		PayloadsRead:          snap.PayloadsRead,
		EventsDecoded:         snap.EventsDecoded,
		ExamplesEmitted:       snap.ExamplesEmitted,
		UnresolvedActions:     snap.UnresolvedActions,
		OrphanOutcomes:        snap.OrphanOutcomes,
		DanglingEpisodes:      snap.DanglingEpisodes,
		SkippedByType:         skipped,
		LodeWriteSuccess:      snap.LodeWriteSuccess,
		LodeWriteFailure:      snap.LodeWriteFailure,
		NotifySuccess:         snap.NotifySuccess,
		NotifyFailure:         snap.NotifyFailure,
		Command:               snap.Command,
		StorageBackend:        snap.StorageBackend,
		CompletedAt:           completedAt.UTC().Format(time.RFC3339Nano),
		Source:                cfg.Source,
		Day:                   cfg.Day,
		JoinID:                cfg.JoinID,
	}
}

// toMetricsRecordMap converts a snapshot to a map for Lode storage.
func toMetricsRecordMap(snap metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	r := toMetricsRecord(snap, completedAt, cfg)
	return map[string]any{
		"record_kind":            r.RecordKind,
		"batches_read":           r.BatchesRead,
		"observations_indexed":   r.ObservationsIndexed,
		"interactions_joined":    r.InteractionsJoined,
		"observations_joined":    r.ObservationsJoined,
		"unmatched_interactions": r.UnmatchedInteractions,
		"payloads_written":       r.PayloadsWritten,
		"payloads_read":          r.PayloadsRead,
		"events_decoded":         r.EventsDecoded,
		"examples_emitted":       r.ExamplesEmitted,
		"unresolved_actions":     r.UnresolvedActions,
		"orphan_outcomes":        r.OrphanOutcomes,
		"dangling_episodes":      r.DanglingEpisodes,
		"skipped_by_type":        r.SkippedByType,
		"lode_write_success":     r.LodeWriteSuccess,
		"lode_write_failure":     r.LodeWriteFailure,
		"notify_success":         r.NotifySuccess,
		"notify_failure":         r.NotifyFailure,
		"command":                r.Command,
		"storage_backend":        r.StorageBackend,
		"completed_at":           r.CompletedAt,
		"source":                 r.Source,
		"day":                    r.Day,
		"join_id":                r.JoinID,
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
