package reader

import (
	"errors"
	"fmt"
)

// ErrNilRecord is returned when a nil metrics record is parsed.
var ErrNilRecord = errors.New("nil record")

// ParseMetricsRecord converts a Lode metrics record into a MetricsSnapshot.
// Numbers may arrive as int64 (direct writes) or float64 (JSON round-trips).
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	snap := &MetricsSnapshot{
		CompletedAt: toString(record["completed_at"]),

		BatchesRead:           toInt64(record["batches_read"]),
		ObservationsIndexed:   toInt64(record["observations_indexed"]),
		InteractionsJoined:    toInt64(record["interactions_joined"]),
		ObservationsJoined:    toInt64(record["observations_joined"]),
		UnmatchedInteractions: toInt64(record["unmatched_interactions"]),
		PayloadsWritten:       toInt64(record["payloads_written"]),

		PayloadsRead:      toInt64(record["payloads_read"]),
		EventsDecoded:     toInt64(record["events_decoded"]),
		ExamplesEmitted:   toInt64(record["examples_emitted"]),
		UnresolvedActions: toInt64(record["unresolved_actions"]),
		OrphanOutcomes:    toInt64(record["orphan_outcomes"]),
		DanglingEpisodes:  toInt64(record["dangling_episodes"]),
		SkippedByType:     toCounts(record["skipped_by_type"]),

		LodeWriteSuccess: toInt64(record["lode_write_success"]),
		LodeWriteFailure: toInt64(record["lode_write_failure"]),
		NotifySuccess:    toInt64(record["notify_success"]),
		NotifyFailure:    toInt64(record["notify_failure"]),

		Command:        toString(record["command"]),
		StorageBackend: toString(record["storage_backend"]),
		Source:         toString(record["source"]),
		JoinID:         toString(record["join_id"]),
	}

	// The write path always sets these.
	required := []struct{ field, value string }{
		{"completed_at", snap.CompletedAt},
		{"command", snap.Command},
		{"storage_backend", snap.StorageBackend},
		{"join_id", snap.JoinID},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("metrics record missing required field: %s", r.field)
		}
	}

	return snap, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		out := make(map[string]int64, len(m))
		for k, val := range m {
			out[k] = toInt64(val)
		}
		return out
	default:
		return nil
	}
}
