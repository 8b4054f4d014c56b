package lode

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// FailingStore is a lode.Store that returns configurable errors.
type FailingStore struct {
	PutErr error

	PutCalls int
	PutPaths []string
}

func (s *FailingStore) Put(_ context.Context, path string, _ io.Reader) error {
	s.PutCalls++
	s.PutPaths = append(s.PutPaths, path)
	return s.PutErr
}

func (s *FailingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (s *FailingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *FailingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *FailingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *FailingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*FailingStore)(nil)

// sharedFactory returns a StoreFactory that always returns the given store,
// so write and read datasets share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func testConfig(joinID string) Config {
	return Config{Dataset: "joinery", Source: "app-1", Day: "2024-02-01", JoinID: joinID}
}

func testExamples(prefix string, n int) []*types.Example {
	out := make([]*types.Example, n)
	for i := range out {
		out[i] = &types.Example{
			DecisionID:    prefix + string(rune('a'+i)),
			PayloadType:   types.PayloadTypeCb,
			Context:       []byte(`{"f":1}`),
			ModelID:       "m-1",
			Timestamp:     time.Date(2024, 2, 1, 0, 0, i, 0, time.UTC),
			Action:        2,
			Resolved:      true,
			Probability:   0.5,
			ActionIDs:     []uint64{2, 1},
			Probabilities: []float32{0.5, 0.5},
			Reward:        float32(i),
			Cost:          -float32(i),
			Weight:        1,
			Outcomes:      1,
		}
	}
	return out
}

func TestLodeClient_WriteReadExamples(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())

	client, err := NewLodeClientWithFactory(testConfig("j-1"), factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	examples := testExamples("d", 3)
	if err := client.WriteExamples(t.Context(), examples[:2]); err != nil {
		t.Fatalf("WriteExamples failed: %v", err)
	}
	if err := client.WriteExamples(t.Context(), examples[2:]); err != nil {
		t.Fatalf("WriteExamples failed: %v", err)
	}

	ds, err := NewReadDataset("joinery", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	got, err := ReadExamples(t.Context(), ds, "j-1")
	if err != nil {
		t.Fatalf("ReadExamples failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadExamples returned %d examples, want 3", len(got))
	}
	for i, ex := range got {
		want := examples[i]
		if ex.DecisionID != want.DecisionID {
			t.Errorf("[%d] DecisionID = %q, want %q", i, ex.DecisionID, want.DecisionID)
		}
		if ex.Reward != want.Reward || ex.Action != want.Action || ex.Probability != want.Probability {
			t.Errorf("[%d] = %+v, want %+v", i, ex, want)
		}
		if string(ex.Context) != string(want.Context) {
			t.Errorf("[%d] Context = %q, want %q", i, ex.Context, want.Context)
		}
		if !ex.Timestamp.Equal(want.Timestamp) {
			t.Errorf("[%d] Timestamp = %v, want %v", i, ex.Timestamp, want.Timestamp)
		}
		if ex.PayloadType != types.PayloadTypeCb {
			t.Errorf("[%d] PayloadType = %v, want cb", i, ex.PayloadType)
		}
	}
}

func TestLodeClient_EmptyBatchIsNoop(t *testing.T) {
	store := &FailingStore{PutErr: errors.New("should not be called")}
	client, err := NewLodeClientWithFactory(testConfig("j-1"), sharedFactory(store))
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	if err := client.WriteExamples(t.Context(), nil); err != nil {
		t.Errorf("WriteExamples(nil) = %v, want nil", err)
	}
	if store.PutCalls != 0 {
		t.Errorf("PutCalls = %d, want 0", store.PutCalls)
	}
}

func TestReadExamples_FiltersByJoin(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())

	for _, joinID := range []string{"j-1", "j-10"} {
		client, err := NewLodeClientWithFactory(testConfig(joinID), factory)
		if err != nil {
			t.Fatalf("NewLodeClientWithFactory failed: %v", err)
		}
		if err := client.WriteExamples(t.Context(), testExamples(joinID+"-", 2)); err != nil {
			t.Fatalf("WriteExamples failed: %v", err)
		}
	}

	ds, err := NewReadDataset("joinery", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	tests := []struct {
		joinID string
		want   int
	}{
		{"j-1", 2},
		{"j-10", 2},
		{"", 4},
		{"j-2", 0},
	}
	for _, tt := range tests {
		got, err := ReadExamples(t.Context(), ds, tt.joinID)
		if err != nil {
			t.Fatalf("ReadExamples(%q) failed: %v", tt.joinID, err)
		}
		if len(got) != tt.want {
			t.Errorf("ReadExamples(%q) returned %d, want %d", tt.joinID, len(got), tt.want)
		}
	}
}

func TestLodeClient_WriteFailure(t *testing.T) {
	tests := []struct {
		name     string
		putErr   string
		wantKind error
	}{
		{"disk full", "write /data/joinery/part.jsonl: no space left on device", ErrDiskFull},
		{"permission denied", "write /data/joinery/part.jsonl: permission denied", ErrPermissionDenied},
		{"throttled", "SlowDown: please reduce your request rate", ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &FailingStore{PutErr: errors.New(tt.putErr)}
			client, err := NewLodeClientWithFactory(testConfig("j-1"), sharedFactory(store))
			if err != nil {
				t.Fatalf("NewLodeClientWithFactory failed: %v", err)
			}

			err = client.WriteExamples(t.Context(), testExamples("d", 1))
			if err == nil {
				t.Fatal("expected write error, got nil")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("errors.Is(err, %v) = false, err = %v", tt.wantKind, err)
			}
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("expected *StorageError, got %T", err)
			}
			if storageErr.Op != "write" {
				t.Errorf("Op = %q, want write", storageErr.Op)
			}
			if store.PutCalls == 0 {
				t.Error("expected a put attempt")
			}
		})
	}
}

func TestLodeClient_ConfigDefaults(t *testing.T) {
	client, err := NewLodeClientWithFactory(Config{JoinID: "j-1"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	cfg := client.Config()
	if cfg.Dataset != DefaultDataset {
		t.Errorf("Dataset = %q, want %q", cfg.Dataset, DefaultDataset)
	}
	if cfg.Source != "default" {
		t.Errorf("Source = %q, want default", cfg.Source)
	}
	if cfg.Day == "" {
		t.Error("Day should default to today")
	}
}

func TestQueryLatestMetrics(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())

	for i, joinID := range []string{"j-1", "j-2"} {
		client, err := NewLodeClientWithFactory(testConfig(joinID), factory)
		if err != nil {
			t.Fatalf("NewLodeClientWithFactory failed: %v", err)
		}
		snap := metrics.Snapshot{
			ExamplesEmitted: int64(10 * (i + 1)),
			SkippedByType:   map[string]int64{"ca": 1},
			Command:         "parse",
			StorageBackend:  "fs",
			JoinID:          joinID,
		}
		if err := client.WriteMetrics(t.Context(), snap, time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("WriteMetrics failed: %v", err)
		}
	}

	ds, err := NewReadDataset("joinery", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	latest, err := QueryLatestMetrics(t.Context(), ds, "", "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}
	if latest["join_id"] != "j-2" {
		t.Errorf("latest join_id = %v, want j-2", latest["join_id"])
	}

	first, err := QueryLatestMetrics(t.Context(), ds, "j-1", "app-1")
	if err != nil {
		t.Fatalf("QueryLatestMetrics(j-1) failed: %v", err)
	}
	if toInt64(first["examples_emitted"]) != 10 {
		t.Errorf("examples_emitted = %v, want 10", first["examples_emitted"])
	}
	if first["command"] != "parse" {
		t.Errorf("command = %v, want parse", first["command"])
	}

	if _, err := QueryLatestMetrics(t.Context(), ds, "j-3", ""); !errors.Is(err, ErrNoMetricsFound) {
		t.Errorf("expected ErrNoMetricsFound, got %v", err)
	}
}

func TestQueryLatestMetrics_IgnoresExamples(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	client, err := NewLodeClientWithFactory(testConfig("j-1"), factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	if err := client.WriteExamples(t.Context(), testExamples("d", 2)); err != nil {
		t.Fatalf("WriteExamples failed: %v", err)
	}
	ds, err := NewReadDataset("joinery", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	if _, err := QueryLatestMetrics(t.Context(), ds, "", ""); !errors.Is(err, ErrNoMetricsFound) {
		t.Errorf("expected ErrNoMetricsFound, got %v", err)
	}
}

func TestMatchesPartitionValue(t *testing.T) {
	path := "datasets/joinery/partitions/source=a/day=2024-02-01/join_id=j-10/record_kind=example/part.jsonl"
	tests := []struct {
		key, value string
		want       bool
	}{
		{"join_id", "j-10", true},
		{"join_id", "j-1", false},
		{"record_kind", "example", true},
		{"record_kind", "metrics", false},
	}
	for _, tt := range tests {
		if got := matchesPartitionValue(path, tt.key, tt.value); got != tt.want {
			t.Errorf("matchesPartitionValue(%s=%s) = %v, want %v", tt.key, tt.value, got, tt.want)
		}
	}
}

// toInt64 converts a decoded JSON number to int64.
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
