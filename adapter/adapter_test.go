package adapter

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pithecene-io/joinery/metrics"
)

func TestMain(m *testing.M) {
	BaseBackoff = time.Millisecond
	os.Exit(m.Run())
}

func TestEncode(t *testing.T) {
	body, err := Encode(&JoinCompletedEvent{
		EventType: EventTypeJoinCompleted,
		JoinID:    "j-1",
		Outcome:   OutcomeSuccess,
		Examples:  3,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m["event_type"] != "join_completed" || m["join_id"] != "j-1" {
		t.Errorf("encoded = %s", body)
	}
	if _, ok := m["storage_path"]; ok {
		t.Error("empty storage_path should be omitted")
	}
}

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")

	tests := []struct {
		name      string
		retries   int
		failFirst int
		permanent bool
		wantCalls int
		wantErr   bool
	}{
		{"first try", 3, 0, false, 1, false},
		{"succeeds after retries", 3, 2, false, 3, false},
		{"exhausts retries", 2, 10, false, 3, true},
		{"no retries", 0, 10, false, 1, true},
		{"permanent stops", 3, 10, true, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), "test", tt.retries, func(context.Context) error {
				calls++
				if calls <= tt.failFirst {
					if tt.permanent {
						return Permanent(errTransient)
					}
					return errTransient
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if err != nil {
				if !errors.Is(err, errTransient) {
					t.Errorf("error should wrap the last failure: %v", err)
				}
				if !strings.HasPrefix(err.Error(), "test: ") {
					t.Errorf("error = %q, want test: prefix", err)
				}
			}
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	err := Retry(ctx, "test", 3, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestNotify(t *testing.T) {
	collector := metrics.NewCollector("join", "", "j-1")
	stub := &StubAdapter{}
	event := &JoinCompletedEvent{JoinID: "j-1"}

	if err := Notify(t.Context(), stub, event, collector, nil); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	stub.Err = errors.New("down")
	if err := Notify(t.Context(), stub, event, collector, nil); err == nil {
		t.Fatal("expected error")
	}

	if len(stub.Events) != 1 {
		t.Errorf("published %d events, want 1", len(stub.Events))
	}
	s := collector.Snapshot()
	if s.NotifySuccess != 1 || s.NotifyFailure != 1 {
		t.Errorf("NotifySuccess = %d, NotifyFailure = %d; want 1, 1", s.NotifySuccess, s.NotifyFailure)
	}
}

func TestNotify_NilAdapter(t *testing.T) {
	if err := Notify(t.Context(), nil, &JoinCompletedEvent{}, nil, nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
}
