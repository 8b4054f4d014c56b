package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("join", "fs", "join-001")

	c.IncBatchesRead()
	c.IncBatchesRead()
	c.AddObservationsIndexed(5)
	c.IncInteractionsJoined()
	c.IncInteractionsJoined()
	c.IncInteractionsJoined()
	c.AddObservationsJoined(4)
	c.IncUnmatchedInteractions()
	c.IncPayloadsWritten()
	c.IncPayloadsRead()
	c.IncEventsDecoded()
	c.IncEventsDecoded()
	c.IncExamplesEmitted()
	c.IncUnresolvedActions()
	c.IncOrphanOutcomes()
	c.IncDanglingEpisodes()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()
	c.IncNotifySuccess()
	c.IncNotifyFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"BatchesRead", s.BatchesRead, 2},
		{"ObservationsIndexed", s.ObservationsIndexed, 5},
		{"InteractionsJoined", s.InteractionsJoined, 3},
		{"ObservationsJoined", s.ObservationsJoined, 4},
		{"UnmatchedInteractions", s.UnmatchedInteractions, 1},
		{"PayloadsWritten", s.PayloadsWritten, 1},
		{"PayloadsRead", s.PayloadsRead, 1},
		{"EventsDecoded", s.EventsDecoded, 2},
		{"ExamplesEmitted", s.ExamplesEmitted, 1},
		{"UnresolvedActions", s.UnresolvedActions, 1},
		{"OrphanOutcomes", s.OrphanOutcomes, 1},
		{"DanglingEpisodes", s.DanglingEpisodes, 1},
		{"LodeWriteSuccess", s.LodeWriteSuccess, 1},
		{"LodeWriteFailure", s.LodeWriteFailure, 1},
		{"NotifySuccess", s.NotifySuccess, 1},
		{"NotifyFailure", s.NotifyFailure, 1},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %d, want %d", ch.name, ch.got, ch.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("parse", "s3", "")
	c.SetJoinID("join-xyz")

	s := c.Snapshot()
	if s.Command != "parse" {
		t.Errorf("Command = %q, want %q", s.Command, "parse")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
	if s.JoinID != "join-xyz" {
		t.Errorf("JoinID = %q, want %q", s.JoinID, "join-xyz")
	}
}

func TestCollector_SkippedByTypeIsolation(t *testing.T) {
	c := NewCollector("parse", "", "")
	c.IncSkipped("ca")
	c.IncSkipped("ca")
	c.IncSkipped("dedup_info")

	s := c.Snapshot()
	if s.SkippedByType["ca"] != 2 {
		t.Errorf("SkippedByType[ca] = %d, want 2", s.SkippedByType["ca"])
	}
	s.SkippedByType["ca"] = 100

	if again := c.Snapshot(); again.SkippedByType["ca"] != 2 {
		t.Errorf("snapshot mutation leaked: SkippedByType[ca] = %d, want 2", again.SkippedByType["ca"])
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	c.SetJoinID("x")
	c.IncBatchesRead()
	c.AddObservationsIndexed(1)
	c.IncInteractionsJoined()
	c.AddObservationsJoined(1)
	c.IncUnmatchedInteractions()
	c.IncPayloadsWritten()
	c.IncPayloadsRead()
	c.IncEventsDecoded()
	c.IncExamplesEmitted()
	c.IncUnresolvedActions()
	c.IncOrphanOutcomes()
	c.IncDanglingEpisodes()
	c.IncSkipped("cb")
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()
	c.IncNotifySuccess()
	c.IncNotifyFailure()

	s := c.Snapshot()
	if s.ExamplesEmitted != 0 || s.SkippedByType != nil {
		t.Errorf("nil collector snapshot = %+v, want zero value", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("join", "", "")

	const goroutines = 50
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncInteractionsJoined()
				c.IncSkipped("ca")
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.InteractionsJoined != goroutines*iterations {
		t.Errorf("InteractionsJoined = %d, want %d", s.InteractionsJoined, goroutines*iterations)
	}
	if s.SkippedByType["ca"] != goroutines*iterations {
		t.Errorf("SkippedByType[ca] = %d, want %d", s.SkippedByType["ca"], goroutines*iterations)
	}
}
