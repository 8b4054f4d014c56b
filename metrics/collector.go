// Package metrics provides per-invocation counters for joins and
// reconstructions.
//
// The Collector is a leaf package with no internal dependencies. Every
// increment method is nil-receiver safe so components can run without one.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Join
	BatchesRead           int64
	ObservationsIndexed   int64
	InteractionsJoined    int64
	ObservationsJoined    int64
	UnmatchedInteractions int64
	PayloadsWritten       int64

	// Reconstruction
	PayloadsRead      int64
	EventsDecoded     int64
	ExamplesEmitted   int64
	UnresolvedActions int64
	OrphanOutcomes    int64
	DanglingEpisodes  int64
	SkippedByType     map[string]int64

	// Lode / Storage
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Notifications
	NotifySuccess int64
	NotifyFailure int64

	// Dimensions (informational, set at construction)
	Command        string
	StorageBackend string
	JoinID         string
}

// Collector accumulates counters during a single invocation.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	batchesRead           int64
	observationsIndexed   int64
	interactionsJoined    int64
	observationsJoined    int64
	unmatchedInteractions int64
	payloadsWritten       int64

	payloadsRead      int64
	eventsDecoded     int64
	examplesEmitted   int64
	unresolvedActions int64
	orphanOutcomes    int64
	danglingEpisodes  int64
	skippedByType     map[string]int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	notifySuccess int64
	notifyFailure int64

	command        string
	storageBackend string
	joinID         string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend and joinID may be empty.
func NewCollector(command, storageBackend, joinID string) *Collector {
	return &Collector{
		skippedByType:  make(map[string]int64),
		command:        command,
		storageBackend: storageBackend,
		joinID:         joinID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// SetJoinID records the join id once it is known.
func (c *Collector) SetJoinID(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.joinID = id
	c.mu.Unlock()
}

// --- Join ---

// IncBatchesRead records one raw artifact batch read.
func (c *Collector) IncBatchesRead() {
	if c == nil {
		return
	}
	c.add(&c.batchesRead, 1)
}

// AddObservationsIndexed records observations added to the join index.
func (c *Collector) AddObservationsIndexed(n int) {
	if c == nil {
		return
	}
	c.add(&c.observationsIndexed, int64(n))
}

// IncInteractionsJoined records one interaction written to the merged log.
func (c *Collector) IncInteractionsJoined() {
	if c == nil {
		return
	}
	c.add(&c.interactionsJoined, 1)
}

// AddObservationsJoined records observations appended after an interaction.
func (c *Collector) AddObservationsJoined(n int) {
	if c == nil {
		return
	}
	c.add(&c.observationsJoined, int64(n))
}

// IncUnmatchedInteractions records an interaction with no observations.
func (c *Collector) IncUnmatchedInteractions() {
	if c == nil {
		return
	}
	c.add(&c.unmatchedInteractions, 1)
}

// IncPayloadsWritten records one Regular frame written.
func (c *Collector) IncPayloadsWritten() {
	if c == nil {
		return
	}
	c.add(&c.payloadsWritten, 1)
}

// --- Reconstruction ---

// IncPayloadsRead records one Regular frame read.
func (c *Collector) IncPayloadsRead() {
	if c == nil {
		return
	}
	c.add(&c.payloadsRead, 1)
}

// IncEventsDecoded records one event decoded.
func (c *Collector) IncEventsDecoded() {
	if c == nil {
		return
	}
	c.add(&c.eventsDecoded, 1)
}

// IncExamplesEmitted records one example produced.
func (c *Collector) IncExamplesEmitted() {
	if c == nil {
		return
	}
	c.add(&c.examplesEmitted, 1)
}

// IncUnresolvedActions records an example emitted without a chosen action.
func (c *Collector) IncUnresolvedActions() {
	if c == nil {
		return
	}
	c.add(&c.unresolvedActions, 1)
}

// IncOrphanOutcomes records an outcome with no decision to attach to.
func (c *Collector) IncOrphanOutcomes() {
	if c == nil {
		return
	}
	c.add(&c.orphanOutcomes, 1)
}

// IncDanglingEpisodes records an episode dropped for a dangling reference.
func (c *Collector) IncDanglingEpisodes() {
	if c == nil {
		return
	}
	c.add(&c.danglingEpisodes, 1)
}

// IncSkipped records an event the reconstructor does not turn into an
// example, keyed by payload type name.
func (c *Collector) IncSkipped(payloadType string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.skippedByType[payloadType]++
	c.mu.Unlock()
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record.

// IncLodeWriteSuccess records a successful Lode write operation.
func (c *Collector) IncLodeWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteSuccess, 1)
}

// IncLodeWriteFailure records a failed Lode write operation.
func (c *Collector) IncLodeWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteFailure, 1)
}

// --- Notifications ---

// IncNotifySuccess records a delivered completion notification.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.add(&c.notifySuccess, 1)
}

// IncNotifyFailure records a failed completion notification.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	skipped := make(map[string]int64, len(c.skippedByType))
	for k, v := range c.skippedByType {
		skipped[k] = v
	}

	return Snapshot{
		BatchesRead:           c.batchesRead,
		ObservationsIndexed:   c.observationsIndexed,
		InteractionsJoined:    c.interactionsJoined,
		ObservationsJoined:    c.observationsJoined,
		UnmatchedInteractions: c.unmatchedInteractions,
		PayloadsWritten:       c.payloadsWritten,

		PayloadsRead:      c.payloadsRead,
		EventsDecoded:     c.eventsDecoded,
		ExamplesEmitted:   c.examplesEmitted,
		UnresolvedActions: c.unresolvedActions,
		OrphanOutcomes:    c.orphanOutcomes,
		DanglingEpisodes:  c.danglingEpisodes,
		SkippedByType:     skipped,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		NotifySuccess: c.notifySuccess,
		NotifyFailure: c.notifyFailure,

		Command:        c.command,
		StorageBackend: c.storageBackend,
		JoinID:         c.joinID,
	}
}
