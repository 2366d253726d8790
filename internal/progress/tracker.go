// Package progress tracks batch completion and fans results out to sinks.
package progress

import (
	"sync"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

// Snapshot is a point-in-time view of the batch.
type Snapshot struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// Sink receives every recorded result together with the snapshot taken
// right after it was counted.
type Sink interface {
	Record(snap Snapshot, res hdock.JobResult)
}

// Tracker counts outcomes as they arrive, in arrival order. Safe for
// concurrent use, though the pipeline records from a single goroutine.
type Tracker struct {
	mu    sync.Mutex
	snap  Snapshot
	sinks []Sink
}

// NewTracker creates a Tracker expecting total results.
func NewTracker(batchID string, total int, sinks ...Sink) *Tracker {
	return &Tracker{
		snap:  Snapshot{BatchID: batchID, Total: total},
		sinks: append([]Sink(nil), sinks...),
	}
}

// Record counts one result and notifies every sink.
func (t *Tracker) Record(res hdock.JobResult) {
	t.mu.Lock()
	t.snap.Completed++
	if res.OK {
		t.snap.Succeeded++
	} else {
		t.snap.Failed++
	}
	snap := t.snap
	t.mu.Unlock()

	for _, sink := range t.sinks {
		sink.Record(snap, res)
	}
}

// Snapshot returns the current counts.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
