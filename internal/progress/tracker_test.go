package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

type captureSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *captureSink) Record(snap Snapshot, _ hdock.JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func TestTrackerCountsOutcomes(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	tracker := NewTracker("batch-1", 3, sink)

	tracker.Record(hdock.JobResult{RowIndex: 1, OK: true})
	tracker.Record(hdock.JobResult{RowIndex: 2, OK: false})
	tracker.Record(hdock.JobResult{RowIndex: 3, OK: true})

	snap := tracker.Snapshot()
	assert.Equal(t, "batch-1", snap.BatchID)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3, snap.Completed)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)

	assert.Len(t, sink.snaps, 3)
	assert.Equal(t, 1, sink.snaps[0].Completed)
	assert.Equal(t, 3, sink.snaps[2].Completed)
}

func TestTrackerConcurrentRecords(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("batch-2", 50)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			tracker.Record(hdock.JobResult{RowIndex: row, OK: row%2 == 0})
		}(i)
	}
	wg.Wait()

	snap := tracker.Snapshot()
	assert.Equal(t, 50, snap.Completed)
	assert.Equal(t, 25, snap.Succeeded)
	assert.Equal(t, 25, snap.Failed)
}
