package metrics

import (
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if jobsTotal == nil || jobsInFlight == nil || jobDuration == nil {
		t.Fatal("collectors not initialized")
	}
}

func TestRecordersDoNotPanic(t *testing.T) {
	Init()

	JobStarted()
	JobFinished(OutcomeOK, 2*time.Second)
	JobRejected()
	StateFailure("navigation_failed")
	RunLogAppended()
	MirrorError()
}
