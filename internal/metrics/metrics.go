// Package metrics exposes Prometheus collectors for the batch submitter.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes used as label values.
const (
	OutcomeOK         = "ok"
	OutcomeTokenShort = "token_short"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
)

var (
	jobsTotal       *prometheus.CounterVec
	jobsInFlight    prometheus.Gauge
	jobDuration     prometheus.Histogram
	stateFailures   *prometheus.CounterVec
	runLogAppends   prometheus.Counter
	runLogMirrorErr prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdock_jobs_total",
				Help: "Jobs finished, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		jobsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hdock_jobs_in_flight",
				Help: "Jobs currently being driven through the submission form.",
			},
		)
		jobDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hdock_submission_duration_seconds",
				Help:    "Wall time per submission attempt.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)
		stateFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdock_state_failures_total",
				Help: "Submission failures, labeled by failure reason.",
			},
			[]string{"reason"},
		)
		runLogAppends = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hdock_runlog_appends_total",
				Help: "Rows appended to the run log.",
			},
		)
		runLogMirrorErr = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hdock_runlog_mirror_errors_total",
				Help: "Failed inserts into the Postgres run-log mirror.",
			},
		)
	})
}

// JobStarted marks a job entering the state machine.
func JobStarted() {
	if jobsInFlight != nil {
		jobsInFlight.Inc()
	}
}

// JobFinished records a completed job, success or not.
func JobFinished(outcome string, dur time.Duration) {
	if jobsInFlight != nil {
		jobsInFlight.Dec()
	}
	if jobsTotal != nil {
		jobsTotal.WithLabelValues(outcome).Inc()
	}
	if jobDuration != nil {
		jobDuration.Observe(dur.Seconds())
	}
}

// JobRejected records a row that never reached a worker.
func JobRejected() {
	if jobsTotal != nil {
		jobsTotal.WithLabelValues(OutcomeRejected).Inc()
	}
}

// StateFailure records which transition a job failed on.
func StateFailure(reason string) {
	if stateFailures != nil {
		stateFailures.WithLabelValues(reason).Inc()
	}
}

// RunLogAppended records one durable run-log row.
func RunLogAppended() {
	if runLogAppends != nil {
		runLogAppends.Inc()
	}
}

// MirrorError records a failed Postgres mirror insert.
func MirrorError() {
	if runLogMirrorErr != nil {
		runLogMirrorErr.Inc()
	}
}
