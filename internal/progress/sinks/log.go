// Package sinks provides progress.Sink implementations.
package sinks

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/progress"
)

// LogSink emits one human-readable line per completed job.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Record logs `N/M | row R | OK/FAIL | url-or-dash`.
func (s *LogSink) Record(snap progress.Snapshot, res hdock.JobResult) {
	status := "FAIL"
	location := "-"
	if res.OK {
		status = "OK"
		location = res.ResultURL
	}
	s.logger.Info(
		fmt.Sprintf("%d/%d | row %d | %-4s | %s", snap.Completed, snap.Total, res.RowIndex, status, location),
		zap.String("jobname", res.JobName),
		zap.String("token", res.Token),
	)
}
