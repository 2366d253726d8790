// Package runlog persists one outcome row per job, append-only.
package runlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

// FileName is the run log's name inside the output directory.
const FileName = "run-log.csv"

const timeLayout = "2006-01-02 15:04:05"

// header order is part of the contract: rows from different runs of this
// tool must line up in one file.
var header = []string{"row", "timestamp", "jobname", "token", "result_url", "ok", "error"}

// Writer serializes JobResult appends into a single CSV file opened in
// append mode, so a batch can be safely re-run alongside prior runs. Appends
// are row-atomic: each record is fully written and flushed before the next
// is accepted.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	path   string
	logger *zap.Logger
}

// NewWriter opens (or creates) the run log under dir. The header is written
// only when the file is new or empty, keeping re-runs append-clean.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	w := &Writer{
		file:   file,
		csv:    csv.NewWriter(file),
		path:   path,
		logger: logger,
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat run log %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := w.writeRecord(header); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("write run log header: %w", err)
		}
	}
	return w, nil
}

// Append writes one complete, schema-conformant record. Safe for concurrent
// use, though the pipeline routes all appends through a single goroutine.
func (w *Writer) Append(res hdock.JobResult) error {
	record := []string{
		strconv.Itoa(res.RowIndex),
		res.Timestamp.Format(timeLayout),
		res.JobName,
		res.Token,
		res.ResultURL,
		strconv.FormatBool(res.OK),
		res.Error,
	}
	if err := w.writeRecord(record); err != nil {
		return fmt.Errorf("append run log row %d: %w", res.RowIndex, err)
	}
	return nil
}

func (w *Writer) writeRecord(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(record); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Path returns the run log's location for user-facing messages.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("flush run log: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	return nil
}
