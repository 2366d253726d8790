package runlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleResult(row int) hdock.JobResult {
	return hdock.JobResult{
		RowIndex:  row,
		JobName:   "job",
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Token:     "abcdef1234",
		ResultURL: "http://hdock.phys.hust.edu.cn/result?token=abcdef1234",
		OK:        true,
	}
}

func TestAppendWritesSchemaConformantRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.Append(sampleResult(1)))
	failed := hdock.JobResult{
		RowIndex:  2,
		JobName:   "bad",
		Timestamp: time.Date(2026, 8, 24, 12, 0, 1, 0, time.UTC),
		OK:        false,
		Error:     "navigation_failed: context deadline exceeded",
	}
	require.NoError(t, w.Append(failed))
	require.NoError(t, w.Close())

	rows := readRows(t, filepath.Join(dir, FileName))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"row", "timestamp", "jobname", "token", "result_url", "ok", "error"}, rows[0])
	assert.Equal(t, []string{"1", "2026-08-24 12:00:00", "job", "abcdef1234", "http://hdock.phys.hust.edu.cn/result?token=abcdef1234", "true", ""}, rows[1])
	assert.Equal(t, "false", rows[2][5])
	assert.Equal(t, "navigation_failed: context deadline exceeded", rows[2][6])
}

func TestReopenAppendsWithoutDuplicateHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Append(sampleResult(1)))
	require.NoError(t, w.Close())

	w, err = NewWriter(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Append(sampleResult(2)))
	require.NoError(t, w.Close())

	rows := readRows(t, filepath.Join(dir, FileName))
	require.Len(t, rows, 3, "one header plus one row per run")
	assert.Equal(t, "row", rows[0][0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestConcurrentAppendsNeverInterleave(t *testing.T) {
	t.Parallel()

	const n = 50
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			assert.NoError(t, w.Append(sampleResult(row)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	rows := readRows(t, filepath.Join(dir, FileName))
	require.Len(t, rows, n+1)
	seen := map[string]bool{}
	for _, row := range rows[1:] {
		require.Len(t, row, 7, "partial row detected")
		require.False(t, seen[row[0]], "duplicate row index %s", row[0])
		seen[row[0]] = true
	}
	assert.Len(t, seen, n)
}

func TestNewWriterBadDirFails(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := NewWriter(filepath.Join(file, "sub"), zap.NewNop())
	require.Error(t, err)
}
