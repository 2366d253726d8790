package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/progress"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewServer(progress.NewTracker("b", 0), zap.NewNop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetProgressReflectsTracker(t *testing.T) {
	t.Parallel()

	tracker := progress.NewTracker("batch-1", 5)
	tracker.Record(hdock.JobResult{RowIndex: 1, OK: true})
	tracker.Record(hdock.JobResult{RowIndex: 2, OK: false})

	srv := httptest.NewServer(NewServer(tracker, zap.NewNop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap progress.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "batch-1", snap.BatchID)
	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 2, snap.Completed)
	assert.Equal(t, 1, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)
}

func TestMetricsEndpointServes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewServer(progress.NewTracker("b", 0), zap.NewNop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
