package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://hdock.phys.hust.edu.cn/", cfg.Service.URL)
	assert.Equal(t, 1, cfg.Batch.Jobs)
	assert.Equal(t, "./hdock_logs", cfg.Output.Dir)
	assert.Equal(t, "#pdbfile1", cfg.Form.ReceptorFile)
	assert.Equal(t, "input[name=upload]", cfg.Form.Submit)
	assert.Equal(t, "hdock_runs", cfg.DB.Table)
	assert.True(t, cfg.Preflight.Enabled)
	assert.Equal(t, 90, cfg.Browser.NavTimeoutSec)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "batch:\n  jobs: 4\noutput:\n  dir: /tmp/hdock-out\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Batch.Jobs)
	assert.Equal(t, "/tmp/hdock-out", cfg.Output.Dir)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Batch.Jobs = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Service.URL = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Browser.SubmitTimeoutSec = 0
	assert.Error(t, bad.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
