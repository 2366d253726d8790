package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRequiresCSVArgument(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"submit"})
	cmd.SetOut(new(strings.Builder))
	cmd.SetErr(new(strings.Builder))

	require.Error(t, cmd.Execute())
}

func TestSubmitUnreadableCSVIsFatal(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"submit", filepath.Join(t.TempDir(), "missing.csv")})
	cmd.SetOut(new(strings.Builder))
	cmd.SetErr(new(strings.Builder))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input csv")
}

func TestSubmitFlagsRegistered(t *testing.T) {
	cmd := newSubmitCmd()
	assert.NotNil(t, cmd.Flags().Lookup("out"))

	jobs := cmd.Flags().ShorthandLookup("j")
	require.NotNil(t, jobs)
	assert.Equal(t, "jobs", jobs.Name)
	assert.Equal(t, "1", jobs.DefValue)
}
