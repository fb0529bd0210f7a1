package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointCmd_Wiring(t *testing.T) {
	assert.Equal(t, "checkpoint", checkpointCmd.Use)

	names := make([]string, 0, 2)
	for _, sub := range checkpointCmd.Commands() {
		names = append(names, sub.Use)
	}
	assert.Contains(t, names, "show")
	assert.Contains(t, names, "reset")
}

func TestCheckpointShowAndReset(t *testing.T) {
	t.Setenv("PULSEFEED_SOURCE_ID", "alienvault")
	t.Setenv("PULSEFEED_DATA_DIR", t.TempDir())

	run := func(args ...string) (string, error) {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetArgs(args)
		defer rootCmd.SetArgs(nil)
		err := rootCmd.Execute()
		return buf.String(), err
	}

	// No checkpoint yet.
	out, err := run("checkpoint", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No checkpoint stored for alienvault")

	// Reset writes one.
	out, err = run("checkpoint", "reset", "--to", "2023-06-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "reset to 2023-06-01T00:00:00Z")

	out, err = run("checkpoint", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "alienvault")
	assert.Contains(t, out, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
}

func TestCheckpointResetRejectsBadTimestamp(t *testing.T) {
	t.Setenv("PULSEFEED_SOURCE_ID", "alienvault")
	t.Setenv("PULSEFEED_DATA_DIR", t.TempDir())

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"checkpoint", "reset", "--to", "next tuesday"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
}
