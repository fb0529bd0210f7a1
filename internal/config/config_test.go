package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// setRequiredEnv sets the minimum environment for a valid config.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PULSEFEED_INGEST_URL", "https://cti.example.com")
	t.Setenv("PULSEFEED_INGEST_TOKEN", "tok-123")
	t.Setenv("PULSEFEED_SOURCE_ID", "alienvault")
	t.Setenv("PULSEFEED_OTX_API_KEY", "key-456")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://cti.example.com", cfg.IngestURL)
	assert.Equal(t, DefaultFeedURL, cfg.FeedURL)
	assert.Equal(t, domain.TLPWhite, cfg.TLP)
	assert.Equal(t, DefaultReportType, cfg.ReportType)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Interval)
	assert.False(t, cfg.GuessMalware)
	assert.False(t, cfg.UpdateExisting)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartTimestamp)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{"no ingest url", "PULSEFEED_INGEST_URL"},
		{"no ingest token", "PULSEFEED_INGEST_TOKEN"},
		{"no source id", "PULSEFEED_SOURCE_ID"},
		{"no api key", "PULSEFEED_OTX_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.omit, "")

			_, err := Load("")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PULSEFEED_TLP", "amber")
	t.Setenv("PULSEFEED_INTERVAL_SEC", "60")
	t.Setenv("PULSEFEED_BATCH_SIZE", "5")
	t.Setenv("PULSEFEED_GUESS_MALWARE", "true")
	t.Setenv("PULSEFEED_UPDATE_EXISTING", "true")
	t.Setenv("PULSEFEED_START_TIMESTAMP", "2023-06-01T12:00:00")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.TLPAmber, cfg.TLP)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.True(t, cfg.GuessMalware)
	assert.True(t, cfg.UpdateExisting)
	assert.Equal(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC), cfg.StartTimestamp)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad tlp", "PULSEFEED_TLP", "ultraviolet"},
		{"bad timestamp", "PULSEFEED_START_TIMESTAMP", "last tuesday"},
		{"bad bool", "PULSEFEED_GUESS_MALWARE", "maybe"},
		{"bad interval", "PULSEFEED_INTERVAL_SEC", "soon"},
		{"negative interval", "PULSEFEED_INTERVAL_SEC", "-5"},
		{"bad confidence", "PULSEFEED_CONFIDENCE", "140"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulsefeed.toml")
	content := `
ingest_url = "https://file.example.com"
ingest_token = "file-token"
source_id = "file-source"
feed_api_key = "file-key"
tlp = "green"
batch_size = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Env wins over the file for source_id only.
	t.Setenv("PULSEFEED_SOURCE_ID", "env-source")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.IngestURL)
	assert.Equal(t, "env-source", cfg.SourceID)
	assert.Equal(t, domain.TLPGreen, cfg.TLP)
	assert.Equal(t, 10, cfg.BatchSize)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "alienvault", cfg.SourceID)
}
