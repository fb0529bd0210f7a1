// Package config loads the process-wide pulsefeed configuration.
// Settings come from an optional TOML file overridden by environment
// variables, are validated once at startup and passed to components
// as an immutable struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// Defaults applied when neither file nor environment provide a value.
const (
	DefaultFeedURL        = "https://otx.alienvault.com"
	DefaultSourceScope    = "threat-intel"
	DefaultTLP            = "white"
	DefaultStartTimestamp = "2020-01-01T00:00:00Z"
	DefaultReportStatus   = "new"
	DefaultReportType     = "threat-report"
	DefaultInterval       = 1800 * time.Second
	DefaultBatchSize      = 25
	DefaultConfidence     = 50
	DefaultLogLevel       = "info"
)

// Config is the immutable process configuration.
type Config struct {
	// Downstream ingestion endpoint.
	IngestURL   string
	IngestToken string

	// Connector identity and declared scope.
	SourceID    string
	SourceScope string

	// Remote feed.
	FeedURL    string
	FeedAPIKey string

	// Normalisation policy.
	TLP            domain.TLP
	ReportStatus   string
	ReportType     string
	GuessMalware   bool
	Confidence     int
	UpdateExisting bool

	// Loop behaviour.
	StartTimestamp time.Time
	Interval       time.Duration
	BatchSize      int

	// Infrastructure.
	DataDir     string
	LogLevel    string
	MetricsAddr string
}

// fileConfig mirrors the optional TOML file. Environment variables
// override any value set here.
type fileConfig struct {
	IngestURL      string `toml:"ingest_url"`
	IngestToken    string `toml:"ingest_token"`
	SourceID       string `toml:"source_id"`
	SourceScope    string `toml:"source_scope"`
	FeedURL        string `toml:"feed_url"`
	FeedAPIKey     string `toml:"feed_api_key"`
	TLP            string `toml:"tlp"`
	StartTimestamp string `toml:"start_timestamp"`
	ReportStatus   string `toml:"report_status"`
	ReportType     string `toml:"report_type"`
	GuessMalware   *bool  `toml:"guess_malware"`
	UpdateExisting *bool  `toml:"update_existing"`
	IntervalSec    int    `toml:"interval_sec"`
	BatchSize      int    `toml:"batch_size"`
	Confidence     *int   `toml:"confidence"`
	DataDir        string `toml:"data_dir"`
	LogLevel       string `toml:"log_level"`
	MetricsAddr    string `toml:"metrics_addr"`
}

// Load builds the configuration from the TOML file at path (skipped
// when path is empty or missing) and the PULSEFEED_* environment.
// Validation failures are wrapped in domain.ErrConfig.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrConfig, path, err)
		}
		if err == nil {
			if err := toml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfig, path, err)
			}
		}
	}

	cfg := &Config{
		IngestURL:    pick("PULSEFEED_INGEST_URL", fc.IngestURL, ""),
		IngestToken:  pick("PULSEFEED_INGEST_TOKEN", fc.IngestToken, ""),
		SourceID:     pick("PULSEFEED_SOURCE_ID", fc.SourceID, ""),
		SourceScope:  pick("PULSEFEED_SOURCE_SCOPE", fc.SourceScope, DefaultSourceScope),
		FeedURL:      pick("PULSEFEED_OTX_URL", fc.FeedURL, DefaultFeedURL),
		FeedAPIKey:   pick("PULSEFEED_OTX_API_KEY", fc.FeedAPIKey, ""),
		ReportStatus: pick("PULSEFEED_REPORT_STATUS", fc.ReportStatus, DefaultReportStatus),
		ReportType:   pick("PULSEFEED_REPORT_TYPE", fc.ReportType, DefaultReportType),
		DataDir:      pick("PULSEFEED_DATA_DIR", fc.DataDir, ""),
		LogLevel:     pick("PULSEFEED_LOG_LEVEL", fc.LogLevel, DefaultLogLevel),
		MetricsAddr:  pick("PULSEFEED_METRICS_ADDR", fc.MetricsAddr, ""),
	}

	var err error
	if cfg.TLP, err = domain.ParseTLP(pick("PULSEFEED_TLP", fc.TLP, DefaultTLP)); err != nil {
		return nil, fmt.Errorf("%w: PULSEFEED_TLP: unknown marking level", domain.ErrConfig)
	}

	startRaw := pick("PULSEFEED_START_TIMESTAMP", fc.StartTimestamp, DefaultStartTimestamp)
	cfg.StartTimestamp, err = ParseTimestamp(startRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: PULSEFEED_START_TIMESTAMP: %q is not ISO-8601", domain.ErrConfig, startRaw)
	}

	cfg.GuessMalware, err = pickBool("PULSEFEED_GUESS_MALWARE", fc.GuessMalware, false)
	if err != nil {
		return nil, err
	}
	cfg.UpdateExisting, err = pickBool("PULSEFEED_UPDATE_EXISTING", fc.UpdateExisting, false)
	if err != nil {
		return nil, err
	}

	intervalSec, err := pickInt("PULSEFEED_INTERVAL_SEC", fc.IntervalSec, int(DefaultInterval.Seconds()))
	if err != nil {
		return nil, err
	}
	cfg.Interval = time.Duration(intervalSec) * time.Second

	if cfg.BatchSize, err = pickInt("PULSEFEED_BATCH_SIZE", fc.BatchSize, DefaultBatchSize); err != nil {
		return nil, err
	}

	confDefault := DefaultConfidence
	if fc.Confidence != nil {
		confDefault = *fc.Confidence
	}
	if cfg.Confidence, err = pickInt("PULSEFEED_CONFIDENCE", confDefault, confDefault); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.IngestURL == "":
		return fmt.Errorf("%w: PULSEFEED_INGEST_URL is required", domain.ErrConfig)
	case c.IngestToken == "":
		return fmt.Errorf("%w: PULSEFEED_INGEST_TOKEN is required", domain.ErrConfig)
	case c.SourceID == "":
		return fmt.Errorf("%w: PULSEFEED_SOURCE_ID is required", domain.ErrConfig)
	case c.FeedAPIKey == "":
		return fmt.Errorf("%w: PULSEFEED_OTX_API_KEY is required", domain.ErrConfig)
	case c.Interval <= 0:
		return fmt.Errorf("%w: polling interval must be positive", domain.ErrConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", domain.ErrConfig)
	case c.Confidence < 0 || c.Confidence > 100:
		return fmt.Errorf("%w: confidence must be within 0-100", domain.ErrConfig)
	}
	return nil
}

// ParseTimestamp accepts RFC 3339 and the zone-less ISO-8601 form the
// feed uses.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func pick(env, fileVal, def string) string {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func pickBool(env string, fileVal *bool, def bool) (bool, error) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %q is not a boolean", domain.ErrConfig, env, v)
		}
		return b, nil
	}
	if fileVal != nil {
		return *fileVal, nil
	}
	return def, nil
}

func pickInt(env string, fileVal, def int) (int, error) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not an integer", domain.ErrConfig, env, v)
		}
		return n, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}
