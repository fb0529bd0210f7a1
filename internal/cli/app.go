package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/seclane/pulsefeed/internal/config"
	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/services"
	"github.com/seclane/pulsefeed/internal/feed/otx"
	"github.com/seclane/pulsefeed/internal/logger"
	"github.com/seclane/pulsefeed/internal/metrics"
	"github.com/seclane/pulsefeed/internal/normalise"
	"github.com/seclane/pulsefeed/internal/publish/ingest"
	"github.com/seclane/pulsefeed/internal/storage/sqlite"
)

// app bundles the wired components behind a command.
type app struct {
	cfg      *config.Config
	store    *sqlite.Store
	feed     *otx.Client
	importer *services.Importer
	metrics  *metrics.Metrics
}

// buildApp loads configuration and assembles the import pipeline.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	feed := otx.NewClient(otx.ClientConfig{
		BaseURL: cfg.FeedURL,
		APIKey:  cfg.FeedAPIKey,
	})

	publisher := ingest.NewClient(ctx, ingest.ClientConfig{
		BaseURL:        cfg.IngestURL,
		Token:          cfg.IngestToken,
		SourceID:       cfg.SourceID,
		UpdateExisting: cfg.UpdateExisting,
	})

	normaliser := normalise.New(normalise.Policy{
		SourceName:   cfg.SourceID,
		Marking:      cfg.TLP,
		Confidence:   cfg.Confidence,
		ReportStatus: cfg.ReportStatus,
		ReportType:   cfg.ReportType,
	})

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	importer := services.NewImporter(services.ImporterConfig{
		SourceID:     cfg.SourceID,
		DefaultSince: cfg.StartTimestamp,
		BatchSize:    cfg.BatchSize,
		GuessMalware: cfg.GuessMalware,
	}, feed, normaliser, publisher, store.CheckpointStore(), m)

	return &app{
		cfg:      cfg,
		store:    store,
		feed:     feed,
		importer: importer,
		metrics:  m,
	}, nil
}

// validate checks the feed credentials before the first cycle so a bad
// API key fails the command instead of silently skipping every cycle.
func (a *app) validate(ctx context.Context) error {
	if err := a.feed.Validate(ctx); err != nil {
		return fmt.Errorf("validating feed credentials: %w", err)
	}
	return nil
}

// buildStore opens only the storage layer, for checkpoint maintenance
// commands that must not require feed or ingest credentials.
func buildStore() (*config.Config, *sqlite.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		// Checkpoint commands only need the source ID and data dir.
		cfg, err = partialConfig()
		if err != nil {
			return nil, nil, err
		}
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// partialConfig builds a config from environment without requiring the
// feed and ingest credentials.
func partialConfig() (*config.Config, error) {
	cfg := &config.Config{
		SourceID: envOr("PULSEFEED_SOURCE_ID", ""),
		DataDir:  envOr("PULSEFEED_DATA_DIR", ""),
	}
	if cfg.SourceID == "" {
		return nil, fmt.Errorf("%w: PULSEFEED_SOURCE_ID is required", domain.ErrConfig)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("closing store: %v", err)
	}
}
