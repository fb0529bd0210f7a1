package services

import (
	"context"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
	"github.com/seclane/pulsefeed/internal/logger"
	"github.com/seclane/pulsefeed/internal/metrics"
)

// historyKeep bounds the cycle result history kept in storage.
const historyKeep = 100

// Daemon runs the importer forever on the configured interval. A
// failed cycle is logged and the loop sleeps as usual; only context
// cancellation stops it, including mid-sleep.
type Daemon struct {
	importer *Importer
	cycles   driven.CycleStore
	interval time.Duration
	metrics  *metrics.Metrics
}

// NewDaemon creates a daemon. cycles and m may be nil.
func NewDaemon(importer *Importer, cycles driven.CycleStore, interval time.Duration, m *metrics.Metrics) *Daemon {
	return &Daemon{
		importer: importer,
		cycles:   cycles,
		interval: interval,
		metrics:  m,
	}
}

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	logger.Info("daemon: starting, polling every %s", d.interval)

	for {
		result, err := d.importer.RunCycle(ctx)
		if ctx.Err() != nil {
			logger.Info("daemon: shutting down")
			return ctx.Err()
		}

		if d.metrics != nil {
			d.metrics.CyclesTotal.Inc()
			if err != nil {
				d.metrics.CycleErrors.Inc()
			}
		}
		d.record(ctx, result)

		// The error was already logged with context by the importer;
		// the daemon only decides to keep going.
		logger.Debug("daemon: sleeping for %s", d.interval)
		select {
		case <-ctx.Done():
			logger.Info("daemon: shutting down")
			return ctx.Err()
		case <-time.After(d.interval):
		}
	}
}

// record persists the cycle result and prunes old history. Storage
// failures are logged, never fatal.
func (d *Daemon) record(ctx context.Context, result *domain.CycleResult) {
	if d.cycles == nil || result == nil {
		return
	}
	if err := d.cycles.RecordResult(ctx, result); err != nil {
		logger.Warn("daemon: failed to record cycle result: %v", err)
		return
	}
	if err := d.cycles.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("daemon: failed to prune cycle history: %v", err)
	}
}
