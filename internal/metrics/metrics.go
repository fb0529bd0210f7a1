// Package metrics exposes prometheus instrumentation for the poll
// loop: cycle counters, entity throughput and the checkpoint gauge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seclane/pulsefeed/internal/logger"
)

// Metrics holds the connector's instrumentation.
type Metrics struct {
	CyclesTotal         prometheus.Counter
	CycleErrors         prometheus.Counter
	PulsesFetched       prometheus.Counter
	EntitiesPublished   prometheus.Counter
	PublishFailures     prometheus.Counter
	CheckpointTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsefeed_cycles_total",
			Help: "Poll cycles executed.",
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsefeed_cycle_errors_total",
			Help: "Poll cycles skipped on error.",
		}),
		PulsesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsefeed_pulses_fetched_total",
			Help: "Source records fetched from the feed.",
		}),
		EntitiesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsefeed_entities_published_total",
			Help: "Canonical entities acknowledged downstream.",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsefeed_publish_failures_total",
			Help: "Entities that stayed failed after subset retries.",
		}),
		CheckpointTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulsefeed_checkpoint_timestamp_seconds",
			Help: "Unix timestamp of the current checkpoint.",
		}),
		registry: reg,
	}
}

// SetCheckpoint records the checkpoint position.
func (m *Metrics) SetCheckpoint(ts time.Time) {
	m.CheckpointTimestamp.Set(float64(ts.Unix()))
}

// Serve exposes /metrics on addr in a background goroutine.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("metrics: listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics: listener stopped: %v", err)
		}
	}()
}
