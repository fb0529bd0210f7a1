// Package services contains the core orchestration of pulsefeed: the
// importer runs one fetch-normalise-publish-checkpoint cycle, the
// daemon repeats it on the configured interval.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
	"github.com/seclane/pulsefeed/internal/logger"
	"github.com/seclane/pulsefeed/internal/metrics"
)

// guessNotAMalware marks tags the downstream catalogue rejected so
// they are not looked up again within the cycle.
const guessNotAMalware = "GUESS_NOT_A_MALWARE"

// ImporterConfig holds the loop policy for one source.
type ImporterConfig struct {
	// SourceID is the connector identity owning the checkpoint.
	SourceID string

	// DefaultSince is the initial checkpoint used on first run.
	DefaultSince time.Time

	// BatchSize bounds how many pulses are normalised and published
	// per checkpoint advance. Long backfills publish incrementally
	// instead of materialising the whole feed first.
	BatchSize int

	// GuessMalware enables resolving pulse tags against the
	// downstream malware catalogue.
	GuessMalware bool

	// PublishRetries bounds retries of a failed publish subset.
	PublishRetries int
}

// Importer executes one poll cycle: read checkpoint, fetch since,
// normalise, publish, advance checkpoint.
type Importer struct {
	cfg         ImporterConfig
	feed        driven.FeedClient
	normaliser  driven.Normaliser
	publisher   driven.Publisher
	checkpoints driven.CheckpointStore
	metrics     *metrics.Metrics

	// guessCache caches tag lookups within a cycle.
	guessCache map[string]string
}

// NewImporter creates an importer. metrics may be nil.
func NewImporter(
	cfg ImporterConfig,
	feed driven.FeedClient,
	normaliser driven.Normaliser,
	publisher driven.Publisher,
	checkpoints driven.CheckpointStore,
	m *metrics.Metrics,
) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.PublishRetries <= 0 {
		cfg.PublishRetries = 3
	}
	return &Importer{
		cfg:         cfg,
		feed:        feed,
		normaliser:  normaliser,
		publisher:   publisher,
		checkpoints: checkpoints,
		metrics:     m,
		guessCache:  make(map[string]string),
	}
}

// RunCycle executes one full cycle. The returned result is always
// populated; err is non-nil when the cycle was skipped before
// completion. Batches published before the failure keep their
// checkpoint advances, preserving at-least-once delivery.
func (i *Importer) RunCycle(ctx context.Context) (*domain.CycleResult, error) {
	result := &domain.CycleResult{
		SourceID:  i.cfg.SourceID,
		StartedAt: time.Now(),
	}

	// Tag guesses are only cached within one cycle.
	i.guessCache = make(map[string]string)

	cp, err := i.loadCheckpoint(ctx)
	if err != nil {
		return i.fail(result, fmt.Errorf("load checkpoint: %w", err))
	}
	since := cp.Timestamp

	logger.Info("cycle: fetching pulses for %s since %s", i.cfg.SourceID, since.Format(time.RFC3339))

	it := i.feed.Pulses(since)
	var batch []domain.Pulse

	for {
		pulses, err := it.Next(ctx)
		if errors.Is(err, domain.ErrIteratorDone) {
			break
		}
		if err != nil {
			return i.fail(result, fmt.Errorf("fetch since %s: %w", since.Format(time.RFC3339), err))
		}

		result.Pulses += len(pulses)
		if i.metrics != nil {
			i.metrics.PulsesFetched.Add(float64(len(pulses)))
		}
		batch = append(batch, pulses...)

		for len(batch) >= i.cfg.BatchSize {
			chunk := batch[:i.cfg.BatchSize]
			batch = batch[i.cfg.BatchSize:]
			if err := i.processBatch(ctx, chunk, cp, result); err != nil {
				return i.fail(result, err)
			}
		}
	}

	if len(batch) > 0 {
		if err := i.processBatch(ctx, batch, cp, result); err != nil {
			return i.fail(result, err)
		}
	}

	result.EndedAt = time.Now()
	result.Success = true
	logger.Info("cycle: completed for %s (%d pulses, %d entities), checkpoint %s",
		i.cfg.SourceID, result.Pulses, result.Entities, cp.Timestamp.Format(time.RFC3339))
	return result, nil
}

// loadCheckpoint reads the stored checkpoint, falling back to the
// configured initial timestamp on first run.
func (i *Importer) loadCheckpoint(ctx context.Context) (*domain.Checkpoint, error) {
	cp, err := i.checkpoints.Load(ctx, i.cfg.SourceID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("cycle: no checkpoint for %s, starting from %s",
			i.cfg.SourceID, i.cfg.DefaultSince.Format(time.RFC3339))
		return &domain.Checkpoint{SourceID: i.cfg.SourceID, Timestamp: i.cfg.DefaultSince}, nil
	}
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// processBatch normalises and publishes one batch of pulses, then
// advances the checkpoint. The checkpoint is only saved when every
// entity in the batch was acknowledged.
func (i *Importer) processBatch(
	ctx context.Context,
	pulses []domain.Pulse,
	cp *domain.Checkpoint,
	result *domain.CycleResult,
) error {
	logger.Debug("cycle: normalising batch of %d pulse(s)", len(pulses))

	var entities []domain.Entity
	highWater := cp.Timestamp
	for _, pulse := range pulses {
		guessed := i.guessMalwares(ctx, pulse.Tags)
		entities = append(entities, i.normaliser.Normalise(pulse, guessed)...)
		if pulse.Modified.After(highWater) {
			highWater = pulse.Modified
		}
	}

	logger.Debug("cycle: publishing %d entities", len(entities))
	if err := i.publishWithRetry(ctx, entities); err != nil {
		return err
	}
	result.Entities += len(entities)
	if i.metrics != nil {
		i.metrics.EntitiesPublished.Add(float64(len(entities)))
	}

	// Checkpoints only move forward.
	if cp.Advance(highWater) {
		if err := i.checkpoints.Save(ctx, i.cfg.SourceID, cp.Timestamp); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		if i.metrics != nil {
			i.metrics.SetCheckpoint(cp.Timestamp)
		}
		logger.Debug("cycle: checkpoint advanced to %s", cp.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// publishWithRetry publishes a batch, retrying only the failed subset
// of a partial failure up to the configured bound.
func (i *Importer) publishWithRetry(ctx context.Context, entities []domain.Entity) error {
	err := i.publisher.Publish(ctx, entities)
	for attempt := 1; err != nil && attempt <= i.cfg.PublishRetries; attempt++ {
		ppe, ok := domain.AsPartialPublish(err)
		if !ok {
			return err
		}
		logger.Warn("cycle: %d entities failed to publish for %s, retrying subset (attempt %d/%d)",
			len(ppe.Failed), i.cfg.SourceID, attempt, i.cfg.PublishRetries)
		err = i.publisher.Publish(ctx, ppe.Failed)
	}

	if err != nil {
		if ppe, ok := domain.AsPartialPublish(err); ok && i.metrics != nil {
			i.metrics.PublishFailures.Add(float64(len(ppe.Failed)))
		}
		return err
	}
	return nil
}

// guessMalwares resolves pulse tags to downstream malware IDs, with a
// per-cycle cache. Lookup errors skip the tag without failing the
// cycle.
func (i *Importer) guessMalwares(ctx context.Context, tags []string) map[string]string {
	if !i.cfg.GuessMalware {
		return nil
	}

	guessed := make(map[string]string)
	for _, tag := range tags {
		if tag == "" {
			continue
		}

		guess, ok := i.guessCache[tag]
		if !ok {
			id, err := i.publisher.MalwareID(ctx, tag)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				guess = guessNotAMalware
			case err != nil:
				logger.Warn("cycle: malware lookup for tag %q failed: %v", tag, err)
				continue
			default:
				guess = id
			}
			i.guessCache[tag] = guess
		}

		if guess != guessNotAMalware {
			logger.Debug("cycle: tag %q references malware %s", tag, guess)
			guessed[tag] = guess
		}
	}
	return guessed
}

// fail finalises a skipped cycle.
func (i *Importer) fail(result *domain.CycleResult, err error) (*domain.CycleResult, error) {
	result.EndedAt = time.Now()
	result.Success = false
	result.Error = err.Error()
	logger.Error("cycle: skipped for %s (started %s): %v",
		i.cfg.SourceID, result.StartedAt.Format(time.RFC3339), err)
	return result, err
}
