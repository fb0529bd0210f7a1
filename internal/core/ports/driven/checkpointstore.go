package driven

import (
	"context"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// CheckpointStore persists ingestion progress per source identity.
type CheckpointStore interface {
	// Load retrieves the checkpoint for a source. Returns
	// domain.ErrNotFound on first run.
	Load(ctx context.Context, sourceID string) (*domain.Checkpoint, error)

	// Save stores or updates the checkpoint. Callers only invoke this
	// after a publish batch fully succeeds.
	Save(ctx context.Context, sourceID string, ts time.Time) error

	// Reset rewinds the checkpoint to ts. Operator override only.
	Reset(ctx context.Context, sourceID string, ts time.Time) error
}
