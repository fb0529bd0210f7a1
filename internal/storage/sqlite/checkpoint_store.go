package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
)

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Load retrieves the checkpoint for a source.
func (s *checkpointStore) Load(ctx context.Context, sourceID string) (*domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, ts, updated_at
		FROM checkpoints WHERE source_id = ?
	`, sourceID)

	var cp domain.Checkpoint
	var ts, updatedAt string
	if err := row.Scan(&cp.SourceID, &ts, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	var err error
	if cp.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, fmt.Errorf("parsing checkpoint timestamp: %w", err)
	}
	if cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing checkpoint updated_at: %w", err)
	}
	return &cp, nil
}

// Save stores or updates the checkpoint.
func (s *checkpointStore) Save(ctx context.Context, sourceID string, ts time.Time) error {
	return s.upsert(ctx, sourceID, ts)
}

// Reset rewinds the checkpoint to ts. Only the operator override path
// calls this.
func (s *checkpointStore) Reset(ctx context.Context, sourceID string, ts time.Time) error {
	return s.upsert(ctx, sourceID, ts)
}

func (s *checkpointStore) upsert(ctx context.Context, sourceID string, ts time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (source_id, ts, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			ts = excluded.ts,
			updated_at = excluded.updated_at
	`, sourceID, ts.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}
