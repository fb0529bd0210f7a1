package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
)

// cycleStore implements driven.CycleStore.
type cycleStore struct {
	store *Store
}

var _ driven.CycleStore = (*cycleStore)(nil)

// RecordResult logs a cycle execution result.
func (s *cycleStore) RecordResult(ctx context.Context, result *domain.CycleResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cycle_results (source_id, started_at, ended_at, pulses, entities, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.SourceID,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.EndedAt.UTC().Format(time.RFC3339Nano),
		result.Pulses,
		result.Entities,
		boolToInt(result.Success),
		nullString(result.Error))

	if err != nil {
		return fmt.Errorf("recording cycle result: %w", err)
	}
	return nil
}

// ListResults returns the most recent results, newest first.
func (s *cycleStore) ListResults(ctx context.Context, limit int) ([]domain.CycleResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, started_at, ended_at, pulses, entities, success, error
		FROM cycle_results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycle results: %w", err)
	}
	defer rows.Close()

	var results []domain.CycleResult
	for rows.Next() {
		var r domain.CycleResult
		var startedAt, endedAt string
		var success int
		var errMsg *string
		if err := rows.Scan(&r.SourceID, &startedAt, &endedAt, &r.Pulses, &r.Entities, &success, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning cycle result: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		r.Success = success != 0
		if errMsg != nil {
			r.Error = *errMsg
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle results: %w", err)
	}
	return results, nil
}

// PruneHistory removes all but the newest keep results.
func (s *cycleStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cycle_results
		WHERE id NOT IN (
			SELECT id FROM cycle_results ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning cycle history: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
