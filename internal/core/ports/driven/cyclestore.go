package driven

import (
	"context"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// CycleStore records poll cycle outcomes for diagnostics.
type CycleStore interface {
	// RecordResult logs a cycle execution result.
	RecordResult(ctx context.Context, result *domain.CycleResult) error

	// ListResults returns the most recent results, newest first.
	ListResults(ctx context.Context, limit int) ([]domain.CycleResult, error)

	// PruneHistory removes all but the newest keep results.
	PruneHistory(ctx context.Context, keep int) error
}
