package driven

import (
	"context"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// Publisher submits canonical entities to the downstream ingestion
// API.
type Publisher interface {
	// Publish upserts a batch. Partial downstream failures are
	// returned as *domain.PartialPublishError carrying the failed
	// subset so the caller can retry only those.
	Publish(ctx context.Context, batch []domain.Entity) error

	// MalwareID resolves a name against the downstream malware
	// catalogue. Returns the downstream entity ID, or
	// domain.ErrNotFound when the name is not a known malware.
	MalwareID(ctx context.Context, name string) (string, error)
}
