package driven

import (
	"context"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// PulseIterator lazily pages through source records. Pages are fetched
// on demand so a long backfill window never materialises the whole
// feed in memory.
type PulseIterator interface {
	// Next returns the next page of pulses. It returns
	// domain.ErrIteratorDone once the feed is exhausted or the
	// configured page maximum is reached.
	Next(ctx context.Context) ([]domain.Pulse, error)
}

// FeedClient wraps outbound calls to the remote threat-intelligence
// source.
type FeedClient interface {
	// Pulses returns an iterator over pulses modified since the given
	// timestamp.
	Pulses(since time.Time) PulseIterator

	// Validate checks credentials with a lightweight API call.
	// Returns domain.ErrAuth for credential failures.
	Validate(ctx context.Context) error
}
