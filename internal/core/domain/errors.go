package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates invalid startup configuration. Fatal: the
	// process must not proceed.
	ErrConfig = errors.New("invalid configuration")

	// ErrAuth indicates the feed or ingest API rejected our
	// credentials. Misconfiguration: never retried.
	ErrAuth = errors.New("authentication failed")

	// ErrFeedUnavailable indicates the feed could not be reached
	// within the retry budget. The current cycle is skipped and the
	// checkpoint left unchanged.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrIteratorDone signals a pulse iterator is exhausted.
	ErrIteratorDone = errors.New("iterator done")
)

// PartialPublishError reports a publish batch in which a subset of
// entities failed downstream. The loop retries only the failed subset
// before deciding whether the checkpoint may advance.
type PartialPublishError struct {
	// Failed holds the entities that were not acknowledged.
	Failed []Entity

	// Reasons maps entity ID to the downstream failure message.
	Reasons map[string]string
}

func (e *PartialPublishError) Error() string {
	return fmt.Sprintf("publish partially failed: %d entities unacknowledged", len(e.Failed))
}

// AsPartialPublish unwraps err into a PartialPublishError if it is one.
func AsPartialPublish(err error) (*PartialPublishError, bool) {
	var ppe *PartialPublishError
	if errors.As(err, &ppe) {
		return ppe, true
	}
	return nil, false
}
