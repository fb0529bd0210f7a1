package domain

import "time"

// CycleResult records the outcome of one poll cycle for diagnostics.
// A bounded history of results is kept by the cycle store.
type CycleResult struct {
	// SourceID is the connector identity the cycle ran for.
	SourceID string

	// StartedAt and EndedAt bound the cycle execution.
	StartedAt time.Time
	EndedAt   time.Time

	// Pulses is the number of source records fetched.
	Pulses int

	// Entities is the number of canonical entities published.
	Entities int

	// Success is false when the cycle was skipped on error.
	Success bool

	// Error holds the failure message for skipped cycles.
	Error string
}
