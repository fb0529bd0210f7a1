package domain

import "time"

// Checkpoint is the durable cursor marking ingestion progress for a
// source. It is read once at loop start and written only after a
// publish batch fully succeeds.
type Checkpoint struct {
	// SourceID scopes the checkpoint to one connector identity.
	SourceID string

	// Timestamp is the modification time of the latest fully
	// processed source record.
	Timestamp time.Time

	// UpdatedAt is when the checkpoint row was last written.
	UpdatedAt time.Time
}

// Advance moves the checkpoint forward to ts. It returns false and
// leaves the checkpoint untouched when ts is not strictly later:
// checkpoints advance monotonically and are never rewound except by
// explicit operator override.
func (c *Checkpoint) Advance(ts time.Time) bool {
	if !ts.After(c.Timestamp) {
		return false
	}
	c.Timestamp = ts
	return true
}
