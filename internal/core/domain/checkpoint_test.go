package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckpointAdvance(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cp := &Checkpoint{SourceID: "alienvault", Timestamp: base}

	// Strictly later advances.
	assert.True(t, cp.Advance(base.Add(time.Second)))
	assert.True(t, cp.Timestamp.Equal(base.Add(time.Second)))

	// Equal or earlier is a no-op.
	assert.False(t, cp.Advance(base.Add(time.Second)))
	assert.False(t, cp.Advance(base))
	assert.True(t, cp.Timestamp.Equal(base.Add(time.Second)))
}
