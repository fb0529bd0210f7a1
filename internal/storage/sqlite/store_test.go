package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreCreatesSchema(t *testing.T) {
	store := newTestStore(t)
	assert.NotEmpty(t, store.Path())

	// Re-opening the same directory must not re-run migrations.
	second, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer second.Close()
}

func TestCheckpointLoadNotFound(t *testing.T) {
	cs := newTestStore(t).CheckpointStore()

	_, err := cs.Load(context.Background(), "alienvault")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckpointSaveAndLoad(t *testing.T) {
	cs := newTestStore(t).CheckpointStore()
	ctx := context.Background()

	ts := time.Date(2023, 7, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, cs.Save(ctx, "alienvault", ts))

	cp, err := cs.Load(ctx, "alienvault")
	require.NoError(t, err)
	assert.Equal(t, "alienvault", cp.SourceID)
	assert.True(t, cp.Timestamp.Equal(ts))
	assert.False(t, cp.UpdatedAt.IsZero())

	// Save again advances.
	later := ts.Add(time.Hour)
	require.NoError(t, cs.Save(ctx, "alienvault", later))
	cp, err = cs.Load(ctx, "alienvault")
	require.NoError(t, err)
	assert.True(t, cp.Timestamp.Equal(later))
}

func TestCheckpointScopedPerSource(t *testing.T) {
	cs := newTestStore(t).CheckpointStore()
	ctx := context.Background()

	a := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cs.Save(ctx, "source-a", a))
	require.NoError(t, cs.Save(ctx, "source-b", b))

	cpA, err := cs.Load(ctx, "source-a")
	require.NoError(t, err)
	cpB, err := cs.Load(ctx, "source-b")
	require.NoError(t, err)
	assert.True(t, cpA.Timestamp.Equal(a))
	assert.True(t, cpB.Timestamp.Equal(b))
}

func TestCheckpointReset(t *testing.T) {
	cs := newTestStore(t).CheckpointStore()
	ctx := context.Background()

	require.NoError(t, cs.Save(ctx, "alienvault", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Operator override rewinds.
	rewound := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cs.Reset(ctx, "alienvault", rewound))

	cp, err := cs.Load(ctx, "alienvault")
	require.NoError(t, err)
	assert.True(t, cp.Timestamp.Equal(rewound))
}

func TestCycleStoreRecordAndList(t *testing.T) {
	cyc := newTestStore(t).CycleStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cyc.RecordResult(ctx, &domain.CycleResult{
			SourceID:  "alienvault",
			StartedAt: time.Date(2023, 1, 1+i, 0, 0, 0, 0, time.UTC),
			EndedAt:   time.Date(2023, 1, 1+i, 0, 1, 0, 0, time.UTC),
			Pulses:    i,
			Entities:  i * 10,
			Success:   i != 1,
			Error:     map[bool]string{true: "", false: "feed unavailable"}[i != 1],
		})
		require.NoError(t, err)
	}

	results, err := cyc.ListResults(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Newest first.
	assert.Equal(t, 2, results[0].Pulses)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "feed unavailable", results[1].Error)
}

func TestCycleStoreRecordNil(t *testing.T) {
	cyc := newTestStore(t).CycleStore()
	assert.ErrorIs(t, cyc.RecordResult(context.Background(), nil), domain.ErrInvalidInput)
}

func TestCycleStorePruneHistory(t *testing.T) {
	cyc := newTestStore(t).CycleStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, cyc.RecordResult(ctx, &domain.CycleResult{
			SourceID:  "alienvault",
			StartedAt: time.Now().UTC(),
			EndedAt:   time.Now().UTC(),
			Pulses:    i,
			Success:   true,
		}))
	}

	require.NoError(t, cyc.PruneHistory(ctx, 4))

	results, err := cyc.ListResults(ctx, 100)
	require.NoError(t, err)
	require.Len(t, results, 4)
	// The newest results survive.
	assert.Equal(t, 9, results[0].Pulses)
	assert.Equal(t, 6, results[3].Pulses)
}
