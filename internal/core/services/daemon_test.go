package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// fakeCycleStore records results in memory.
type fakeCycleStore struct {
	mu      sync.Mutex
	results []*domain.CycleResult
	pruned  int
}

func (f *fakeCycleStore) RecordResult(_ context.Context, r *domain.CycleResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeCycleStore) ListResults(_ context.Context, limit int) ([]domain.CycleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CycleResult, 0, limit)
	for i := len(f.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.results[i])
	}
	return out, nil
}

func (f *fakeCycleStore) PruneHistory(_ context.Context, keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned++
	return nil
}

func (f *fakeCycleStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func TestDaemonStopsOnCancelDuringSleep(t *testing.T) {
	feed := &fakeFeed{}
	imp := newTestImporter(ImporterConfig{SourceID: "alienvault", DefaultSince: defaultSince}, feed, &fakePublisher{}, newFakeCheckpoints())
	cycles := &fakeCycleStore{}

	// A long interval: the daemon must still exit promptly on cancel.
	d := NewDaemon(imp, cycles, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Give the first cycle time to complete, then interrupt the sleep.
	require.Eventually(t, func() bool { return cycles.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
}

func TestDaemonSurvivesFailingCycles(t *testing.T) {
	// Every cycle fails at the feed.
	feed := &fakeFeed{errAt: map[int]error{0: fmt.Errorf("%w: 502", domain.ErrFeedUnavailable)}}
	imp := newTestImporter(ImporterConfig{SourceID: "alienvault", DefaultSince: defaultSince}, feed, &fakePublisher{}, newFakeCheckpoints())
	cycles := &fakeCycleStore{}

	d := NewDaemon(imp, cycles, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Several failed cycles get recorded; the loop never terminates on
	// its own.
	require.Eventually(t, func() bool { return cycles.count() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}

	results, err := cycles.ListResults(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
}
