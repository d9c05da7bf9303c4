package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingChecker struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (b *blockingChecker) CheckAllShows(ctx context.Context) error {
	b.calls.Add(1)
	b.started <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type countingReaper struct {
	idle atomic.Int64
}

func (c *countingReaper) Reap(idle time.Duration) int {
	c.idle.Store(int64(idle))
	return 0
}

func TestRunEpisodeCheckSkipsOverlappingRuns(t *testing.T) {
	checker := &blockingChecker{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(checker, nil, "@every 1h", 0, utils.NewDiscardLogger())

	done := make(chan error, 1)
	go func() { done <- s.RunEpisodeCheck(context.Background()) }()
	<-checker.started

	assert.True(t, s.Running())
	assert.ErrorIs(t, s.RunEpisodeCheck(context.Background()), ErrAlreadyRunning)

	close(checker.release)
	require.NoError(t, <-done)
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestStartRunsInitialCheckAndStopCancels(t *testing.T) {
	checker := &blockingChecker{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(checker, &countingReaper{}, "@every 1h", time.Minute, utils.NewDiscardLogger())

	require.NoError(t, s.Start())
	select {
	case <-checker.started:
	case <-time.After(time.Second):
		t.Fatal("initial episode check did not start")
	}

	s.Stop()
	assert.False(t, s.Running())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&blockingChecker{}, nil, "not a cron spec", 0, utils.NewDiscardLogger())
	assert.Error(t, s.Start())
}

func TestRunReap(t *testing.T) {
	reaper := &countingReaper{}
	s := NewScheduler(&blockingChecker{}, reaper, "@every 1h", 30*time.Minute, utils.NewDiscardLogger())

	s.runReap()
	assert.Equal(t, int64(30*time.Minute), reaper.idle.Load())
}

// slowChecker ignores cancellation, like a check in the middle of a store write
type slowChecker struct {
	started  chan struct{}
	finished atomic.Bool
}

func (s *slowChecker) CheckAllShows(ctx context.Context) error {
	s.started <- struct{}{}
	time.Sleep(100 * time.Millisecond)
	s.finished.Store(true)
	return nil
}

func TestStopWaitsForTriggeredCheck(t *testing.T) {
	checker := &slowChecker{started: make(chan struct{}, 1)}
	s := NewScheduler(checker, nil, "@every 1h", 0, utils.NewDiscardLogger())

	require.NoError(t, s.Trigger())
	assert.ErrorIs(t, s.Trigger(), ErrAlreadyRunning)
	<-checker.started

	s.Stop()
	assert.True(t, checker.finished.Load())
	assert.False(t, s.Running())
	assert.ErrorIs(t, s.Trigger(), ErrStopped)
}

func TestStopWaitsForInitialCheck(t *testing.T) {
	checker := &slowChecker{started: make(chan struct{}, 1)}
	s := NewScheduler(checker, nil, "@every 1h", 0, utils.NewDiscardLogger())

	require.NoError(t, s.Start())
	<-checker.started

	s.Stop()
	assert.True(t, checker.finished.Load())
}

func TestTriggerCancelledByStop(t *testing.T) {
	checker := &blockingChecker{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(checker, nil, "@every 1h", 0, utils.NewDiscardLogger())

	require.NoError(t, s.Trigger())
	<-checker.started

	// blockingChecker only returns on release or cancellation
	s.Stop()
	assert.False(t, s.Running())
}
