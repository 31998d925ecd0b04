package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu       sync.Mutex
	last     *time.Time
	calls    atomic.Int32
	panicFor int32 // calls up to this number panic
	block    chan struct{}
	ran      chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan struct{}, 100)}
}

func (f *fakeRunner) SyncAllData(ctx context.Context, _ *int64) CycleResult {
	n := f.calls.Add(1)
	defer func() { f.ran <- struct{}{} }()
	if n <= f.panicFor {
		panic("cycle exploded")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return CycleResult{}
		}
	}
	now := time.Now()
	f.mu.Lock()
	f.last = &now
	f.mu.Unlock()
	return CycleResult{}
}

func (f *fakeRunner) LastSync() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return time.Time{}, false
	}
	return *f.last, true
}

func waitRan(t *testing.T, f *fakeRunner) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not run")
	}
}

func TestSchedulerRunsWhenNeverSynced(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, time.Hour, 24*time.Hour)

	require.NoError(t, s.Start(context.Background()))
	waitRan(t, runner)

	st := s.Status()
	assert.True(t, st.IsRunning)
	require.NotNil(t, st.LastSync)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, s.Status().IsRunning)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestSchedulerSkipsWhileFresh(t *testing.T) {
	runner := newFakeRunner()
	recent := time.Now().Add(-time.Hour)
	runner.last = &recent
	s := NewScheduler(runner, 5*time.Millisecond, 24*time.Hour)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Zero(t, runner.calls.Load())
}

func TestSchedulerRunsWhenStale(t *testing.T) {
	runner := newFakeRunner()
	old := time.Now().Add(-25 * time.Hour)
	runner.last = &old
	s := NewScheduler(runner, time.Hour, 24*time.Hour)

	require.NoError(t, s.Start(context.Background()))
	waitRan(t, runner)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestSchedulerStartTwice(t *testing.T) {
	s := NewScheduler(newFakeRunner(), time.Hour, 24*time.Hour)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)
	require.NoError(t, s.Shutdown(context.Background()))

	// Stopped schedulers can be started again.
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	runner := newFakeRunner()
	runner.panicFor = 1
	s := NewScheduler(runner, 5*time.Millisecond, 24*time.Hour)

	require.NoError(t, s.Start(context.Background()))
	waitRan(t, runner)
	waitRan(t, runner)
	require.NoError(t, s.Shutdown(context.Background()))

	assert.GreaterOrEqual(t, runner.calls.Load(), int32(2))
	_, ok := runner.LastSync()
	assert.True(t, ok)
}

func TestSchedulerStopWakesSleepingLoop(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, time.Hour, 24*time.Hour)
	require.NoError(t, s.Start(context.Background()))
	waitRan(t, runner)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestShutdownCancelsInFlightCycleAfterGrace(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, time.Hour, 24*time.Hour)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	waitRan(t, runner)
}

func TestShutdownWithoutStart(t *testing.T) {
	s := NewScheduler(newFakeRunner(), time.Hour, 24*time.Hour)
	assert.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, s.Status().IsRunning)
	assert.Nil(t, s.Status().LastSync)
}
