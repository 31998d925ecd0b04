package syncer

import (
	"budget-server/src/logger"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSchedulerRunning = errors.New("scheduler already running")

// CycleRunner is what the scheduler drives; *Service implements it.
type CycleRunner interface {
	SyncAllData(ctx context.Context, userID *int64) CycleResult
	LastSync() (time.Time, bool)
}

// Status is the scheduler snapshot served to clients.
type Status struct {
	LastSync  *time.Time `json:"last_sync"`
	IsRunning bool       `json:"is_running"`
}

// Scheduler wakes every checkInterval and runs a full cycle when the last
// one is older than staleAfter, or when there has been none.
type Scheduler struct {
	runner        CycleRunner
	checkInterval time.Duration
	staleAfter    time.Duration
	now           func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewScheduler(runner CycleRunner, checkInterval, staleAfter time.Duration) *Scheduler {
	return &Scheduler{
		runner:        runner,
		checkInterval: checkInterval,
		staleAfter:    staleAfter,
		now:           time.Now,
	}
}

// Start launches the background loop. Cancelling ctx also ends it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.cancel = cancel

	go s.loop(loopCtx, s.stop, s.done)
	log := logger.FromContext(ctx)
	log.Info().Dur("check_interval", s.checkInterval).Dur("stale_after", s.staleAfter).Msg("Sync scheduler started")
	return nil
}

// Stop asks the loop to exit. A cycle already in flight runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

// Shutdown stops the loop and waits for it. When ctx expires first the
// in-flight cycle is cancelled and ctx's error returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	done, cancel := s.done, s.cancel
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	st := Status{IsRunning: running}
	if t, ok := s.runner.LastSync(); ok {
		st.LastSync = &t
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	log := logger.FromContext(ctx)

	for {
		select {
		case <-stop:
			log.Info().Msg("Sync scheduler stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Sync scheduler cancelled")
			return
		default:
		}

		s.tick(ctx)

		timer := time.NewTimer(s.checkInterval)
		select {
		case <-stop:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered panic in sync scheduler")
		}
	}()

	if !s.due() {
		return
	}
	log.Info().Msg("Running scheduled sync")
	s.runner.SyncAllData(ctx, nil)
}

func (s *Scheduler) due() bool {
	last, ok := s.runner.LastSync()
	return !ok || s.now().Sub(last) > s.staleAfter
}
