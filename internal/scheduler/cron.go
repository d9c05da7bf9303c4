package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// ErrAlreadyRunning is returned when a run is requested while one is in progress
var ErrAlreadyRunning = errors.New("episode check already running")

// ErrStopped is returned when a run is requested after Stop
var ErrStopped = errors.New("scheduler stopped")

// EpisodeChecker checks every show for new episodes
type EpisodeChecker interface {
	CheckAllShows(ctx context.Context) error
}

// SessionReaper closes idle playback sessions
type SessionReaper interface {
	Reap(idle time.Duration) int
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron        *cron.Cron
	checker     EpisodeChecker
	reaper      SessionReaper
	checkSpec   string
	reapSpec    string
	sessionIdle time.Duration
	logger      *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // Guards stopped and additions to wg
	stopped bool
	wg      conc.WaitGroup // Checks started outside cron

	checking atomic.Bool
}

// NewScheduler creates a new scheduler. checkSpec is the cron spec of the
// new-episode check; idle sessions are reaped every five minutes.
func NewScheduler(checker EpisodeChecker, reaper SessionReaper, checkSpec string, sessionIdle time.Duration, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(),
		checker:     checker,
		reaper:      reaper,
		checkSpec:   checkSpec,
		reapSpec:    "*/5 * * * *",
		sessionIdle: sessionIdle,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the scheduler and runs a first episode check in the background
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.checkSpec, func() {
		s.runEpisodeCheck()
	})
	if err != nil {
		return fmt.Errorf("failed to add episode check job: %w", err)
	}

	if s.reaper != nil && s.sessionIdle > 0 {
		_, err = s.cron.AddFunc(s.reapSpec, func() {
			s.runReap()
		})
		if err != nil {
			return fmt.Errorf("failed to add session reaper job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.WithField("episode_check", s.checkSpec).Info("Scheduler started")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.wg.Go(s.runEpisodeCheck)

	return nil
}

// Stop stops the scheduler, cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Running reports whether an episode check is in progress
func (s *Scheduler) Running() bool {
	return s.checking.Load()
}

// RunEpisodeCheck runs the new-episode check now. Overlapping runs are
// refused with ErrAlreadyRunning.
func (s *Scheduler) RunEpisodeCheck(ctx context.Context) error {
	if !s.checking.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.checking.Store(false)

	return s.checkAllShows(ctx)
}

// Trigger starts the new-episode check in the background. The run belongs to
// the scheduler: Stop cancels it and waits for it to return.
func (s *Scheduler) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if !s.checking.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.wg.Go(func() {
		defer s.checking.Store(false)
		if err := s.checkAllShows(s.ctx); err != nil {
			s.logger.WithError(err).Error("Triggered episode check failed")
		}
	})
	return nil
}

func (s *Scheduler) checkAllShows(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("Running episode check")

	if err := s.checker.CheckAllShows(ctx); err != nil {
		return fmt.Errorf("episode check failed: %w", err)
	}

	s.logger.WithField("duration", time.Since(start)).Info("Episode check completed successfully")
	return nil
}

// runEpisodeCheck executes the episode check job
func (s *Scheduler) runEpisodeCheck() {
	if err := s.RunEpisodeCheck(s.ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Warn("Episode check still running, skipping")
			return
		}
		s.logger.WithError(err).Error("Episode check job failed")
	}
}

// runReap executes the idle session job
func (s *Scheduler) runReap() {
	s.logger.Debug("Running idle session check")

	if n := s.reaper.Reap(s.sessionIdle); n > 0 {
		s.logger.WithField("closed", n).Info("Idle session check completed")
	}
}
