package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RunFunc performs one pipeline pass.
type RunFunc func(ctx context.Context) error

// SkipObserver is told when a tick is skipped because a run is still going.
type SkipObserver interface {
	ObserveSkippedRun()
}

// Scheduler triggers a run every interval. A tick that arrives while a run is
// still in progress is skipped, so runs never overlap.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	timeout  time.Duration
	skips    SkipObserver
	logger   zerolog.Logger

	running   atomic.Bool
	triggerCh chan struct{}
	wg        sync.WaitGroup
}

// New creates a Scheduler. Each run gets its own deadline of timeout.
func New(run RunFunc, interval, timeout time.Duration, skips SkipObserver, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		run:       run,
		interval:  interval,
		timeout:   timeout,
		skips:     skips,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start runs once immediately and then on every tick until ctx is canceled.
// It blocks and waits for an in-flight run before returning.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		case <-s.triggerCh:
			s.tick(ctx)
		}
	}
}

// Trigger asks for a run as soon as possible. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("previous run still in progress, skipping tick")
		if s.skips != nil {
			s.skips.ObserveSkippedRun()
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Msg("recovered from panic in scheduled run")
			}
		}()

		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.run(runCtx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled run failed")
		}
	}()
}
