// Package scheduler runs a single recurring task on a fixed interval, with
// an initial delay, no possibility of overlapping runs, and unconditional
// re-arming after each run regardless of outcome.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunFunc is the task the Scheduler invokes on every tick.
type RunFunc func(ctx context.Context) error

// Scheduler triggers RunFunc once after startDelay, then again every
// interval, forever, until its context is cancelled. Runs never overlap:
// the next sleep only begins once the current run has returned.
type Scheduler struct {
	startDelay time.Duration
	interval   time.Duration
	run        RunFunc
	logger     *zap.Logger
	stopped    chan struct{}
}

// New constructs a Scheduler. The task itself is never invoked until Start is called.
func New(startDelay, interval time.Duration, run RunFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		startDelay: startDelay,
		interval:   interval,
		run:        run,
		logger:     logger,
		stopped:    make(chan struct{}),
	}
}

// Start launches the scheduling loop in a background goroutine. Cancel ctx
// to stop it; call Stop afterward to block until the loop has fully exited.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop blocks until the scheduling loop has exited. The caller is
// responsible for cancelling the context passed to Start first.
func (s *Scheduler) Stop() {
	<-s.stopped
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stopped)

	s.logger.Info("scheduler started",
		zap.Duration("startDelay", s.startDelay),
		zap.Duration("interval", s.interval))

	if !sleep(ctx, s.startDelay) {
		s.logger.Info("scheduler stopped before first run")
		return
	}

	for {
		s.runOnce(ctx)

		if ctx.Err() != nil {
			break
		}
		if !sleep(ctx, s.interval) {
			break
		}
	}

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("scheduled run completed", zap.Duration("elapsed", time.Since(start)))
}

// sleep waits for d, or returns false early if ctx is cancelled first.
// A non-positive d returns immediately, true, unless ctx is already done.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
