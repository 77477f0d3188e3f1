// Package jobs runs scheduled background work. A Runner sleeps until the
// Scheduler reports the next job is due, runs every due job and repeats
// until nothing is left to schedule.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler is the queue the Runner drives. It is opaque apart from these
// two operations.
type Scheduler interface {
	// IdleDuration returns the time until the next job is due. ok is false
	// when no job is scheduled at all. The duration may be zero or negative
	// when a job is already overdue.
	IdleDuration() (d time.Duration, ok bool)

	// RunPending runs every job whose due time has passed.
	RunPending(ctx context.Context) error
}

// SleepFunc suspends the calling goroutine for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner is the deferred execution loop.
type Runner struct {
	sched  Scheduler
	logger *slog.Logger
	sleep  SleepFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSleep replaces the timer-based sleep (tests).
func WithSleep(fn SleepFunc) RunnerOption {
	return func(r *Runner) { r.sleep = fn }
}

// NewRunner creates a Runner over sched.
func NewRunner(sched Scheduler, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{sched: sched, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loops until the scheduler is empty (returns nil), ctx is cancelled
// (returns ctx.Err()) or RunPending fails (returns that error unchanged).
// The delay is asked for again after every pass, so jobs that became due
// while others ran are picked up on the next iteration.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d, ok := r.sched.IdleDuration()
		if !ok {
			r.logger.Debug("jobs: nothing scheduled, runner exiting")
			return nil
		}

		// A negative delay means the clock moved past the due time; run now.
		if d > 0 {
			r.logger.Debug("jobs: sleeping until next job", "idle", d)
			if err := r.sleep(ctx, d); err != nil {
				return err
			}
		}

		if err := r.sched.RunPending(ctx); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
