package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrCancelJob, returned from Job.Run, removes the job from the schedule.
var ErrCancelJob = errors.New("jobs: cancel job")

// Job is a unit of scheduled work.
type Job interface {
	// Name identifies the job in logs, metrics and run history. Unique.
	Name() string

	// Schedule is a 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 10m".
	Schedule() string

	// Run executes the job. Implementations should honour ctx.
	Run(ctx context.Context) error
}

// Run describes one finished execution.
type Run struct {
	Job      string
	Started  time.Time
	Duration time.Duration
	Err      error

	// Unscheduled is set when the job returned ErrCancelJob.
	Unscheduled bool
}

// Status classifies the run for history and metrics.
func (r Run) Status() string {
	if r.Err != nil {
		return "failed"
	}
	return "ok"
}

// Observer is told about every finished run.
type Observer interface {
	JobFinished(ctx context.Context, run Run)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, run Run)

// JobFinished implements Observer.
func (f ObserverFunc) JobFinished(ctx context.Context, run Run) { f(ctx, run) }

// once wraps a job so it unschedules itself after a successful run.
type once struct{ Job }

// Once returns j wrapped to run until it first succeeds.
func Once(j Job) Job { return once{j} }

func (o once) Run(ctx context.Context) error {
	if err := o.Job.Run(ctx); err != nil {
		return err
	}
	return ErrCancelJob
}
