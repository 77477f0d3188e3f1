package jobs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jskherman/howis/internal/tracing"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ErrNeverFires is returned for a well-formed schedule with no activation
// time, such as "0 0 30 2 *".
var ErrNeverFires = errors.New("jobs: schedule never fires")

// ParseSchedule validates a schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	if sched.Next(time.Now()).IsZero() {
		return nil, ErrNeverFires
	}
	return sched, nil
}

type entry struct {
	job      Job
	schedule cron.Schedule
	next     time.Time
	seq      int
}

// EntryInfo is a read-only view of a scheduled job.
type EntryInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
}

// CronScheduler keeps jobs with their next due time, computed from cron
// expressions. It satisfies Scheduler. Job failures are logged and the
// job stays scheduled; only ErrCancelJob removes it.
type CronScheduler struct {
	mu        sync.Mutex
	entries   []*entry
	seq       int
	now       func() time.Time
	logger    *slog.Logger
	observers []Observer
}

// SchedulerOption configures a CronScheduler.
type SchedulerOption func(*CronScheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *CronScheduler) { s.now = now }
}

// WithObserver adds an observer notified after every run.
func WithObserver(o Observer) SchedulerOption {
	return func(s *CronScheduler) { s.observers = append(s.observers, o) }
}

// NewCronScheduler creates an empty scheduler.
func NewCronScheduler(logger *slog.Logger, opts ...SchedulerOption) *CronScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CronScheduler{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Scheduler = (*CronScheduler)(nil)

// Add schedules j. The first run is the first activation after now.
func (s *CronScheduler) Add(j Job) error {
	sched, err := ParseSchedule(j.Schedule())
	if err != nil {
		return fmt.Errorf("jobs: invalid schedule for job %q: %w", j.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.job.Name() == j.Name() {
			return fmt.Errorf("jobs: duplicate job name %q", j.Name())
		}
	}
	next := sched.Next(s.now())
	if next.IsZero() {
		return fmt.Errorf("jobs: job %q: %w", j.Name(), ErrNeverFires)
	}
	s.seq++
	s.entries = append(s.entries, &entry{
		job:      j,
		schedule: sched,
		next:     next,
		seq:      s.seq,
	})
	return nil
}

// remove unschedules the named job.
func (s *CronScheduler) remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(name)
}

func (s *CronScheduler) removeLocked(name string) bool {
	for i, e := range s.entries {
		if e.job.Name() == name {
			s.entries = slices.Delete(s.entries, i, i+1)
			return true
		}
	}
	return false
}

// Len returns the number of scheduled jobs.
func (s *CronScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries lists scheduled jobs ordered by next run.
func (s *CronScheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryInfo, len(s.entries))
	for i, e := range s.entries {
		out[i] = EntryInfo{Name: e.job.Name(), Schedule: e.job.Schedule(), Next: e.next}
	}
	slices.SortStableFunc(out, func(a, b EntryInfo) int { return a.Next.Compare(b.Next) })
	return out
}

// IdleDuration implements Scheduler.
func (s *CronScheduler) IdleDuration() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return 0, false
	}
	next := s.entries[0].next
	for _, e := range s.entries[1:] {
		if e.next.Before(next) {
			next = e.next
		}
	}
	return next.Sub(s.now()), true
}

// RunPending implements Scheduler. Due jobs run one after another in
// due-time order; each is rescheduled from the time it finished.
func (s *CronScheduler) RunPending(ctx context.Context) error {
	s.mu.Lock()
	now := s.now()
	var due []*entry
	for _, e := range s.entries {
		if !e.next.After(now) {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(due, func(a, b *entry) int {
		if c := a.next.Compare(b.next); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		run := s.runOne(ctx, e.job)

		s.mu.Lock()
		switch {
		case run.Unscheduled:
			s.removeLocked(e.job.Name())
			s.logger.Info("jobs: job unscheduled", "job", e.job.Name())
		default:
			e.next = e.schedule.Next(s.now())
			if e.next.IsZero() {
				s.removeLocked(e.job.Name())
				s.logger.Warn("jobs: schedule has no further activation, job unscheduled",
					"job", e.job.Name(), "schedule", e.job.Schedule())
			}
		}
		s.mu.Unlock()

		for _, o := range s.observers {
			o.JobFinished(ctx, run)
		}
	}
	return nil
}

func (s *CronScheduler) runOne(ctx context.Context, j Job) Run {
	ctx, span := tracing.Tracer().Start(ctx, "job "+j.Name())
	defer span.End()
	span.SetAttributes(attribute.String("job.name", j.Name()))

	s.logger.Debug("jobs: job started", "job", j.Name())
	started := s.now()
	err := j.Run(ctx)
	run := Run{Job: j.Name(), Started: started, Duration: s.now().Sub(started), Err: err}

	switch {
	case err == nil:
		s.logger.Debug("jobs: job completed", "job", j.Name(), "duration", run.Duration)
	case errors.Is(err, ErrCancelJob):
		run.Err = nil
		run.Unscheduled = true
		s.logger.Debug("jobs: job completed, cancelling", "job", j.Name(), "duration", run.Duration)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("jobs: job failed", "job", j.Name(), "error", err)
	}
	return run
}
