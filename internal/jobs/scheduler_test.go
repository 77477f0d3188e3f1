package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func (j *simpleJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(clock *fakeClock, opts ...SchedulerOption) *CronScheduler {
	return NewCronScheduler(slog.Default(), append([]SchedulerOption{WithClock(clock.Now)}, opts...)...)
}

func TestCronScheduler_Add(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		jobs    []*simpleJob
		wantErr bool
	}{
		{name: "valid cron", jobs: []*simpleJob{{name: "a", schedule: "*/5 * * * *"}}},
		{name: "descriptor", jobs: []*simpleJob{{name: "a", schedule: "@hourly"}}},
		{name: "every", jobs: []*simpleJob{{name: "a", schedule: "@every 90s"}}},
		{name: "invalid schedule", jobs: []*simpleJob{{name: "a", schedule: "invalid"}}, wantErr: true},
		{name: "never fires", jobs: []*simpleJob{{name: "a", schedule: "0 0 30 2 *"}}, wantErr: true},
		{name: "seconds field rejected", jobs: []*simpleJob{{name: "a", schedule: "0 * * * * *"}}, wantErr: true},
		{
			name:    "duplicate name",
			jobs:    []*simpleJob{{name: "a", schedule: "@hourly"}, {name: "a", schedule: "@daily"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestScheduler(newFakeClock())
			var err error
			for _, j := range tt.jobs {
				if err = s.Add(j); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCronScheduler_IdleDuration(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)

	if _, ok := s.IdleDuration(); ok {
		t.Fatal("IdleDuration() ok = true on an empty scheduler")
	}

	_ = s.Add(&simpleJob{name: "slow", schedule: "@every 10m"})
	_ = s.Add(&simpleJob{name: "fast", schedule: "@every 1m"})

	d, ok := s.IdleDuration()
	if !ok || d != time.Minute {
		t.Fatalf("IdleDuration() = %v, %v; want 1m, true", d, ok)
	}

	clock.Advance(90 * time.Second)
	d, ok = s.IdleDuration()
	if !ok || d != -30*time.Second {
		t.Fatalf("IdleDuration() = %v, %v; want -30s, true", d, ok)
	}
}

func TestCronScheduler_RunPending_Order(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	_ = s.Add(&simpleJob{name: "later", schedule: "@every 3m", runFunc: record("later")})
	_ = s.Add(&simpleJob{name: "first", schedule: "@every 1m", runFunc: record("first")})
	_ = s.Add(&simpleJob{name: "tie", schedule: "@every 1m", runFunc: record("tie")})
	_ = s.Add(&simpleJob{name: "future", schedule: "@every 1h", runFunc: record("future")})

	clock.Advance(5 * time.Minute)
	if err := s.RunPending(context.Background()); err != nil {
		t.Fatalf("RunPending() error = %v", err)
	}

	want := []string{"first", "tie", "later"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	// Rescheduled from the current time, not from the missed slot.
	d, ok := s.IdleDuration()
	if !ok || d != time.Minute {
		t.Fatalf("IdleDuration() after run = %v, %v; want 1m, true", d, ok)
	}
}

func TestCronScheduler_RunPending_NothingDue(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)
	j := &simpleJob{name: "a", schedule: "@every 1m"}
	_ = s.Add(j)

	clock.Advance(59 * time.Second)
	if err := s.RunPending(context.Background()); err != nil {
		t.Fatalf("RunPending() error = %v", err)
	}
	if j.callCount() != 0 {
		t.Fatalf("job ran %d times before due", j.callCount())
	}
}

func TestCronScheduler_RunPending_FailureKeepsJob(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var runs []Run
	s := newTestScheduler(clock, WithObserver(ObserverFunc(func(_ context.Context, r Run) {
		runs = append(runs, r)
	})))

	boom := errors.New("boom")
	_ = s.Add(&simpleJob{name: "flaky", schedule: "@every 1m", runFunc: func(context.Context) error { return boom }})

	clock.Advance(time.Minute)
	if err := s.RunPending(context.Background()); err != nil {
		t.Fatalf("RunPending() error = %v, want job failures to be absorbed", err)
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if len(runs) != 1 {
		t.Fatalf("observer saw %d runs, want 1", len(runs))
	}
	if !errors.Is(runs[0].Err, boom) || runs[0].Status() != "failed" || runs[0].Unscheduled {
		t.Errorf("run = %+v, want failed and still scheduled", runs[0])
	}
}

func TestCronScheduler_RunPending_CancelJob(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var runs []Run
	s := newTestScheduler(clock, WithObserver(ObserverFunc(func(_ context.Context, r Run) {
		runs = append(runs, r)
	})))

	_ = s.Add(&simpleJob{name: "done", schedule: "@every 1m", runFunc: func(context.Context) error { return ErrCancelJob }})
	_ = s.Add(&simpleJob{name: "keep", schedule: "@every 1m"})

	clock.Advance(time.Minute)
	_ = s.RunPending(context.Background())

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Name != "keep" {
		t.Fatalf("Entries() = %+v, want only keep", entries)
	}
	if runs[0].Job != "done" || !runs[0].Unscheduled || runs[0].Status() != "ok" {
		t.Errorf("run = %+v, want ok and unscheduled", runs[0])
	}
}

func TestCronScheduler_Once(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)

	fail := true
	j := &simpleJob{name: "setup", schedule: "@every 1m", runFunc: func(context.Context) error {
		if fail {
			return errors.New("not yet")
		}
		return nil
	}}
	_ = s.Add(Once(j))

	clock.Advance(time.Minute)
	_ = s.RunPending(context.Background())
	if s.Len() != 1 {
		t.Fatal("failed once-job was unscheduled")
	}

	fail = false
	clock.Advance(time.Minute)
	_ = s.RunPending(context.Background())
	if s.Len() != 0 {
		t.Fatal("successful once-job still scheduled")
	}
	if _, ok := s.IdleDuration(); ok {
		t.Error("IdleDuration() ok = true after the last job left")
	}
	if j.callCount() != 2 {
		t.Errorf("job ran %d times, want 2", j.callCount())
	}
}

func TestCronScheduler_RunPending_Cancelled(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)
	j := &simpleJob{name: "a", schedule: "@every 1m"}
	_ = s.Add(j)
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.RunPending(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunPending() error = %v, want context.Canceled", err)
	}
	if j.callCount() != 0 {
		t.Error("job ran after cancellation")
	}
}

func TestCronScheduler_EntriesAndRemove(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(newFakeClock())
	_ = s.Add(&simpleJob{name: "daily", schedule: "@daily"})
	_ = s.Add(&simpleJob{name: "hourly", schedule: "@hourly"})

	entries := s.Entries()
	if len(entries) != 2 || entries[0].Name != "hourly" || entries[1].Name != "daily" {
		t.Fatalf("Entries() = %+v, want hourly then daily", entries)
	}
	if want := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC); !entries[0].Next.Equal(want) {
		t.Errorf("hourly next = %v, want %v", entries[0].Next, want)
	}

	if !s.remove("daily") {
		t.Fatal("remove(daily) = false")
	}
	if s.remove("daily") {
		t.Fatal("second remove(daily) = true")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestNewCronScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestParseSchedule_NeverFires(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"0 0 30 2 *", "0 0 31 4 *"} {
		if _, err := ParseSchedule(expr); !errors.Is(err, ErrNeverFires) {
			t.Errorf("ParseSchedule(%q) error = %v, want ErrNeverFires", expr, err)
		}
	}
	if _, err := ParseSchedule("0 0 29 2 *"); err != nil {
		t.Errorf("ParseSchedule(leap day) error = %v", err)
	}
}

// lastSchedule activates once at "at" and never again.
type lastSchedule struct{ at time.Time }

func (l lastSchedule) Next(t time.Time) time.Time {
	if t.Before(l.at) {
		return l.at
	}
	return time.Time{}
}

func TestCronScheduler_ExhaustedScheduleIsUnscheduled(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestScheduler(clock)
	job := &simpleJob{name: "final", schedule: "custom"}
	s.entries = append(s.entries, &entry{
		job:      job,
		schedule: lastSchedule{at: clock.Now().Add(time.Minute)},
		next:     clock.Now().Add(time.Minute),
		seq:      1,
	})

	clock.Advance(time.Minute)
	if err := s.RunPending(context.Background()); err != nil {
		t.Fatal(err)
	}
	if job.callCount() != 1 {
		t.Errorf("calls = %d, want 1", job.callCount())
	}
	if _, ok := s.IdleDuration(); ok {
		t.Fatal("IdleDuration() ok = true after the schedule ran out")
	}

	// Nothing left to run: a runner over it returns instead of spinning.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := NewRunner(s, nil).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.callCount() != 1 {
		t.Errorf("calls after Run = %d, want 1", job.callCount())
	}
}
