// Package jobstest provides test doubles for the jobs package.
package jobstest

import (
	"context"
	"sync"
	"time"

	"github.com/jskherman/howis/internal/jobs"
)

// MockJob is a configurable test double for jobs.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

var _ jobs.Job = (*MockJob)(nil)

// Name implements jobs.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements jobs.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements jobs.Job and counts the call.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns how many times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Idle is one scripted IdleDuration answer.
type Idle struct {
	D    time.Duration
	None bool
}

// MockScheduler replays a script of IdleDuration answers. Once the script
// is exhausted it reports that nothing is scheduled.
type MockScheduler struct {
	Script      []Idle
	PendingFunc func(ctx context.Context) error

	mu      sync.Mutex
	idle    int
	pending int
}

var _ jobs.Scheduler = (*MockScheduler)(nil)

// IdleDuration implements jobs.Scheduler.
func (m *MockScheduler) IdleDuration() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.idle
	m.idle++
	if i >= len(m.Script) || m.Script[i].None {
		return 0, false
	}
	return m.Script[i].D, true
}

// RunPending implements jobs.Scheduler.
func (m *MockScheduler) RunPending(ctx context.Context) error {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	if m.PendingFunc != nil {
		return m.PendingFunc(ctx)
	}
	return nil
}

// IdleCalls returns how many times IdleDuration was called.
func (m *MockScheduler) IdleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idle
}

// PendingCalls returns how many times RunPending was called.
func (m *MockScheduler) PendingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// MockPruner is a test double for jobs.HistoryPruner.
type MockPruner struct {
	PruneFunc func(cutoff time.Time) (int, error)

	mu      sync.Mutex
	cutoffs []time.Time
}

// PruneRuns implements jobs.HistoryPruner.
func (m *MockPruner) PruneRuns(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, cutoff)
	m.mu.Unlock()

	if m.PruneFunc != nil {
		return m.PruneFunc(cutoff)
	}
	return 0, nil
}

// Cutoffs returns the cutoffs PruneRuns was called with.
func (m *MockPruner) Cutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}
