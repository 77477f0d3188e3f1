package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/metrics"
	"github.com/jskherman/howis/internal/redact"
	"github.com/jskherman/howis/internal/store"
)

// Service names this module publishes or looks up.
const (
	ServiceScheduler = "jobs.scheduler"
	ServiceNotifier  = "jobs.notifier"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Notifier receives finished runs for live display.
type Notifier interface {
	NotifyJob(run Run)
}

// Module is the jobs.runner module: it builds the configured jobs into a
// CronScheduler and drives it with a Runner in the background.
type Module struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger

	scheduler *CronScheduler
	store     *store.Store
	filter    *redact.Filter

	cancel context.CancelFunc
	done   chan struct{}
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "jobs.runner",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("jobs: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger

	if err := m.config.validate(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}

	m.store, _ = core.ServiceAs[*store.Store](ctx, "store")
	m.filter, _ = core.ServiceAs[*redact.Filter](ctx, "logging.filter")

	opts := []SchedulerOption{WithObserver(ObserverFunc(m.observe))}
	m.scheduler = NewCronScheduler(m.logger, opts...)

	startedAt := time.Now()
	for _, jc := range m.config.Jobs {
		job, err := m.buildJob(jc, startedAt)
		if err != nil {
			return err
		}
		if jc.Once {
			job = Once(job)
		}
		if err := m.scheduler.Add(job); err != nil {
			return err
		}
	}

	ctx.RegisterService(ServiceScheduler, m.scheduler)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	for _, jc := range m.config.Jobs {
		if jc.Kind == KindPruneHistory && m.store == nil {
			return fmt.Errorf("jobs: job %q needs storage, none is configured", jc.Name)
		}
	}
	return nil
}

func (m *Module) buildJob(jc JobConfig, startedAt time.Time) (Job, error) {
	logger := m.logger.With("job", jc.Name)
	switch jc.Kind {
	case KindHeartbeat:
		return &HeartbeatJob{JobName: jc.Name, ScheduleExpr: jc.Schedule, Logger: logger, StartedAt: startedAt}, nil
	case KindHTTPFetch:
		return &HTTPFetchJob{
			JobName:      jc.Name,
			ScheduleExpr: jc.Schedule,
			URL:          jc.URL,
			Timeout:      jc.Timeout,
			Client:       &http.Client{},
			Logger:       logger,
		}, nil
	case KindPruneHistory:
		var pruner HistoryPruner
		if m.store != nil {
			pruner = m.store
		}
		return &PruneHistoryJob{
			JobName:      jc.Name,
			ScheduleExpr: jc.Schedule,
			Store:        pruner,
			Retention:    jc.Retention,
			Logger:       logger,
		}, nil
	}
	return nil, fmt.Errorf("jobs: unknown kind %q", jc.Kind)
}

// observe records a finished run in history, metrics and the live feed.
// Error text is redacted before it leaves the process log.
func (m *Module) observe(ctx context.Context, run Run) {
	errText := ""
	if run.Err != nil {
		errText = run.Err.Error()
		if m.filter != nil {
			errText = m.filter.Redact(errText)
		}
	}

	if met, ok := core.ServiceAs[*metrics.Metrics](m.appCtx, "metrics"); ok {
		met.ObserveJob(run.Job, run.Status(), run.Duration)
	}

	if m.store != nil {
		err := m.store.RecordRun(ctx, store.Run{
			Job:       run.Job,
			StartedAt: run.Started,
			Duration:  run.Duration,
			Status:    run.Status(),
			Error:     errText,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("jobs: recording run failed", "job", run.Job, "error", err)
		}
	}

	if n, ok := core.ServiceAs[Notifier](m.appCtx, ServiceNotifier); ok {
		if run.Err != nil {
			run.Err = errors.New(errText)
		}
		n.NotifyJob(run)
	}
}

// Scheduler returns the module's scheduler.
func (m *Module) Scheduler() *CronScheduler { return m.scheduler }

// Start implements core.Starter.
func (m *Module) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	runner := NewRunner(m.scheduler, m.logger)
	go func() {
		defer close(m.done)
		err := runner.Run(ctx)
		switch {
		case err == nil:
			m.logger.Info("jobs: no jobs remain, runner finished")
		case errors.Is(err, context.Canceled):
		default:
			m.logger.Error("jobs: runner stopped", "error", err)
		}
	}()

	m.logger.Info("jobs: runner started", "jobs", m.scheduler.Len())
	return nil
}

// Stop implements core.Stopper. It cancels the wait and lets the job that
// is currently running finish, bounded by ctx.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs: waiting for runner: %w", ctx.Err())
	}
}
