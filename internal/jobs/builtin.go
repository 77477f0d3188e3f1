package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HeartbeatJob logs that the process is alive and for how long.
type HeartbeatJob struct {
	JobName      string
	ScheduleExpr string
	Logger       *slog.Logger
	StartedAt    time.Time
}

var _ Job = (*HeartbeatJob)(nil)

// Name implements Job.
func (j *HeartbeatJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *HeartbeatJob) Schedule() string { return j.ScheduleExpr }

// Run implements Job.
func (j *HeartbeatJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	j.Logger.Info("heartbeat", "job", j.JobName, "uptime", time.Since(j.StartedAt).Truncate(time.Second))
	return nil
}

// HTTPFetchJob polls a dataset URL. The URL often carries an API key, so
// it is only ever logged through the redacting logger.
type HTTPFetchJob struct {
	JobName      string
	ScheduleExpr string
	URL          string
	Timeout      time.Duration
	Client       *http.Client
	Logger       *slog.Logger
}

var _ Job = (*HTTPFetchJob)(nil)

// Name implements Job.
func (j *HTTPFetchJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *HTTPFetchJob) Schedule() string { return j.ScheduleExpr }

// Run issues a GET and fails on transport errors or non-2xx responses.
func (j *HTTPFetchJob) Run(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, nil)
	if err != nil {
		return fmt.Errorf("http_fetch: build request: %w", err)
	}

	client := j.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http_fetch: %w", err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("http_fetch: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http_fetch: %s returned %s", j.URL, resp.Status)
	}

	j.Logger.Info("dataset fetched", "job", j.JobName, "url", j.URL, "status", resp.StatusCode, "bytes", n)
	return nil
}

// HistoryPruner is the part of the store PruneHistoryJob needs.
type HistoryPruner interface {
	PruneRuns(ctx context.Context, cutoff time.Time) (int, error)
}

// PruneHistoryJob drops run records older than Retention.
type PruneHistoryJob struct {
	JobName      string
	ScheduleExpr string
	Store        HistoryPruner
	Retention    time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

var _ Job = (*PruneHistoryJob)(nil)

// Name implements Job.
func (j *PruneHistoryJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *PruneHistoryJob) Schedule() string { return j.ScheduleExpr }

// Run implements Job.
func (j *PruneHistoryJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	pruned, err := j.Store.PruneRuns(ctx, now().Add(-j.Retention))
	if err != nil {
		return fmt.Errorf("prune_history: %w", err)
	}
	if pruned > 0 {
		j.Logger.Info("pruned job history", "job", j.JobName, "count", pruned)
	}
	return nil
}
