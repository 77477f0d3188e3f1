package dashboard

import (
	"net/http"
	"time"

	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/jobs"
	"github.com/jskherman/howis/internal/store"
)

// StatusResponse is the JSON response for GET /api/status.
type StatusResponse struct {
	Version     string        `json:"version"`
	Environment string        `json:"environment"`
	Uptime      time.Duration `json:"uptime_seconds"`
	Clients     int           `json:"websocket_clients"`
	Jobs        int           `json:"jobs"`
}

// JobsResponse is the JSON response for GET /api/jobs.
type JobsResponse struct {
	Scheduled []jobs.EntryInfo `json:"scheduled"`
	Recent    []store.Run      `json:"recent"`
}

type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// scheduler is resolved per request; the jobs module may load after us.
func (d *Dashboard) scheduler() *jobs.CronScheduler {
	s, _ := core.ServiceAs[*jobs.CronScheduler](d.appCtx, jobs.ServiceScheduler)
	return s
}

// handleStatus returns an http.HandlerFunc for GET /api/status.
func (d *Dashboard) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version:     d.version,
			Environment: d.appCtx.Environment,
			Uptime:      time.Since(d.startedAt).Truncate(time.Second),
			Clients:     d.hub.Len(),
		}
		if s := d.scheduler(); s != nil {
			resp.Jobs = s.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleJobs returns an http.HandlerFunc for GET /api/jobs: the schedule
// and the most recent runs.
func (d *Dashboard) handleJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := JobsResponse{
			Scheduled: []jobs.EntryInfo{},
			Recent:    []store.Run{},
		}
		if s := d.scheduler(); s != nil {
			resp.Scheduled = s.Entries()
		}
		if d.store != nil {
			runs, err := d.store.RecentRuns(r.Context(), d.config.HistoryLimit)
			if err != nil {
				d.logger.Error("loading job history failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "could not load job history")
				return
			}
			if runs != nil {
				resp.Recent = runs
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleModules lists every compiled-in module.
func (d *Dashboard) handleModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
