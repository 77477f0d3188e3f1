package dashboard

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Storage string `json:"storage,omitempty"`
}

// pinger is implemented by the store.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 503 when the database does not answer.
func (d *Dashboard) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		code := http.StatusOK

		if p, ok := d.prefs.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			resp.Storage = "ok"
			if err := p.Ping(ctx); err != nil {
				d.logger.Warn("health check: storage unavailable", "error", err)
				resp.Status = "degraded"
				resp.Storage = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, resp)
	}
}
