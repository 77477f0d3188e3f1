package dashboard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const (
	browserCookie    = "howis_browser"
	browserIDBytes   = 16
	browserCookieAge = 365 * 24 * time.Hour
	maxPrefsBody     = 1 << 10
)

// Prefs stores the per-browser dark-mode choice. A nil value means auto.
type Prefs interface {
	DarkMode(ctx context.Context, browserID string) (*bool, error)
	SetDarkMode(ctx context.Context, browserID string, value *bool) error
}

// memoryPrefs is used when no database is configured.
type memoryPrefs struct {
	mu sync.RWMutex
	m  map[string]bool
}

func newMemoryPrefs() *memoryPrefs {
	return &memoryPrefs{m: make(map[string]bool)}
}

func (p *memoryPrefs) DarkMode(_ context.Context, id string) (*bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.m[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (p *memoryPrefs) SetDarkMode(_ context.Context, id string, value *bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if value == nil {
		delete(p.m, id)
	} else {
		p.m[id] = *value
	}
	return nil
}

// browserID returns the browser's identifier, issuing a new cookie when
// the request has none or a malformed one.
func browserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(browserCookie); err == nil && validBrowserID(c.Value) {
		return c.Value
	}

	b := make([]byte, browserIDBytes)
	_, _ = rand.Read(b)
	id := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     browserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(browserCookieAge / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func validBrowserID(s string) bool {
	if len(s) != 2*browserIDBytes {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (d *Dashboard) darkMode(ctx context.Context, id string) *bool {
	v, err := d.prefs.DarkMode(ctx, id)
	if err != nil {
		d.logger.Warn("loading dark mode failed", "error", err)
		return nil
	}
	return v
}

type darkModeRequest struct {
	Value json.RawMessage `json:"value"`
}

type darkModeResponse struct {
	Value *bool `json:"value"`
}

// handleDarkMode returns an http.HandlerFunc for POST /dark_mode with
// {"value": true|false|null}.
func (d *Dashboard) handleDarkMode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req darkModeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPrefsBody)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Value) == 0 {
			writeJSONError(w, http.StatusBadRequest, "value is required")
			return
		}

		var value *bool
		if err := json.Unmarshal(req.Value, &value); err != nil {
			writeJSONError(w, http.StatusBadRequest, "value must be true, false or null")
			return
		}

		id := browserID(w, r)
		if err := d.prefs.SetDarkMode(r.Context(), id, value); err != nil {
			d.logger.Error("saving dark mode failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "could not save preference")
			return
		}

		writeJSON(w, http.StatusOK, darkModeResponse{Value: value})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
