package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/metrics"
	"github.com/jskherman/howis/internal/store"
)

type testEnv struct {
	d       *Dashboard
	ctx     *core.AppContext
	store   *store.Store
	metrics *metrics.Metrics
	handler http.Handler
}

// newTestEnv provisions a dashboard against a fresh app context. With
// withStore the context carries a SQLite store in a temp dir.
func newTestEnv(t *testing.T, cfg Config, withStore bool) *testEnv {
	t.Helper()

	ctx := core.NewAppContext(slog.Default(), t.TempDir(), "development")
	env := &testEnv{ctx: ctx, metrics: metrics.New()}
	ctx.RegisterService("metrics", env.metrics)
	ctx.RegisterService("app.version", "1.2.3")

	if withStore {
		sc := store.Config{}
		sc.Defaults(ctx.DataDir)
		st, err := store.Open(context.Background(), sc)
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		ctx.RegisterService("store", st)
		env.store = st
	}

	d := &Dashboard{config: cfg}
	if err := d.Provision(ctx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	env.d = d
	env.handler = d.buildRouter()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func browserCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == browserCookie {
			return c
		}
	}
	t.Fatal("response did not set the browser cookie")
	return nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
