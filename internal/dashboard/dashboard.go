// Package dashboard serves the web UI: the home and about pages with their
// shared header, the per-browser dark-mode preference, live job
// notifications over WebSocket and a small JSON API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/jobs"
	"github.com/jskherman/howis/internal/metrics"
	"github.com/jskherman/howis/internal/store"
)

func init() {
	core.RegisterModule(&Dashboard{})
}

var (
	_ core.Configurable = (*Dashboard)(nil)
	_ core.Provisioner  = (*Dashboard)(nil)
	_ core.Validator    = (*Dashboard)(nil)
	_ core.Starter      = (*Dashboard)(nil)
	_ core.Stopper      = (*Dashboard)(nil)
)

// Dashboard is the dashboard.http module.
type Dashboard struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	renderer  *renderer
	hub       *Hub
	prefs     Prefs
	store     *store.Store
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	version   string
	startedAt time.Time
	addr      string
}

// ModuleInfo implements core.Module.
func (d *Dashboard) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "dashboard.http",
		New: func() core.Module { return &Dashboard{} },
	}
}

// Configure implements core.Configurable.
func (d *Dashboard) Configure(node *yaml.Node) error {
	if err := node.Decode(&d.config); err != nil {
		return fmt.Errorf("dashboard: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (d *Dashboard) Provision(ctx *core.AppContext) error {
	d.config.defaults()
	d.appCtx = ctx
	d.logger = ctx.Logger
	d.version, _ = core.ServiceAs[string](ctx, "app.version")
	d.metrics, _ = core.ServiceAs[*metrics.Metrics](ctx, "metrics")

	if st, ok := core.ServiceAs[*store.Store](ctx, "store"); ok {
		d.store = st
		d.prefs = st
	} else {
		d.logger.Warn("no storage configured, dark mode preferences are kept in memory")
		d.prefs = newMemoryPrefs()
	}

	reload := d.config.TemplateDir != "" && !ctx.IsProduction()
	r, err := newRenderer(d.config.TemplateDir, reload)
	if err != nil {
		return err
	}
	d.renderer = r

	d.limiter = rate.NewLimiter(rate.Limit(d.config.RateLimit.PerSecond), d.config.RateLimit.Burst)
	d.hub = NewHub(d.logger)
	ctx.RegisterService(jobs.ServiceNotifier, d.hub)

	return nil
}

// Validate implements core.Validator.
func (d *Dashboard) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", d.config.Bind); err != nil {
		return errors.New("dashboard: invalid bind address: " + d.config.Bind)
	}
	if err := d.config.Theme.validate(); err != nil {
		return err
	}
	if d.appCtx.IsProduction() && !d.config.Auth.IsConfigured() {
		d.logger.Warn("dashboard: /api is not protected, set auth.bearer_token")
	}
	return nil
}

// Start implements core.Starter.
func (d *Dashboard) Start() error {
	d.startedAt = time.Now()

	d.server = &http.Server{
		Addr:         d.config.Bind,
		Handler:      d.buildRouter(),
		ReadTimeout:  d.config.ReadTimeout,
		WriteTimeout: d.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", d.config.Bind)
	if err != nil {
		return errors.New("dashboard: listen failed: " + err.Error())
	}
	d.addr = ln.Addr().String()

	go func() {
		d.logger.Info("dashboard listening", "addr", d.addr)
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("dashboard serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (d *Dashboard) Stop(ctx context.Context) error {
	if d.server == nil {
		return nil
	}

	d.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, d.config.ShutdownTimeout)
	defer cancel()

	d.logger.Info("dashboard shutting down")
	return d.server.Shutdown(shutdownCtx)
}
