// Package app assembles and runs the howis process: configuration,
// logging, metrics, tracing, storage and the configured modules.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jskherman/howis/internal/config"
	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/logging"
	"github.com/jskherman/howis/internal/metrics"
	"github.com/jskherman/howis/internal/redact"
	"github.com/jskherman/howis/internal/reload"
	"github.com/jskherman/howis/internal/store"
	"github.com/jskherman/howis/internal/tracing"

	// Compiled-in modules.
	_ "github.com/jskherman/howis/internal/dashboard"
	_ "github.com/jskherman/howis/internal/jobs"
)

// Service names registered before modules load.
const (
	ServiceStore   = "store"
	ServiceMetrics = "metrics"
	ServiceFilter  = "logging.filter"
	ServiceVersion = "app.version"
	ServiceConfig  = "config.path"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// Stdout replaces os.Stdout for the console log sink.
	Stdout io.Writer
}

// Instance is a fully loaded, not yet started, application.
type Instance struct {
	Config  *config.Config
	Logger  *slog.Logger
	App     *core.App
	Metrics *metrics.Metrics
	Store   *store.Store
	Filter  *redact.Filter

	closers []func(context.Context) error
}

// Build loads and validates the configuration, sets up the shared
// infrastructure and loads every configured module. On error everything
// built so far is released.
func Build(ctx context.Context, params RunParams) (inst *Instance, err error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		if cfgPath, err = ResolveConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	inst = &Instance{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = inst.Close(context.Background())
			inst = nil
		}
	}()

	logs, err := logging.Setup(cfg.Logging, logging.Options{
		Stdout:         params.Stdout,
		RedactObserver: inst.Metrics.AddRedactions,
	})
	if err != nil {
		return inst, err
	}
	inst.Logger = logs.Logger
	inst.Filter = logs.Filter
	inst.closers = append(inst.closers, func(context.Context) error { return logs.Close() })

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, params.Version, cfg.Environment)
	if err != nil {
		return inst, err
	}
	inst.closers = append(inst.closers, shutdownTracing)

	if !cfg.Storage.Disabled {
		st, err := store.Open(ctx, cfg.Storage.Config)
		if err != nil {
			return inst, err
		}
		inst.Store = st
		inst.closers = append(inst.closers, func(context.Context) error { return st.Close() })
	}

	appCtx := core.NewAppContext(inst.Logger, cfg.DataDir, cfg.Environment)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	appCtx.RegisterService(ServiceMetrics, inst.Metrics)
	appCtx.RegisterService(ServiceFilter, logs.Filter)
	appCtx.RegisterService(ServiceVersion, params.Version)
	appCtx.RegisterService(ServiceConfig, cfgPath)
	if inst.Store != nil {
		appCtx.RegisterService(ServiceStore, inst.Store)
	}

	inst.App = core.NewApp(appCtx)
	if err := inst.App.LoadModules(cfg.ModuleIDs()); err != nil {
		return inst, err
	}
	return inst, nil
}

// Start logs the startup sequence and starts every module.
func (i *Instance) Start() error {
	if env := i.Config.RequestedEnvironment; env != "" {
		i.Logger.Warn("unrecognised environment, running as development", "environment", env)
	}
	if i.Config.IsProduction() {
		i.Logger.Info("Running in production mode.")
	} else {
		i.Logger.Info("Running in development mode.")
	}
	if i.Config.Native {
		i.Logger.Info("native mode requested; serving in the browser")
	}

	i.Logger.Info("Starting the application...")
	if err := i.App.Start(); err != nil {
		return err
	}
	i.Logger.Info("Application started.", "modules", i.App.ModuleIDs())
	return nil
}

// Close releases the shared infrastructure in reverse order of creation.
// Modules must already be stopped.
func (i *Instance) Close(ctx context.Context) error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		errs = append(errs, i.closers[j](ctx))
	}
	i.closers = nil
	return errors.Join(errs...)
}

// RunContext builds and starts the application and blocks until ctx is
// done, then stops modules and releases everything.
func RunContext(ctx context.Context, params RunParams) error {
	inst, err := Build(ctx, params)
	if err != nil {
		return err
	}
	defer func() { _ = inst.Close(context.Background()) }()

	if err := inst.Start(); err != nil {
		return err
	}

	reloadCtx, stopReload := context.WithCancel(ctx)
	defer stopReload()
	inst.watchPatterns(reloadCtx)

	<-ctx.Done()
	inst.Logger.Info("shutting down", "cause", context.Cause(ctx))
	inst.App.Stop()
	inst.Logger.Info("shutdown complete")
	return nil
}

// watchPatterns reloads the redaction patterns on SIGHUP and, when
// configured, whenever the patterns file changes.
func (i *Instance) watchPatterns(ctx context.Context) {
	cfg := i.Config.Logging
	r := reload.NewPatternsReloader(cfg.PatternsFile, i.Filter, i.Logger)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	context.AfterFunc(ctx, func() { signal.Stop(hup) })

	var events <-chan reload.Event
	if cfg.WatchPatterns {
		w := reload.NewWatcher(cfg.PatternsFile, cfg.WatchInterval)
		go w.Run(ctx)
		events = w.Events()
		i.Logger.Debug("watching redaction patterns", "path", cfg.PatternsFile)
	}
	go r.Run(ctx, events, hup)
}

// Run is RunContext bound to SIGINT and SIGTERM.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/howis/howis.yaml → ~/.config/howis/howis.yaml → ./howis.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "howis", "howis.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "howis", "howis.yaml"))
	}

	candidates = append(candidates, "howis.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
