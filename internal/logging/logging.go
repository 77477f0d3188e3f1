// Package logging builds the process logger from an explicit Config: a
// console sink and a daily-rotated JSON file sink, each fed through an
// ordered filter chain that ends with redaction.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jskherman/howis/internal/redact"
)

// Default locations, relative to the working directory.
const (
	DefaultPatternsFile = "regex.txt"
	DefaultFilePath     = "logs/app.log"
	DefaultBackups      = 30
)

// Config is built once at startup and handed to Setup. Nothing in the
// process looks the logger up globally.
type Config struct {
	// Level is one of debug, info, warn, error. Empty picks info in
	// production and debug everywhere else.
	Level string `yaml:"level"`

	// Environment mirrors the top-level environment setting.
	Environment string `yaml:"-"`

	// PatternsFile lists the redaction regexes, one per line.
	PatternsFile string `yaml:"patterns_file"`

	// WatchPatterns polls PatternsFile and reloads it on change. SIGHUP
	// reloads it regardless.
	WatchPatterns bool          `yaml:"watch_patterns"`
	WatchInterval time.Duration `yaml:"watch_interval"`

	Console ConsoleConfig `yaml:"console"`
	File    FileConfig    `yaml:"file"`
}

// ConsoleConfig controls the stdout sink.
type ConsoleConfig struct {
	Disabled bool `yaml:"disabled"`
}

// FileConfig controls the rotating JSON sink.
type FileConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
	Backups  int    `yaml:"backups"`
	// LocalTime rotates at local midnight instead of UTC midnight.
	LocalTime bool `yaml:"local_time"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.PatternsFile == "" {
		c.PatternsFile = DefaultPatternsFile
	}
	if c.File.Path == "" {
		c.File.Path = DefaultFilePath
	}
	if c.File.Backups <= 0 {
		c.File.Backups = DefaultBackups
	}
}

// ResolveLevel returns the configured level, or the environment default.
func (c *Config) ResolveLevel() (slog.Level, error) {
	if c.Level == "" {
		if strings.EqualFold(strings.TrimSpace(c.Environment), "production") {
			return slog.LevelInfo, nil
		}
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("logging: invalid level %q: %w", c.Level, err)
	}
	return lvl, nil
}

// Logging owns the sinks behind a logger.
type Logging struct {
	Logger *slog.Logger
	Filter *redact.Filter

	closers []io.Closer
}

// Close flushes and closes file sinks.
func (l *Logging) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Options carries the pieces Setup cannot derive from Config.
type Options struct {
	// Stdout replaces os.Stdout for the console sink.
	Stdout io.Writer

	// Filters run before redaction, in order, on both sinks.
	Filters []Filter

	// RedactObserver receives substitution counts (metrics).
	RedactObserver func(n int)
}

// Setup loads the redaction patterns and wires the sinks. A missing or
// malformed patterns file is fatal: redaction is never silently disabled.
func Setup(cfg Config, opts Options) (*Logging, error) {
	cfg.Defaults()

	level, err := cfg.ResolveLevel()
	if err != nil {
		return nil, err
	}

	var redactOpts []redact.Option
	if opts.RedactObserver != nil {
		redactOpts = append(redactOpts, redact.WithObserver(opts.RedactObserver))
	}
	filter, err := redact.NewFilter(cfg.PatternsFile, redactOpts...)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	chain := append(append([]Filter(nil), opts.Filters...), filter)
	l := &Logging{Filter: filter}

	var sinks []slog.Handler
	if !cfg.Console.Disabled {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		text := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
		sinks = append(sinks, text)
	}
	if !cfg.File.Disabled {
		w, err := NewDailyWriter(cfg.File.Path, cfg.File.Backups, !cfg.File.LocalTime)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		l.closers = append(l.closers, w)
		js := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
		sinks = append(sinks, js)
	}

	// One filter pass per record, shared by every sink.
	l.Logger = slog.New(NewFilterHandler(NewFanoutHandler(sinks...), chain...))
	return l, nil
}
