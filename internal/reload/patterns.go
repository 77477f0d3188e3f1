package reload

import (
	"context"
	"log/slog"
	"os"

	"github.com/jskherman/howis/internal/redact"
)

// PatternsReloader re-reads a patterns file into a live redact.Filter.
type PatternsReloader struct {
	path   string
	filter *redact.Filter
	logger *slog.Logger
}

// NewPatternsReloader binds the patterns file at path to filter.
func NewPatternsReloader(path string, filter *redact.Filter, logger *slog.Logger) *PatternsReloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PatternsReloader{path: path, filter: filter, logger: logger}
}

// Reload compiles the file and installs it. On any error the filter keeps
// its current set.
func (r *PatternsReloader) Reload() error {
	patterns, err := redact.LoadPatterns(r.path)
	if err != nil {
		return err
	}
	prev := r.filter.Swap(patterns)
	r.logger.Info("redaction patterns reloaded",
		"path", r.path, "patterns", len(patterns), "previous", len(prev))
	return nil
}

// Run reloads on every watcher event and every value received on signals
// until ctx is cancelled. Either source may be nil.
func (r *PatternsReloader) Run(ctx context.Context, events <-chan Event, signals <-chan os.Signal) {
	for {
		var source string
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			source = "file"
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			source = sig.String()
		}

		if err := r.Reload(); err != nil {
			r.logger.Error("reloading redaction patterns failed, keeping previous set",
				"source", source, "error", err)
		}
	}
}
