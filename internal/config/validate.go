package config

import (
	"errors"
	"fmt"

	"github.com/jskherman/howis/internal/core"
)

// Validate checks the structural validity of a Config: version, log level, tracing and storage values, and that every module entry
// names a registered module. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}
	for _, id := range cfg.ModuleIDs() {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if _, err := cfg.Logging.ResolveLevel(); err != nil {
		errs = append(errs, fmt.Errorf("config: logging.level: %w", err))
	}

	if r := cfg.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: tracing.sample_ratio must be within [0, 1], got %v", r))
	}

	if !cfg.Storage.Disabled && cfg.Storage.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: storage.busy_timeout must be non-negative, got %d", cfg.Storage.BusyTimeout))
	}

	return errors.Join(errs...)
}
