// Package config loads the YAML configuration: .env files first, then
// ${VAR} expansion, then decoding, defaults and structural validation.
package config

import (
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jskherman/howis/internal/logging"
	"github.com/jskherman/howis/internal/store"
	"github.com/jskherman/howis/internal/tracing"
)

// Environments.
const (
	Production  = "production"
	Development = "development"
)

// DefaultDataDir holds the database when no data_dir is configured.
const DefaultDataDir = "data"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Environment is "production" or "development". Empty falls back to
	// $ENVI, then $ENVIRONMENT, then development. Any other value runs as
	// development.
	Environment string `yaml:"environment"`

	// RequestedEnvironment keeps the value that was mapped to development,
	// empty when Environment was taken as is.
	RequestedEnvironment string `yaml:"-"`

	// Native only changes the launch mode that gets logged; also set by
	// NATIVE=true.
	Native bool `yaml:"native"`

	DataDir string         `yaml:"data_dir"`
	Logging logging.Config `yaml:"logging"`
	Storage StorageConfig  `yaml:"storage"`
	Tracing tracing.Config `yaml:"tracing"`

	// Modules maps module IDs to their raw YAML configuration. A module
	// runs only if it has an entry here.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// StorageConfig wraps the SQLite settings with an off switch.
type StorageConfig struct {
	Disabled     bool `yaml:"disabled"`
	store.Config `yaml:",inline"`
}

// ApplyDefaults fills zero values, reading the environment through getenv
// (os.Getenv when nil).
func (c *Config) ApplyDefaults(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if c.Environment == "" {
		c.Environment = getenv("ENVI")
	}
	if c.Environment == "" {
		c.Environment = getenv("ENVIRONMENT")
	}
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	switch c.Environment {
	case Production, Development:
	case "":
		c.Environment = Development
	default:
		c.RequestedEnvironment = c.Environment
		c.Environment = Development
	}

	if !c.Native && strings.EqualFold(strings.TrimSpace(getenv("NATIVE")), "true") {
		c.Native = true
	}

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}

	c.Logging.Environment = c.Environment
	c.Logging.Defaults()
	if !c.Storage.Disabled {
		c.Storage.Defaults(c.DataDir)
	}
}

// IsProduction reports whether Environment is production.
func (c *Config) IsProduction() bool { return c.Environment == Production }

// ModuleIDs returns the configured module IDs in sorted order so modules
// always load, start and stop in the same sequence.
func (c *Config) ModuleIDs() []string {
	ids := make([]string, 0, len(c.Modules))
	for id := range c.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
