package jobs

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Job kinds accepted in configuration.
const (
	KindHeartbeat    = "heartbeat"
	KindHTTPFetch    = "http_fetch"
	KindPruneHistory = "prune_history"
)

const (
	defaultRetention    = 30 * 24 * time.Hour
	defaultFetchTimeout = 30 * time.Second
)

// Config is the jobs.runner module configuration.
type Config struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig describes one configured job.
type JobConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Schedule string `yaml:"schedule"`

	// Once unschedules the job after its first successful run.
	Once bool `yaml:"once"`

	// http_fetch
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// prune_history
	Retention time.Duration `yaml:"retention"`
}

func (c *Config) defaults() {
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.Name == "" {
			j.Name = j.Kind
		}
		switch j.Kind {
		case KindHTTPFetch:
			if j.Timeout <= 0 {
				j.Timeout = defaultFetchTimeout
			}
		case KindPruneHistory:
			if j.Retention <= 0 {
				j.Retention = defaultRetention
			}
		}
	}
}

func (c *Config) validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Jobs))

	for i, j := range c.Jobs {
		if _, dup := seen[j.Name]; dup {
			errs = append(errs, fmt.Errorf("jobs[%d]: duplicate name %q", i, j.Name))
		}
		seen[j.Name] = struct{}{}

		if _, err := ParseSchedule(j.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d] %q: invalid schedule %q: %w", i, j.Name, j.Schedule, err))
		}

		switch j.Kind {
		case KindHeartbeat, KindPruneHistory:
		case KindHTTPFetch:
			u, err := url.Parse(j.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Errorf("jobs[%d] %q: url must be an absolute http(s) URL", i, j.Name))
			}
		case "":
			errs = append(errs, fmt.Errorf("jobs[%d]: kind is required", i))
		default:
			errs = append(errs, fmt.Errorf("jobs[%d] %q: unknown kind %q", i, j.Name, j.Kind))
		}
	}
	return errors.Join(errs...)
}
