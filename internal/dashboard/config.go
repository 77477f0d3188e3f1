package dashboard

import "time"

// Config holds the dashboard configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	SiteTitle       string        `yaml:"site_title"`
	GitHubURL       string        `yaml:"github_url"`
	Auth            AuthConfig    `yaml:"auth"`
	Theme           Theme         `yaml:"theme"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	HistoryLimit    int           `yaml:"history_limit"`
	TemplateDir     string        `yaml:"template_dir"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.SiteTitle == "" {
		c.SiteTitle = "howis.jskherman.com"
	}
	if c.GitHubURL == "" {
		c.GitHubURL = "https://github.com/zauberzeug/nicegui/"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	c.RateLimit.defaults()
	c.Theme.defaults()
}

// AuthConfig protects the JSON API. Pages stay public.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// RateLimit bounds state-changing requests (token bucket).
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func (r *RateLimit) defaults() {
	if r.PerSecond <= 0 {
		r.PerSecond = 5
	}
	if r.Burst <= 0 {
		r.Burst = 10
	}
}
