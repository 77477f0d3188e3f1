package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/logging"
)

type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func registerStub(t *testing.T) string {
	t.Helper()
	id := "test." + strings.ReplaceAll(t.Name(), "/", "_")
	core.RegisterModule(&stubModule{id: id})
	return id
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("HOWIS_TEST_TOKEN", "s3cret")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{name: "set", in: "token: ${HOWIS_TEST_TOKEN}", want: "token: s3cret"},
		{name: "default unused", in: "token: ${HOWIS_TEST_TOKEN:-x}", want: "token: s3cret"},
		{name: "default", in: "bind: ${HOWIS_TEST_UNSET:-127.0.0.1:9000}", want: "bind: 127.0.0.1:9000"},
		{name: "empty default", in: "a: '${HOWIS_TEST_UNSET:-}'", want: "a: ''"},
		{name: "no vars", in: "a: $HOME", want: "a: $HOME"},
		{name: "unresolved", in: "a: ${HOWIS_TEST_UNSET}\nb: ${HOWIS_TEST_UNSET_TOO}", wantErr: "HOWIS_TEST_UNSET_TOO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnv([]byte(tt.in))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expandEnv() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnv() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expandEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           Config
		env           map[string]string
		wantEnv       string
		wantRequested string
		wantNative    bool
	}{
		{name: "nothing set", wantEnv: Development},
		{name: "ENVI", env: map[string]string{"ENVI": " Production "}, wantEnv: Production},
		{name: "ENVIRONMENT fallback", env: map[string]string{"ENVIRONMENT": "production"}, wantEnv: Production},
		{name: "ENVI wins", env: map[string]string{"ENVI": "development", "ENVIRONMENT": "production"}, wantEnv: Development},
		{name: "file wins", cfg: Config{Environment: "production"}, env: map[string]string{"ENVI": "development"}, wantEnv: Production},
		{name: "short name runs as development", env: map[string]string{"ENVI": "dev"}, wantEnv: Development, wantRequested: "dev"},
		{name: "unknown runs as development", cfg: Config{Environment: "Staging"}, wantEnv: Development, wantRequested: "staging"},
		{name: "native env", env: map[string]string{"NATIVE": "TRUE"}, wantEnv: Development, wantNative: true},
		{name: "native other", env: map[string]string{"NATIVE": "1"}, wantEnv: Development},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.cfg
			cfg.ApplyDefaults(func(k string) string { return tt.env[k] })

			if cfg.Environment != tt.wantEnv {
				t.Errorf("Environment = %q, want %q", cfg.Environment, tt.wantEnv)
			}
			if cfg.RequestedEnvironment != tt.wantRequested {
				t.Errorf("RequestedEnvironment = %q, want %q", cfg.RequestedEnvironment, tt.wantRequested)
			}
			if cfg.Native != tt.wantNative {
				t.Errorf("Native = %v, want %v", cfg.Native, tt.wantNative)
			}
			if cfg.Logging.Environment != cfg.Environment {
				t.Errorf("Logging.Environment = %q", cfg.Logging.Environment)
			}
		})
	}
}

func TestApplyDefaults_Paths(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.ApplyDefaults(func(string) string { return "" })

	if cfg.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Storage.Path != filepath.Join(DefaultDataDir, "howis.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.File.Path != logging.DefaultFilePath || cfg.Logging.PatternsFile != logging.DefaultPatternsFile {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	disabled := Config{Storage: StorageConfig{Disabled: true}}
	disabled.ApplyDefaults(func(string) string { return "" })
	if disabled.Storage.Path != "" {
		t.Errorf("disabled storage got path %q", disabled.Storage.Path)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "HOWIS_TEST_DOTENV_TOKEN=from-dotenv\n")
	path := writeFile(t, dir, "howis.yaml", `
version: "1"
environment: production
logging:
  level: warn
  file:
    backups: 7
storage:
  path: /tmp/howis-test.db
modules:
  dashboard.http:
    bind: 127.0.0.1:8081
    auth:
      bearer_token: ${HOWIS_TEST_DOTENV_TOKEN}
`)
	t.Cleanup(func() { _ = os.Unsetenv("HOWIS_TEST_DOTENV_TOKEN") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.IsProduction() || cfg.Logging.Level != "warn" || cfg.Logging.File.Backups != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Path != "/tmp/howis-test.db" || cfg.Storage.BusyTimeout != 5000 {
		t.Errorf("storage = %+v", cfg.Storage)
	}

	node, ok := cfg.Modules["dashboard.http"]
	if !ok {
		t.Fatal("dashboard.http entry missing")
	}
	var dash struct {
		Auth struct {
			BearerToken string `yaml:"bearer_token"`
		} `yaml:"auth"`
	}
	if err := node.Decode(&dash); err != nil {
		t.Fatal(err)
	}
	if dash.Auth.BearerToken != "from-dotenv" {
		t.Errorf("bearer_token = %q, want value from .env", dash.Auth.BearerToken)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}

	bad := writeFile(t, dir, "bad.yaml", "version: [unterminated\n")
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Errorf("Load(bad) error = %v", err)
	}

	unresolved := writeFile(t, dir, "unresolved.yaml", "version: ${HOWIS_TEST_NEVER_SET}\n")
	if _, err := Load(unresolved); err == nil || !strings.Contains(err.Error(), "HOWIS_TEST_NEVER_SET") {
		t.Errorf("Load(unresolved) error = %v", err)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	t.Setenv("HOWIS_TEST_PRESET", "shell")
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "HOWIS_TEST_PRESET=file\n")

	if err := LoadDotEnv(p, filepath.Join(dir, "nope.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("HOWIS_TEST_PRESET"); got != "shell" {
		t.Errorf("HOWIS_TEST_PRESET = %q, want shell", got)
	}
}

func TestValidate(t *testing.T) {
	id := registerStub(t)

	valid := func() *Config {
		cfg := &Config{Version: "1", Modules: map[string]yaml.Node{id: {}}}
		cfg.ApplyDefaults(func(string) string { return "" })
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing version", mutate: func(c *Config) { c.Version = "" }, wantErr: "version field is required"},
		{name: "unsupported version", mutate: func(c *Config) { c.Version = "99" }, wantErr: "unsupported version"},
		{name: "no modules", mutate: func(c *Config) { c.Modules = nil }, wantErr: "at least one module"},
		{name: "unknown module", mutate: func(c *Config) { c.Modules["nope.module"] = yaml.Node{} }, wantErr: `unknown module "nope.module"`},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad ratio", mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 }, wantErr: "sample_ratio"},
		{name: "bad busy timeout", mutate: func(c *Config) { c.Storage.BusyTimeout = -1 }, wantErr: "busy_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{Version: "2", Logging: logging.Config{Level: "loud"}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"unsupported version", "logging.level", "at least one module"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParse_NonStandardEnvironmentStarts(t *testing.T) {
	t.Setenv("ENVI", "dev")
	id := registerStub(t)

	cfg, err := Parse([]byte("version: \"1\"\nmodules:\n  " + id + ": {}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Environment != Development || cfg.IsProduction() {
		t.Errorf("Environment = %q, want %q", cfg.Environment, Development)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestModuleIDs_Sorted(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{"jobs.runner": {}, "dashboard.http": {}}}
	got := cfg.ModuleIDs()
	if len(got) != 2 || got[0] != "dashboard.http" || got[1] != "jobs.runner" {
		t.Errorf("ModuleIDs() = %v", got)
	}
}
