package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jskherman/howis/internal/config"
	"github.com/jskherman/howis/internal/jobs"
	"github.com/jskherman/howis/internal/logging"
)

const tokenEnvVar = "HOWIS_API_TOKEN"

const defaultPatterns = `# One regular expression per line. Matches are replaced with [REDACTED].
# Everything after '#' is a comment.
(?i)(api[_-]?key|token|secret|password)=[^\s&]+
(?i)bearer\s+[a-z0-9._-]+
`

// initAnswers holds what the setup wizard collects.
type initAnswers struct {
	Environment string
	Bind        string
	LogLevel    string
	Heartbeat   bool
	Schedule    string
	APIToken    string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Environment: config.Development,
		Bind:        "127.0.0.1:8080",
		LogLevel:    "",
		Heartbeat:   true,
		Schedule:    "@every 1h",
	}
}

func initCmd() *cobra.Command {
	var (
		output string
		force  bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				}
			}

			answers := defaultAnswers()
			if !yes {
				if err := askAnswers(&answers); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
			}

			if err := writeInitFiles(output, answers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "howis.yaml", "Where to write the configuration")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	return cmd
}

func askAnswers(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Environment").
				Options(
					huh.NewOption("Development", config.Development),
					huh.NewOption("Production", config.Production),
				).
				Value(&a.Environment),
			huh.NewInput().
				Title("Dashboard listen address").
				Value(&a.Bind).
				Validate(validateBind),
			huh.NewSelect[string]().
				Title("Log level").
				Description("Auto picks info in production and debug otherwise.").
				Options(
					huh.NewOption("Auto", ""),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Schedule a heartbeat job?").
				Value(&a.Heartbeat),
			huh.NewInput().
				Title("Heartbeat schedule").
				Description("Five-field cron expression or @every <duration>.").
				Value(&a.Schedule).
				Validate(validateSchedule),
			huh.NewInput().
				Title("API bearer token").
				Description("Protects /api/*. Leave empty to disable. Stored in .env.").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIToken),
		),
	)
	return form.Run()
}

func validateBind(s string) error {
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

func validateSchedule(s string) error {
	_, err := jobs.ParseSchedule(s)
	return err
}

// renderConfig produces the YAML configuration for the collected answers.
func renderConfig(a initAnswers) ([]byte, error) {
	if err := validateBind(a.Bind); err != nil {
		return nil, err
	}

	dash := map[string]any{"bind": a.Bind}
	if a.APIToken != "" {
		dash["auth"] = map[string]any{"bearer_token": "${" + tokenEnvVar + "}"}
	}
	modules := map[string]any{"dashboard.http": dash}

	if a.Heartbeat {
		if err := validateSchedule(a.Schedule); err != nil {
			return nil, fmt.Errorf("heartbeat schedule: %w", err)
		}
		modules["jobs.runner"] = map[string]any{
			"jobs": []map[string]any{{
				"name":     "heartbeat",
				"kind":     jobs.KindHeartbeat,
				"schedule": a.Schedule,
			}},
		}
	}

	logCfg := map[string]any{"patterns_file": logging.DefaultPatternsFile}
	if a.LogLevel != "" {
		logCfg["level"] = a.LogLevel
	}

	doc := struct {
		Version     string         `yaml:"version"`
		Environment string         `yaml:"environment"`
		Logging     map[string]any `yaml:"logging"`
		Modules     map[string]any `yaml:"modules"`
	}{
		Version:     "1",
		Environment: a.Environment,
		Logging:     logCfg,
		Modules:     modules,
	}
	return yaml.Marshal(doc)
}

// writeInitFiles writes the config, a default patterns file next to it when
// none exists, and the API token into the sibling .env.
func writeInitFiles(path string, a initAnswers) error {
	raw, err := renderConfig(a)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}

	patterns := filepath.Join(dir, logging.DefaultPatternsFile)
	if _, err := os.Stat(patterns); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(patterns, []byte(defaultPatterns), 0o644); err != nil {
			return err
		}
	}

	if a.APIToken == "" {
		return nil
	}
	envPath := filepath.Join(dir, ".env")
	env, err := godotenv.Read(envPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", envPath, err)
		}
		env = map[string]string{}
	}
	env[tokenEnvVar] = a.APIToken
	return godotenv.Write(env, envPath)
}
