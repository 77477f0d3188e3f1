// Package main is the entry point for the howis CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jskherman/howis/internal/config"
	"github.com/jskherman/howis/internal/core"
	"github.com/jskherman/howis/internal/jobs"
	"github.com/jskherman/howis/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "howis",
		Short:         "A personal quantified-self dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(
		versionCmd(),
		startCmd(),
		configCmd(),
		redactCmd(),
		jobsCmd(),
		initCmd(),
		serviceCmd(),
	)
	return root
}

func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "howis %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start howis with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd))
		},
	}
}

// buildQuiet loads the full application with console logging discarded.
func buildQuiet(cmd *cobra.Command) (*app.Instance, error) {
	params := runParams(cmd)
	params.Stdout = io.Discard
	return app.Build(cmd.Context(), params)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and load every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				_ = cmd.Flags().Set("config", args[0])
			}
			inst, err := buildQuiet(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = inst.Close(context.Background()) }()

			out := cmd.OutOrStdout()
			ids := inst.App.ModuleIDs()
			fmt.Fprintf(out, "Configuration OK (%s, %d modules)\n", inst.Config.Environment, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect scheduled jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured jobs and their next run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := buildQuiet(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = inst.Close(context.Background()) }()

			mod, ok := inst.App.Module("jobs.runner")
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "jobs.runner is not configured")
				return nil
			}
			return printEntries(cmd.OutOrStdout(), mod.(*jobs.Module).Scheduler().Entries(), time.Now())
		},
	})
	return cmd
}

func printEntries(w io.Writer, entries []jobs.EntryInfo, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCHEDULE\tNEXT RUN\tIN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Name, e.Schedule, e.Next.Format(time.RFC3339), e.Next.Sub(now).Round(time.Second))
	}
	return tw.Flush()
}

// loadConfigOnly resolves and loads the config without building anything.
func loadConfigOnly(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return config.Load(path)
}
