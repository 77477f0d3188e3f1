package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jskherman/howis/internal/logging"
	"github.com/jskherman/howis/internal/redact"
)

const maxLine = 1 << 20

func redactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Filter stdin through the redaction patterns",
		Long: "Reads lines from stdin and writes them with every match of the " +
			"patterns file replaced by " + redact.Marker + ". The patterns file " +
			"comes from --patterns, else from the configuration, else regex.txt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("patterns")
			if path == "" {
				path = logging.DefaultPatternsFile
				if cfg, err := loadConfigOnly(cmd); err == nil {
					path = cfg.Logging.PatternsFile
				}
			}

			f, err := redact.NewFilter(path)
			if err != nil {
				return err
			}

			if list, _ := cmd.Flags().GetBool("list"); list {
				out := cmd.OutOrStdout()
				for i, p := range f.Patterns() {
					fmt.Fprintf(out, "%d\t%s\n", i+1, p)
				}
				return nil
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 64*1024), maxLine)
			out := bufio.NewWriter(cmd.OutOrStdout())
			for sc.Scan() {
				if _, err := fmt.Fprintln(out, f.Redact(sc.Text())); err != nil {
					return err
				}
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return out.Flush()
		},
	}
	cmd.Flags().StringP("patterns", "p", "", "Path to the patterns file")
	cmd.Flags().BoolP("list", "l", false, "Print the compiled patterns in application order and exit")
	return cmd
}
