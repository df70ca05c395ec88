package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	analyzer "github.com/wagiedev/analyzer-client-go"
	"github.com/wagiedev/analyzer-client-go/internal/watch"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the server's statistics (message framing only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), func(c analyzer.Client) error {
				out, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}

				_, err = io.WriteString(cmd.OutOrStdout(), out)

				return err
			})
		},
	}
}

func newResetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stats",
		Short: "Reset the server's statistics (message framing only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), func(c analyzer.Client) error {
				return c.ResetStats(cmd.Context())
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		outDir   string
		pattern  string
		suffix   string
		existing bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Analyze files as they appear in a directory until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings()
			if err != nil {
				return err
			}

			return analyzer.WithClient(cmd.Context(), s.endpoint, func(c analyzer.Client) error {
				w, err := watch.New(watch.Config{
					InputDir:        args[0],
					OutputDir:       outDir,
					Pattern:         pattern,
					Suffix:          suffix,
					ProcessExisting: existing,
					Logger:          s.log,
					OnResult: func(r watch.Result) {
						if r.Err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Input, r.Err)

							return
						}

						fmt.Fprintln(cmd.OutOrStdout(), r.Output)
					},
				}, c)
				if err != nil {
					return err
				}

				return w.Run(cmd.Context())
			}, s.options...)
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for results (default: the watched directory)")
	cmd.Flags().StringVar(&pattern, "pattern", watch.DefaultPattern, "Glob selecting input file names")
	cmd.Flags().StringVar(&suffix, "suffix", watch.DefaultSuffix, "Suffix appended to each input name")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also analyze matching files already present")

	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyzer as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), func(c analyzer.Client) error {
				return analyzer.ServeMCP(cmd.Context(), c)
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a detached server recorded with --pid-file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagPIDFile == "" {
				return fmt.Errorf("--pid-file is required")
			}

			pid, err := analyzer.StopDetached(cmd.Context(), flagPIDFile, grace)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stopped server %d\n", pid)

			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", analyzer.DefaultGracePeriod, "Wait before SIGKILL")

	return cmd
}
