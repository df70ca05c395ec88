package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	analyzer "github.com/wagiedev/analyzer-client-go"
)

func newTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text [words...]",
		Short: "Analyze text from the arguments or stdin and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return withClient(cmd.Context(), func(c analyzer.Client) error {
				out, err := c.AnalyzeText(cmd.Context(), text)
				if err != nil {
					return err
				}

				_, err = io.WriteString(cmd.OutOrStdout(), out)

				return err
			})
		},
	}
}

// readText joins args with spaces, or reads all of in when args is empty or "-".
func readText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <input> <output>",
		Short: "Analyze a file, overwriting the output file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(c analyzer.Client) error {
				return c.AnalyzeFile(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newBatchCmd() *cobra.Command {
	var (
		outDir      string
		suffix      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch <input>...",
		Short: "Analyze many files concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureDir(outDir); err != nil {
				return err
			}

			jobs := batchJobs(args, outDir, suffix)

			return withClient(cmd.Context(), func(c analyzer.Client) error {
				results, err := analyzer.AnalyzeFiles(cmd.Context(), c, jobs, concurrency)
				if err != nil {
					return err
				}

				failed := analyzer.Failed(results)
				for _, r := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Job.Input, r.Err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d analyzed, %d failed\n", len(results)-len(failed), len(failed))

				if len(failed) > 0 {
					return fmt.Errorf("%d of %d files failed", len(failed), len(results))
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for results (default: next to each input)")
	cmd.Flags().StringVar(&suffix, "suffix", ".out", "Suffix appended to each input name")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "Concurrent requests (default: GOMAXPROCS)")

	return cmd
}

// batchJobs maps every input to input+suffix, inside outDir when set.
func batchJobs(inputs []string, outDir, suffix string) []analyzer.FileJob {
	jobs := make([]analyzer.FileJob, 0, len(inputs))

	for _, in := range inputs {
		out := in + suffix
		if outDir != "" {
			out = filepath.Join(outDir, filepath.Base(in)+suffix)
		}

		jobs = append(jobs, analyzer.FileJob{Input: in, Output: out})
	}

	return jobs
}

// ensureDir creates dir if it is set.
func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}

	return os.MkdirAll(dir, 0o755)
}
