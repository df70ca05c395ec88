package analyzer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FileJob names one input file and the file its analysis is written to.
type FileJob struct {
	Input  string
	Output string
}

// FileResult is the outcome of one FileJob.
type FileResult struct {
	Job FileJob
	Err error
}

// AnalyzeFiles runs AnalyzeFile for every job with at most concurrency
// requests in flight. A concurrency below 1 means runtime.GOMAXPROCS(0).
//
// Jobs fail independently: the returned slice holds one result per job, in
// job order. The error is non-nil only when ctx ended before every job ran.
func AnalyzeFiles(ctx context.Context, c Client, jobs []FileJob, concurrency int) ([]FileResult, error) {
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		results[i].Job = job

		if ctx.Err() != nil {
			results[i].Err = ctx.Err()

			continue
		}

		g.Go(func() error {
			results[i].Err = c.AnalyzeFile(ctx, job.Input, job.Output)

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}

	return results, nil
}

// Failed returns the results that carry an error.
func Failed(results []FileResult) []FileResult {
	var failed []FileResult

	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	return failed
}
