package analyzer

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client for endpoint, executes the callback, and
// closes the client when done, stopping a launched server.
//
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := analyzer.WithClient(ctx, analyzer.LaunchEndpoint(50005, "-f es.cfg"),
//	    func(c analyzer.Client) error {
//	        return c.AnalyzeFile(ctx, "in.txt", "out.txt")
//	    },
//	    analyzer.WithLogger(log),
//	)
func WithClient(ctx context.Context, endpoint Endpoint, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client, err := newClientImpl(ctx, endpoint, options)
	if err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
