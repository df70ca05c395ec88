package analyzer

import (
	"context"

	"github.com/wagiedev/analyzer-client-go/internal/client"
	"github.com/wagiedev/analyzer-client-go/internal/config"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates and starts the internal client implementation.
func newClientImpl(ctx context.Context, endpoint Endpoint, options *config.Options) (Client, error) {
	impl := client.New()
	if err := impl.Start(ctx, endpoint, options); err != nil {
		return nil, err
	}

	return &clientWrapper{impl: impl}, nil
}

func (c *clientWrapper) AnalyzeText(ctx context.Context, text string) (string, error) {
	return c.impl.AnalyzeText(ctx, text)
}

func (c *clientWrapper) AnalyzeFile(ctx context.Context, inputPath, outputPath string) error {
	return c.impl.AnalyzeFile(ctx, inputPath, outputPath)
}

func (c *clientWrapper) ResetStats(ctx context.Context) error {
	return c.impl.ResetStats(ctx)
}

func (c *clientWrapper) Stats(ctx context.Context) (string, error) {
	return c.impl.Stats(ctx)
}

func (c *clientWrapper) Endpoint() Endpoint {
	return c.impl.Endpoint()
}

func (c *clientWrapper) ServerPID() int {
	return c.impl.ServerPID()
}

func (c *clientWrapper) ServerAlive() bool {
	return c.impl.ServerAlive()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
