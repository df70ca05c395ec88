package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
	"github.com/wagiedev/analyzer-client-go/internal/protocol"
	"github.com/wagiedev/analyzer-client-go/internal/subprocess"
	"github.com/wagiedev/analyzer-client-go/internal/transport"
)

// exitSettleDelay is how long a failed request waits for the supervisor to
// observe a dying server before reporting the raw I/O error instead.
const exitSettleDelay = 200 * time.Millisecond

// outputFileMode is the permission of files written by AnalyzeFile.
const outputFileMode = 0o644

// Client implements the analyzer client.
type Client struct {
	log        *slog.Logger
	options    *config.Options
	endpoint   config.Endpoint
	dialer     config.Dialer
	driver     *protocol.Driver
	supervisor *subprocess.Supervisor

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	closed    bool      // Tracks if Close() has been called
	closeOnce sync.Once // Ensures Close() only runs once
}

// New creates a new client. Call Start before using it.
func New() *Client {
	return &Client{}
}

// Start prepares the client for endpoint.
//
// In launch mode the server is spawned and Start blocks until it accepts
// connections, returning *errors.LaunchError or *errors.StartupTimeoutError
// on failure; no process is left behind in either case. In connect mode
// the server is dialed once to verify it is reachable, returning
// *errors.ConnectionError otherwise, unless options.SkipConnectCheck is set.
func (c *Client) Start(ctx context.Context, endpoint config.Endpoint, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	options = options.WithDefaults()

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.log = log.With("component", "client", "endpoint", endpoint.Address())

	if err := endpoint.Validate(); err != nil {
		return err
	}

	driver, err := protocol.NewDriver(log, options.Framing, options.IOTimeout)
	if err != nil {
		return err
	}

	dialer := options.Dialer
	if dialer == nil {
		dialer = transport.NewTCPDialer(log, options.DialTimeout)
	} else {
		c.log.Debug("Using injected custom dialer")
	}

	switch {
	case endpoint.Mode == config.ModeLaunch:
		supervisor := subprocess.New(log, endpoint, options)
		if err := supervisor.Start(ctx); err != nil {
			return err
		}

		c.supervisor = supervisor

	case !options.SkipConnectCheck:
		ch, err := dialer.Dial(ctx, endpoint.Address())
		if err != nil {
			return err
		}

		_ = ch.Close()
	}

	c.options = options
	c.endpoint = endpoint
	c.dialer = dialer
	c.driver = driver
	c.started = true

	c.log.Info("Client started", "mode", endpoint.Mode.String(), "framing", string(options.Framing))

	return nil
}

// AnalyzeText sends text to the server and returns the complete response.
func (c *Client) AnalyzeText(ctx context.Context, text string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	ch, err := c.dialer.Dial(ctx, c.endpoint.Address())
	if err != nil {
		return "", c.classify(err)
	}
	defer ch.Close()

	out, err := c.driver.Submit(ctx, ch, text)
	if err != nil {
		return "", c.classify(err)
	}

	return out, nil
}

// AnalyzeFile analyzes the whole content of inputPath into outputPath,
// creating or truncating it. The output file is not touched when reading
// the input or the analysis fails.
func (c *Client) AnalyzeFile(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return &errors.FileReadError{Path: inputPath, Err: err}
	}

	out, err := c.AnalyzeText(ctx, string(data))
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(out), outputFileMode); err != nil {
		return &errors.FileWriteError{Path: outputPath, Err: err}
	}

	c.log.Debug("Analyzed file", "input", inputPath, "output", outputPath, "bytes", len(out))

	return nil
}

// ResetStats resets the server's statistics counters.
// Requires the message framing.
func (c *Client) ResetStats(ctx context.Context) error {
	_, err := c.command(ctx, protocol.CommandResetStats)

	return err
}

// Stats returns the server's statistics report.
// Requires the message framing.
func (c *Client) Stats(ctx context.Context) (string, error) {
	return c.command(ctx, protocol.CommandPrintStats)
}

func (c *Client) command(ctx context.Context, command string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	if c.driver.Framing() != config.FramingMessage {
		return "", fmt.Errorf("%w: %s needs the message framing", errors.ErrUnsupportedFraming, command)
	}

	ch, err := c.dialer.Dial(ctx, c.endpoint.Address())
	if err != nil {
		return "", c.classify(err)
	}
	defer ch.Close()

	reply, err := c.driver.Command(ctx, ch, command)
	if err != nil {
		return "", c.classify(err)
	}

	return reply, nil
}

// Endpoint returns the server endpoint.
func (c *Client) Endpoint() config.Endpoint {
	return c.endpoint
}

// ServerPID returns the PID of the launched server, or 0 in connect mode.
func (c *Client) ServerPID() int {
	if c.supervisor == nil {
		return 0
	}

	return c.supervisor.PID()
}

// ServerAlive reports whether the server can be expected to answer: always
// true in connect mode, the supervisor's view in launch mode.
func (c *Client) ServerAlive() bool {
	if c.supervisor == nil {
		return true
	}

	return c.supervisor.Alive()
}

// ready checks that a request may be attempted.
func (c *Client) ready() error {
	c.mu.Lock()
	closed, started := c.closed, c.started
	c.mu.Unlock()

	if closed {
		return errors.ErrClientClosed
	}

	if !started {
		return errors.ErrClientNotStarted
	}

	if c.supervisor != nil && !c.supervisor.Alive() {
		return c.unavailable()
	}

	return nil
}

// classify turns an I/O failure into *errors.ServerUnavailableError when
// it was caused by the launched server dying.
func (c *Client) classify(err error) error {
	if c.supervisor == nil {
		return err
	}

	if _, ok := stderrors.AsType[*errors.ConnectionError](err); !ok {
		if _, ok := stderrors.AsType[*errors.ProtocolError](err); !ok {
			return err
		}
	}

	select {
	case <-c.supervisor.Done():
		c.log.Debug("Request failed because the server exited", "error", err)

		return c.unavailable()
	case <-time.After(exitSettleDelay):
		return err
	}
}

func (c *Client) unavailable() error {
	return &errors.ServerUnavailableError{
		PID: c.supervisor.PID(),
		Err: c.supervisor.Err(),
	}
}

// Close releases the client. A launched server is stopped, or detached
// when the shutdown policy says so. Safe to call multiple times; later
// requests fail with errors.ErrClientClosed.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasStarted := c.started
		c.mu.Unlock()

		if !wasStarted || c.supervisor == nil {
			return
		}

		if c.options.ShutdownPolicy == config.ShutdownDetach {
			pid := c.supervisor.Detach()
			c.log.Info("Client closed, server left running", "pid", pid)

			return
		}

		closeErr = c.supervisor.Stop(context.Background())
		c.log.Info("Client closed")
	})

	return closeErr
}
