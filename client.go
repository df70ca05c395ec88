package analyzer

import (
	"context"

	"github.com/wagiedev/analyzer-client-go/internal/config"
)

// Client submits text to an analysis server.
//
// Every call opens its own connection, so a Client may be shared between
// goroutines. Clients are single-use: after Close, create a new one.
//
// Example usage:
//
//	client, err := analyzer.Connect("localhost:50005")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	out, err := client.AnalyzeText(ctx, "Hola mundo.")
type Client interface {
	// AnalyzeText sends text and returns the server's complete response.
	// Returns ConnectionError, ProtocolError or ServerUnavailableError on failure.
	AnalyzeText(ctx context.Context, text string) (string, error)

	// AnalyzeFile analyzes the content of inputPath into outputPath,
	// creating or truncating it. Returns FileReadError without touching
	// outputPath when the input cannot be read, and FileWriteError when the
	// output cannot be written.
	AnalyzeFile(ctx context.Context, inputPath, outputPath string) error

	// ResetStats resets the server's statistics counters.
	// Requires FramingMessage.
	ResetStats(ctx context.Context) error

	// Stats returns the server's statistics report.
	// Requires FramingMessage.
	Stats(ctx context.Context) (string, error)

	// Endpoint returns where the server lives.
	Endpoint() Endpoint

	// ServerPID returns the PID of a launched server, or 0 in connect mode.
	ServerPID() int

	// ServerAlive reports whether a launched server is still running.
	// Always true in connect mode.
	ServerAlive() bool

	// Close releases the client and stops a launched server according to
	// the shutdown policy. Safe to call multiple times.
	Close() error
}

// Endpoint describes where the analysis server lives.
type Endpoint = config.Endpoint

// Mode says whether a client launches its server or connects to one.
type Mode = config.Mode

// Endpoint modes.
const (
	ModeConnect = config.ModeConnect
	ModeLaunch  = config.ModeLaunch
)

// LaunchEndpoint returns an endpoint for a server launched on localhost:port
// with the given raw argument string.
func LaunchEndpoint(port uint16, launchArgs string) Endpoint {
	return config.LaunchEndpoint(port, launchArgs)
}

// ParseEndpoint parses "host:port" into a connect-mode Endpoint.
// Returns InvalidEndpointError for anything else.
func ParseEndpoint(hostPort string) (Endpoint, error) {
	return config.ParseEndpoint(hostPort)
}

// New creates a client for endpoint.
//
// For a launch-mode endpoint the server is started and New blocks until it
// accepts connections; LaunchError or StartupTimeoutError is returned on
// failure and no process is left running. For a connect-mode endpoint the
// server is dialed once to check that it is reachable.
func New(ctx context.Context, endpoint Endpoint, opts ...Option) (Client, error) {
	return newClientImpl(ctx, endpoint, applyOptions(opts))
}

// NewLaunched starts a local server on port, passing launchArgs to it
// verbatim, and returns a client bound to it.
func NewLaunched(ctx context.Context, port uint16, launchArgs string, opts ...Option) (Client, error) {
	return New(ctx, LaunchEndpoint(port, launchArgs), opts...)
}

// Connect returns a client for the server at hostPort. It owns no process.
func Connect(hostPort string, opts ...Option) (Client, error) {
	endpoint, err := ParseEndpoint(hostPort)
	if err != nil {
		return nil, err
	}

	options := applyOptions(opts)

	ctx, cancel := context.WithTimeout(context.Background(), options.WithDefaults().DialTimeout)
	defer cancel()

	return newClientImpl(ctx, endpoint, options)
}
