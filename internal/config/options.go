package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Framing selects how request and response boundaries are marked on the wire.
type Framing string

const (
	// FramingClose writes the whole request, half-closes, and reads the
	// response until the server closes the connection.
	FramingClose Framing = "close"

	// FramingMessage sends one NUL-terminated message per input line and
	// reads one NUL-terminated reply per message, as the FreeLing socket
	// server does.
	FramingMessage Framing = "message"
)

// ParseFraming maps a name to a Framing.
func ParseFraming(name string) (Framing, error) {
	switch Framing(name) {
	case FramingClose, "":
		return FramingClose, nil
	case FramingMessage:
		return FramingMessage, nil
	default:
		return "", fmt.Errorf("unknown framing %q (want %q or %q)", name, FramingClose, FramingMessage)
	}
}

// ShutdownPolicy decides what happens to a launched server when the client closes.
type ShutdownPolicy string

const (
	// ShutdownTerminate stops the server: SIGTERM, grace period, SIGKILL.
	ShutdownTerminate ShutdownPolicy = "terminate"

	// ShutdownDetach leaves the server running for reuse by other clients.
	ShutdownDetach ShutdownPolicy = "detach"
)

// ParseShutdownPolicy maps a name to a ShutdownPolicy.
func ParseShutdownPolicy(name string) (ShutdownPolicy, error) {
	switch ShutdownPolicy(name) {
	case ShutdownTerminate, "":
		return ShutdownTerminate, nil
	case ShutdownDetach:
		return ShutdownDetach, nil
	default:
		return "", fmt.Errorf("unknown shutdown policy %q (want %q or %q)", name, ShutdownTerminate, ShutdownDetach)
	}
}

// Default timeouts. Every blocking step is bounded.
const (
	DefaultDialTimeout       = 10 * time.Second
	DefaultIOTimeout         = 5 * time.Minute
	DefaultStartupTimeout    = 60 * time.Second
	DefaultReadyPollInterval = 100 * time.Millisecond
	DefaultGracePeriod       = 5 * time.Second
)

// Options configures the behavior of the analyzer client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Framing selects the wire framing. Defaults to FramingClose.
	Framing Framing

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// IOTimeout bounds one whole request/response exchange.
	IOTimeout time.Duration

	// StartupTimeout bounds how long a launched server may take to accept connections.
	StartupTimeout time.Duration

	// ReadyPollInterval is the delay between readiness probes of a launched server.
	ReadyPollInterval time.Duration

	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	GracePeriod time.Duration

	// ServerPath is the explicit path to the analysis server binary.
	// If empty, the binary is searched in PATH and common install directories.
	ServerPath string

	// PortFlag places the port behind a flag (e.g. "--port") instead of
	// passing it as the first positional argument.
	PortFlag string

	// Env provides additional environment variables for the server process.
	Env map[string]string

	// Cwd sets the working directory for the server process.
	Cwd string

	// ShutdownPolicy decides whether Close stops a launched server.
	// Defaults to ShutdownTerminate.
	ShutdownPolicy ShutdownPolicy

	// PIDFile, if set, receives the PID of a launched server. It is removed
	// when the server is terminated and kept when the server is detached.
	PIDFile string

	// Stderr is a callback receiving each stderr line of a launched server.
	Stderr func(string)

	// SkipConnectCheck disables the reachability dial a connect-mode client
	// performs when it starts.
	SkipConnectCheck bool

	// Dialer allows injecting a custom transport implementation.
	// If nil, a TCP dialer is created automatically.
	Dialer Dialer
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
func (o *Options) WithDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}

	if out.Framing == "" {
		out.Framing = FramingClose
	}

	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}

	if out.IOTimeout <= 0 {
		out.IOTimeout = DefaultIOTimeout
	}

	if out.StartupTimeout <= 0 {
		out.StartupTimeout = DefaultStartupTimeout
	}

	if out.ReadyPollInterval <= 0 {
		out.ReadyPollInterval = DefaultReadyPollInterval
	}

	if out.GracePeriod <= 0 {
		out.GracePeriod = DefaultGracePeriod
	}

	if out.ShutdownPolicy == "" {
		out.ShutdownPolicy = ShutdownTerminate
	}

	return &out
}
