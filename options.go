package analyzer

import (
	"log/slog"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/config"
)

// Options configures the behavior of the analyzer client.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// Framing selects how request and response boundaries are marked on the wire.
type Framing = config.Framing

// Wire framings.
const (
	FramingClose   = config.FramingClose
	FramingMessage = config.FramingMessage
)

// ShutdownPolicy decides what Close does to a launched server.
type ShutdownPolicy = config.ShutdownPolicy

// Shutdown policies.
const (
	ShutdownTerminate = config.ShutdownTerminate
	ShutdownDetach    = config.ShutdownDetach
)

// Default timeouts.
const (
	DefaultDialTimeout    = config.DefaultDialTimeout
	DefaultIOTimeout      = config.DefaultIOTimeout
	DefaultStartupTimeout = config.DefaultStartupTimeout
	DefaultGracePeriod    = config.DefaultGracePeriod
)

// ParseFraming maps "close" or "message" to a Framing.
func ParseFraming(name string) (Framing, error) {
	return config.ParseFraming(name)
}

// ParseShutdownPolicy maps "terminate" or "detach" to a ShutdownPolicy.
func ParseShutdownPolicy(name string) (ShutdownPolicy, error) {
	return config.ParseShutdownPolicy(name)
}

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithFraming selects the wire framing. Defaults to FramingClose.
func WithFraming(framing Framing) Option {
	return func(o *Options) {
		o.Framing = framing
	}
}

// ===== Timeouts =====

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = timeout
	}
}

// WithIOTimeout bounds one whole request/response exchange.
func WithIOTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.IOTimeout = timeout
	}
}

// WithStartupTimeout bounds how long a launched server may take to accept connections.
func WithStartupTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.StartupTimeout = timeout
	}
}

// WithGracePeriod sets how long Close waits after SIGTERM before SIGKILL.
func WithGracePeriod(grace time.Duration) Option {
	return func(o *Options) {
		o.GracePeriod = grace
	}
}

// ===== Server Process =====

// WithServerPath sets the explicit path to the server binary.
// If not set, analyzer_server and analyze are searched in PATH and common
// install directories.
func WithServerPath(path string) Option {
	return func(o *Options) {
		o.ServerPath = path
	}
}

// WithPortFlag passes the port behind flag (e.g. "--port") after the launch
// arguments instead of as the first positional argument.
func WithPortFlag(flag string) Option {
	return func(o *Options) {
		o.PortFlag = flag
	}
}

// WithEnv provides additional environment variables for the server process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithCwd sets the working directory for the server process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithShutdownPolicy decides whether Close stops a launched server.
func WithShutdownPolicy(policy ShutdownPolicy) Option {
	return func(o *Options) {
		o.ShutdownPolicy = policy
	}
}

// WithPIDFile records the PID of a launched server at path.
func WithPIDFile(path string) Option {
	return func(o *Options) {
		o.PIDFile = path
	}
}

// WithStderr sets a callback receiving each stderr line of a launched server.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// ===== Transport =====

// WithoutConnectCheck makes Connect return without dialing the server.
func WithoutConnectCheck() Option {
	return func(o *Options) {
		o.SkipConnectCheck = true
	}
}

// WithDialer injects a custom transport implementation.
// This is primarily useful for testing.
func WithDialer(dialer Dialer) Option {
	return func(o *Options) {
		o.Dialer = dialer
	}
}

// WithConfig copies every field of options, replacing anything set before.
func WithConfig(options *Options) Option {
	return func(o *Options) {
		if options != nil {
			*o = *options
		}
	}
}
