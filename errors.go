package analyzer

import "github.com/wagiedev/analyzer-client-go/internal/errors"

// Re-export error types from internal package

// AnalyzerError is the base interface for all analyzer client errors.
type AnalyzerError = errors.AnalyzerError

// LaunchError indicates the server process could not be started.
type LaunchError = errors.LaunchError

// StartupTimeoutError indicates a launched server never accepted connections.
type StartupTimeoutError = errors.StartupTimeoutError

// InvalidEndpointError indicates a malformed "host:port" string.
type InvalidEndpointError = errors.InvalidEndpointError

// ConnectionError indicates a failure to connect to the server.
type ConnectionError = errors.ConnectionError

// ProtocolError indicates an I/O failure in the middle of an exchange.
type ProtocolError = errors.ProtocolError

// ServerUnavailableError indicates the launched server process has died.
type ServerUnavailableError = errors.ServerUnavailableError

// FileReadError indicates the input file of AnalyzeFile could not be read.
type FileReadError = errors.FileReadError

// FileWriteError indicates the output file of AnalyzeFile could not be written.
type FileWriteError = errors.FileWriteError

// ServerNotFoundError indicates the server binary was not found.
type ServerNotFoundError = errors.ServerNotFoundError

// ProcessError describes how a server process exited.
type ProcessError = errors.ProcessError

// Re-export sentinel errors from internal package.
var (
	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrClientNotStarted indicates the client never started successfully.
	ErrClientNotStarted = errors.ErrClientNotStarted

	// ErrUnsupportedFraming indicates the framing cannot carry the operation.
	ErrUnsupportedFraming = errors.ErrUnsupportedFraming

	// ErrPortInUse indicates another process already listens on the launch port.
	ErrPortInUse = errors.ErrPortInUse

	// ErrServerNotRunning indicates a launched server exited on its own.
	ErrServerNotRunning = errors.ErrServerNotRunning
)
