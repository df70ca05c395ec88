package errors

import (
	"errors"
	"fmt"
	"time"
)

// AnalyzerError is the base interface for all analyzer client errors.
type AnalyzerError interface {
	error
	IsAnalyzerError() bool
}

// Compile-time verification that all error types implement AnalyzerError.
var (
	_ AnalyzerError = (*ServerNotFoundError)(nil)
	_ AnalyzerError = (*LaunchError)(nil)
	_ AnalyzerError = (*ProcessError)(nil)
	_ AnalyzerError = (*StartupTimeoutError)(nil)
	_ AnalyzerError = (*InvalidEndpointError)(nil)
	_ AnalyzerError = (*ConnectionError)(nil)
	_ AnalyzerError = (*ProtocolError)(nil)
	_ AnalyzerError = (*ServerUnavailableError)(nil)
	_ AnalyzerError = (*FileReadError)(nil)
	_ AnalyzerError = (*FileWriteError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one")

	// ErrClientNotStarted indicates an operation on a client before Start.
	ErrClientNotStarted = errors.New("client not started")

	// ErrUnsupportedFraming indicates the configured framing cannot carry the operation.
	ErrUnsupportedFraming = errors.New("operation not supported by framing")

	// ErrServerNotRunning indicates the supervisor has no live process.
	ErrServerNotRunning = errors.New("server process not running")

	// ErrPortInUse indicates another process already listens on the launch port.
	ErrPortInUse = errors.New("port already in use")

	// ErrSupervisorStarted indicates Start was called twice on one supervisor.
	ErrSupervisorStarted = errors.New("supervisor already started")
)

// ServerNotFoundError indicates the analysis server binary was not found.
type ServerNotFoundError struct {
	SearchedPaths []string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("analysis server binary not found in: %v", e.SearchedPaths)
}

// IsAnalyzerError implements AnalyzerError.
func (e *ServerNotFoundError) IsAnalyzerError() bool { return true }

// LaunchError indicates the server process could not be started.
type LaunchError struct {
	Path string
	Args []string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("launch analysis server: %v", e.Err)
	}

	return fmt.Sprintf("launch analysis server %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *LaunchError) IsAnalyzerError() bool { return true }

// ProcessError describes how the server process exited.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server process exited (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("server process exited (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *ProcessError) IsAnalyzerError() bool { return true }

// StartupTimeoutError indicates the server started but never accepted
// connections within the startup bound. The child has been killed.
type StartupTimeoutError struct {
	Port    uint16
	Timeout time.Duration
	Stderr  string
}

func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("analysis server on port %d not ready after %s", e.Port, e.Timeout)
}

// IsAnalyzerError implements AnalyzerError.
func (e *StartupTimeoutError) IsAnalyzerError() bool { return true }

// InvalidEndpointError indicates a malformed "host:port" string.
type InvalidEndpointError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: %s", e.Input, e.Reason)
}

func (e *InvalidEndpointError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *InvalidEndpointError) IsAnalyzerError() bool { return true }

// ConnectionError indicates a socket-level connect failure.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *ConnectionError) IsAnalyzerError() bool { return true }

// ProtocolError indicates an I/O failure in the middle of an exchange.
// Output received before the failure is discarded; PartialBytes records
// how much of it there was.
type ProtocolError struct {
	Op           string
	RequestID    string
	PartialBytes int
	Err          error
}

func (e *ProtocolError) Error() string {
	if e.PartialBytes > 0 {
		return fmt.Sprintf("protocol %s failed after %d bytes: %v", e.Op, e.PartialBytes, e.Err)
	}

	return fmt.Sprintf("protocol %s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *ProtocolError) IsAnalyzerError() bool { return true }

// ServerUnavailableError indicates the launched server process is known to be dead.
type ServerUnavailableError struct {
	PID int
	Err error
}

func (e *ServerUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis server (pid %d) unavailable: %v", e.PID, e.Err)
	}

	return fmt.Sprintf("analysis server (pid %d) unavailable", e.PID)
}

func (e *ServerUnavailableError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *ServerUnavailableError) IsAnalyzerError() bool { return true }

// FileReadError indicates the input file of AnalyzeFile could not be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read input file %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *FileReadError) IsAnalyzerError() bool { return true }

// FileWriteError indicates the output file of AnalyzeFile could not be written.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("write output file %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error {
	return e.Err
}

// IsAnalyzerError implements AnalyzerError.
func (e *FileWriteError) IsAnalyzerError() bool { return true }
