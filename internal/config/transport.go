// Package config provides configuration types for the analyzer client.
package config

import (
	"context"
	"io"
	"time"
)

// Channel is a duplex byte stream to one analysis server connection.
//
// A Channel carries exactly one request/response exchange at a time; the
// wire protocol has no multiplexing.
type Channel interface {
	io.ReadWriteCloser

	// CloseWrite signals that no more data will be written while still
	// permitting reads (TCP half-close).
	CloseWrite() error

	// SetDeadline bounds all pending and future reads and writes.
	SetDeadline(t time.Time) error

	// RemoteAddr returns the peer address for logging.
	RemoteAddr() string
}

// Dialer opens Channels to an analysis server.
// Implement this to provide custom transports for testing or tunnelling.
//
// The default implementation is transport.TCPDialer.
// Custom dialers can be injected via Options.Dialer.
type Dialer interface {
	// Dial connects to address ("host:port"). Failures are reported as
	// *errors.ConnectionError.
	Dial(ctx context.Context, address string) (Channel, error)
}
