// Package transport provides the TCP connection channel to an analysis server.
//
// One Channel is opened per request: the server closes its side after each
// response in close framing, and even in message framing a fresh connection
// guarantees no bytes of a previous response leak into the next one.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// TCPDialer opens TCP Channels with a bounded connect timeout.
type TCPDialer struct {
	log     *slog.Logger
	timeout time.Duration
}

// Compile-time verification that TCPDialer implements config.Dialer.
var _ config.Dialer = (*TCPDialer)(nil)

// NewTCPDialer creates a dialer. A non-positive timeout uses config.DefaultDialTimeout.
func NewTCPDialer(log *slog.Logger, timeout time.Duration) *TCPDialer {
	if timeout <= 0 {
		timeout = config.DefaultDialTimeout
	}

	return &TCPDialer{
		log:     log.With("component", "tcp_dialer"),
		timeout: timeout,
	}
}

// Dial connects to address. Refused connections, DNS failures, and
// timeouts are all reported as *errors.ConnectionError.
func (d *TCPDialer) Dial(ctx context.Context, address string) (config.Channel, error) {
	dialer := net.Dialer{Timeout: d.timeout}

	d.log.Debug("Dialing analysis server", "address", address)

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		d.log.Debug("Dial failed", "address", address, "error", err)

		return nil, &errors.ConnectionError{Address: address, Err: err}
	}

	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()

		return nil, &errors.ConnectionError{
			Address: address,
			Err:     fmt.Errorf("unexpected connection type %T", conn),
		}
	}

	return &tcpChannel{conn: tcp}, nil
}

// tcpChannel adapts *net.TCPConn to config.Channel.
type tcpChannel struct {
	conn *net.TCPConn
}

func (c *tcpChannel) Read(p []byte) (int, error)  { return c.conn.Read(p) }
func (c *tcpChannel) Write(p []byte) (int, error) { return c.conn.Write(p) }
func (c *tcpChannel) Close() error                { return c.conn.Close() }
func (c *tcpChannel) CloseWrite() error           { return c.conn.CloseWrite() }
func (c *tcpChannel) RemoteAddr() string          { return c.conn.RemoteAddr().String() }

func (c *tcpChannel) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Probe reports whether address currently accepts TCP connections.
// The probe connection is closed immediately.
func Probe(ctx context.Context, address string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}

	return conn.Close()
}
