package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// Server control messages understood by FreeLing socket servers.
const (
	// ServerReady is the reply sent when a message produced no output.
	ServerReady = "FL-SERVER-READY"

	// CommandResetStats resets the server's word/sentence/CPU counters.
	CommandResetStats = "RESET_STATS"

	// CommandPrintStats asks the server for its counters.
	CommandPrintStats = "PRINT_STATS"
)

// ErrInvalidPayload indicates text that cannot be carried by the framing.
var ErrInvalidPayload = stderrors.New("payload contains NUL byte")

// Framing carries one request/response exchange over a Channel.
type Framing interface {
	// Name identifies the framing.
	Name() config.Framing

	// Exchange writes text and returns the complete response.
	Exchange(ctx context.Context, ch config.Channel, text string) (string, error)
}

// Commander is implemented by framings that can carry server control messages.
type Commander interface {
	// Command sends one control message and returns its reply.
	Command(ctx context.Context, ch config.Channel, command string) (string, error)
}

// NewFraming returns the Framing implementation for name.
func NewFraming(name config.Framing) (Framing, error) {
	switch name {
	case config.FramingClose, "":
		return closeFraming{}, nil
	case config.FramingMessage:
		return messageFraming{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFraming, name)
	}
}

// Driver submits requests over Channels with a bounded exchange time.
type Driver struct {
	log       *slog.Logger
	framing   Framing
	ioTimeout time.Duration
}

// NewDriver creates a driver for the named framing.
// A non-positive ioTimeout uses config.DefaultIOTimeout.
func NewDriver(log *slog.Logger, framing config.Framing, ioTimeout time.Duration) (*Driver, error) {
	f, err := NewFraming(framing)
	if err != nil {
		return nil, err
	}

	if ioTimeout <= 0 {
		ioTimeout = config.DefaultIOTimeout
	}

	return &Driver{
		log:       log.With("component", "protocol", "framing", string(f.Name())),
		framing:   f,
		ioTimeout: ioTimeout,
	}, nil
}

// Framing returns the driver's framing name.
func (d *Driver) Framing() config.Framing {
	return d.framing.Name()
}

// Submit sends text over ch and returns the full analyzed response.
//
// The exchange is bounded by the driver's I/O timeout and by ctx. Any
// failure is reported as *errors.ProtocolError; partial output is discarded.
func (d *Driver) Submit(ctx context.Context, ch config.Channel, text string) (string, error) {
	requestID := generateRequestID()
	log := d.log.With("request_id", requestID, "remote", ch.RemoteAddr())

	log.Debug("Submitting request", "bytes", len(text))

	start := time.Now()

	stop, err := d.bound(ctx, ch)
	if err != nil {
		return "", &errors.ProtocolError{Op: "deadline", RequestID: requestID, Err: err}
	}
	defer stop()

	out, err := d.framing.Exchange(ctx, ch, text)
	if err != nil {
		err = withRequestID(ctx, err, requestID)
		log.Debug("Exchange failed", "error", err)

		return "", err
	}

	log.Debug("Received response", "bytes", len(out), "elapsed", time.Since(start))

	return out, nil
}

// Command sends a server control message over ch and returns its reply.
// Returns errors.ErrUnsupportedFraming when the framing cannot carry commands.
func (d *Driver) Command(ctx context.Context, ch config.Channel, command string) (string, error) {
	commander, ok := d.framing.(Commander)
	if !ok {
		return "", fmt.Errorf("%w: %s cannot send %s", errors.ErrUnsupportedFraming, d.framing.Name(), command)
	}

	requestID := generateRequestID()
	d.log.Debug("Sending server command", "request_id", requestID, "command", command)

	stop, err := d.bound(ctx, ch)
	if err != nil {
		return "", &errors.ProtocolError{Op: "deadline", RequestID: requestID, Err: err}
	}
	defer stop()

	reply, err := commander.Command(ctx, ch, command)
	if err != nil {
		return "", withRequestID(ctx, err, requestID)
	}

	return reply, nil
}

// bound applies the exchange deadline to ch and arranges for ctx
// cancellation to interrupt blocked reads and writes.
func (d *Driver) bound(ctx context.Context, ch config.Channel) (func(), error) {
	deadline := time.Now().Add(d.ioTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := ch.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ch.SetDeadline(time.Unix(1, 0))
	})

	return func() { stop() }, nil
}

// withRequestID stamps the request id on a ProtocolError and replaces a
// deadline error caused by cancellation with the context's error.
func withRequestID(ctx context.Context, err error, requestID string) error {
	protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
	if !ok {
		return err
	}

	protoErr.RequestID = requestID

	if ctx.Err() != nil {
		protoErr.Err = fmt.Errorf("%w (%v)", ctx.Err(), protoErr.Err)
	}

	return protoErr
}

// generateRequestID creates a unique request ID using ULID.
func generateRequestID() string {
	return ulid.Make().String()
}
