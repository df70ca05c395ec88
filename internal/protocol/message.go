package protocol

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// terminator ends every message in both directions.
const terminator = '\x00'

// messageFraming speaks the FreeLing socket protocol: one NUL-terminated
// message per input line, one NUL-terminated reply per message.
type messageFraming struct{}

func (messageFraming) Name() config.Framing { return config.FramingMessage }

func (messageFraming) Exchange(_ context.Context, ch config.Channel, text string) (string, error) {
	if strings.IndexByte(text, terminator) >= 0 {
		return "", &errors.ProtocolError{Op: "encode", Err: ErrInvalidPayload}
	}

	conv := newConversation(ch)

	for _, line := range splitLines(text) {
		reply, err := conv.roundTrip(line)
		if err != nil {
			return "", err
		}

		conv.collect(reply)
	}

	if err := conv.finish(); err != nil {
		return "", err
	}

	return conv.out.String(), nil
}

func (messageFraming) Command(_ context.Context, ch config.Channel, command string) (string, error) {
	conv := newConversation(ch)

	reply, err := conv.roundTrip(command)
	if err != nil {
		return "", err
	}

	// The server flushes its (empty) splitter buffer once input ends; that
	// reply belongs to no command and is discarded.
	if err := conv.finish(); err != nil {
		return "", err
	}

	if reply == ServerReady {
		return "", nil
	}

	return reply, nil
}

// conversation tracks one connection's worth of message exchange.
type conversation struct {
	ch   config.Channel
	r    *bufio.Reader
	out  strings.Builder
	read int
}

func newConversation(ch config.Channel) *conversation {
	return &conversation{
		ch: ch,
		r:  bufio.NewReader(ch),
	}
}

// roundTrip sends one message and waits for its reply.
func (c *conversation) roundTrip(msg string) (string, error) {
	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, msg...)
	buf = append(buf, terminator)

	if _, err := c.ch.Write(buf); err != nil {
		return "", &errors.ProtocolError{Op: "write", PartialBytes: c.read, Err: err}
	}

	reply, err := c.readMessage()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return "", &errors.ProtocolError{Op: "read", PartialBytes: c.read, Err: err}
	}

	return reply, nil
}

// finish half-closes the connection and collects every remaining reply
// until the server closes its side.
func (c *conversation) finish() error {
	if err := c.ch.CloseWrite(); err != nil {
		return &errors.ProtocolError{Op: "close-write", PartialBytes: c.read, Err: err}
	}

	for {
		reply, err := c.readMessage()
		if stderrors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return &errors.ProtocolError{Op: "read", PartialBytes: c.read, Err: err}
		}

		c.collect(reply)
	}
}

// collect appends a reply to the output unless it is the ready sentinel.
func (c *conversation) collect(reply string) {
	if reply == ServerReady {
		return
	}

	c.out.WriteString(reply)
}

// readMessage reads up to and excluding the next terminator. A clean EOF
// before any byte returns io.EOF; EOF inside a message is an error.
func (c *conversation) readMessage() (string, error) {
	msg, err := c.r.ReadString(terminator)
	c.read += len(msg)

	if err != nil {
		if stderrors.Is(err, io.EOF) && msg != "" {
			return "", io.ErrUnexpectedEOF
		}

		return "", err
	}

	return msg[:len(msg)-1], nil
}

// splitLines splits text into the lines a line reader would produce: a
// single trailing newline does not start an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.TrimSuffix(text, "\n")

	return strings.Split(text, "\n")
}
