package protocol

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// writeBufferSize is the buffer used to stream request bodies.
const writeBufferSize = 32 * 1024

// closeFraming marks the end of a request by half-closing the connection and
// the end of a response by the server closing its side.
type closeFraming struct{}

func (closeFraming) Name() config.Framing { return config.FramingClose }

// Exchange writes and reads concurrently so a server that streams output
// while still consuming input cannot deadlock against a large request.
func (closeFraming) Exchange(ctx context.Context, ch config.Channel, text string) (string, error) {
	g, gCtx := errgroup.WithContext(ctx)

	// A failed writer must unblock the reader and vice versa.
	stop := context.AfterFunc(gCtx, func() {
		if ctx.Err() == nil {
			_ = ch.SetDeadline(time.Unix(1, 0))
		}
	})
	defer stop()

	g.Go(func() error {
		w := bufio.NewWriterSize(ch, writeBufferSize)

		if _, err := io.WriteString(w, text); err != nil {
			return &errors.ProtocolError{Op: "write", Err: err}
		}

		if err := w.Flush(); err != nil {
			return &errors.ProtocolError{Op: "write", Err: err}
		}

		if err := ch.CloseWrite(); err != nil {
			return &errors.ProtocolError{Op: "close-write", Err: err}
		}

		return nil
	})

	var out strings.Builder

	g.Go(func() error {
		n, err := io.Copy(&out, ch)
		if err != nil {
			return &errors.ProtocolError{Op: "read", PartialBytes: int(n), Err: err}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	return out.String(), nil
}
