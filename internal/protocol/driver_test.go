package protocol

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/analyzer-client-go/analyzertest"
	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
	"github.com/wagiedev/analyzer-client-go/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dial opens a channel to addr and closes it when the test ends.
func dial(t *testing.T, addr string) config.Channel {
	t.Helper()

	ch, err := transport.NewTCPDialer(discardLogger(), time.Second).Dial(context.Background(), addr)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ch.Close() })

	return ch
}

func newDriver(t *testing.T, framing config.Framing, timeout time.Duration) *Driver {
	t.Helper()

	d, err := NewDriver(discardLogger(), framing, timeout)
	require.NoError(t, err)

	return d
}

// rawServer accepts one connection and hands it to fn.
func rawServer(t *testing.T, fn func(net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fn(conn)
	}()

	return ln.Addr().String()
}

func TestNewFraming(t *testing.T) {
	f, err := NewFraming(config.FramingClose)
	require.NoError(t, err)
	require.Equal(t, config.FramingClose, f.Name())

	f, err = NewFraming(config.FramingMessage)
	require.NoError(t, err)
	require.Equal(t, config.FramingMessage, f.Name())

	_, err = NewFraming("length-prefixed")
	require.ErrorIs(t, err, errors.ErrUnsupportedFraming)
}

func TestSubmit_RoundTrip(t *testing.T) {
	const text = "los niños comen pescado\nEl gato duerme.\n"

	for _, framing := range []config.Framing{config.FramingClose, config.FramingMessage} {
		t.Run(string(framing), func(t *testing.T) {
			srv := analyzertest.New(t, framing, nil)
			driver := newDriver(t, framing, 5*time.Second)

			out, err := driver.Submit(context.Background(), dial(t, srv.Addr()), text)
			require.NoError(t, err)
			require.Equal(t, analyzertest.Annotate(text), out)
			require.Contains(t, out, "niños niños W\n")
		})
	}
}

func TestSubmit_LargePayload(t *testing.T) {
	// Several megabytes in both directions: nothing may be truncated.
	line := strings.Repeat("palabra ", 64) + "\n"
	text := strings.Repeat(line, 8192)

	for _, framing := range []config.Framing{config.FramingClose, config.FramingMessage} {
		t.Run(string(framing), func(t *testing.T) {
			srv := analyzertest.New(t, framing, nil)
			driver := newDriver(t, framing, 30*time.Second)

			out, err := driver.Submit(context.Background(), dial(t, srv.Addr()), text)
			require.NoError(t, err)
			require.Equal(t, len(analyzertest.Annotate(text)), len(out))
		})
	}
}

func TestSubmit_SentinelOnlyResponse(t *testing.T) {
	srv := analyzertest.New(t, config.FramingMessage, func(string) string { return "" })
	driver := newDriver(t, config.FramingMessage, 5*time.Second)

	out, err := driver.Submit(context.Background(), dial(t, srv.Addr()), "a\nb\n")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSubmit_MessageRejectsNUL(t *testing.T) {
	srv := analyzertest.New(t, config.FramingMessage, nil)
	driver := newDriver(t, config.FramingMessage, 5*time.Second)

	_, err := driver.Submit(context.Background(), dial(t, srv.Addr()), "bad\x00text")

	protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok)
	require.Equal(t, "encode", protoErr.Op)
	require.NotEmpty(t, protoErr.RequestID)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSubmit_MessageServerClosesMidReply(t *testing.T) {
	addr := rawServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("partial"))
	})

	driver := newDriver(t, config.FramingMessage, 5*time.Second)

	_, err := driver.Submit(context.Background(), dial(t, addr), "hola")

	protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok, "expected ProtocolError, got %v", err)
	require.Equal(t, "read", protoErr.Op)
	require.Equal(t, len("partial"), protoErr.PartialBytes)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSubmit_TimeoutOnHungServer(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	addr := rawServer(t, func(net.Conn) { <-release })

	for _, framing := range []config.Framing{config.FramingClose, config.FramingMessage} {
		t.Run(string(framing), func(t *testing.T) {
			driver := newDriver(t, framing, 200*time.Millisecond)
			ch := dial(t, addr)

			start := time.Now()
			_, err := driver.Submit(context.Background(), ch, "hola")

			_, ok := stderrors.AsType[*errors.ProtocolError](err)
			require.True(t, ok, "expected ProtocolError, got %v", err)
			require.ErrorIs(t, err, os.ErrDeadlineExceeded)
			require.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestSubmit_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	addr := rawServer(t, func(net.Conn) { <-release })
	driver := newDriver(t, config.FramingClose, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := driver.Submit(ctx, dial(t, addr), "hola")
	require.ErrorIs(t, err, context.Canceled)

	_, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok)
}

func TestCommand_Stats(t *testing.T) {
	srv := analyzertest.New(t, config.FramingMessage, nil)
	driver := newDriver(t, config.FramingMessage, 5*time.Second)
	ctx := context.Background()

	reply, err := driver.Command(ctx, dial(t, srv.Addr()), CommandResetStats)
	require.NoError(t, err)
	require.Empty(t, reply)

	_, err = driver.Submit(ctx, dial(t, srv.Addr()), "uno dos tres")
	require.NoError(t, err)

	reply, err = driver.Command(ctx, dial(t, srv.Addr()), CommandPrintStats)
	require.NoError(t, err)
	require.Equal(t, "Words: 3\n", reply)
}

func TestCommand_UnsupportedByCloseFraming(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	driver := newDriver(t, config.FramingClose, 5*time.Second)

	_, err := driver.Command(context.Background(), dial(t, srv.Addr()), CommandPrintStats)
	require.ErrorIs(t, err, errors.ErrUnsupportedFraming)
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single line", in: "hola", want: []string{"hola"}},
		{name: "trailing newline", in: "hola\n", want: []string{"hola"}},
		{name: "blank line kept", in: "a\n\nb", want: []string{"a", "", "b"}},
		{name: "only newline", in: "\n", want: []string{""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, splitLines(tc.in))
		})
	}
}
