package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/analyzer-client-go/analyzertest"
	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
	"github.com/wagiedev/analyzer-client-go/internal/transport"
)

func TestMain(m *testing.M) {
	if analyzertest.IsServerProcess() {
		os.Exit(analyzertest.Main(os.Args[1:]))
	}

	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connectClient starts a connect-mode client to addr and closes it when the test ends.
func connectClient(t *testing.T, addr string, opts *config.Options) *Client {
	t.Helper()

	endpoint, err := config.ParseEndpoint(addr)
	require.NoError(t, err)

	c := New()
	require.NoError(t, c.Start(context.Background(), endpoint, opts))
	t.Cleanup(func() { _ = c.Close() })

	return c
}

// launchOptions launches this test binary as the server.
func launchOptions(t *testing.T) *config.Options {
	t.Helper()

	return &config.Options{
		Logger:            discardLogger(),
		ServerPath:        analyzertest.Executable(t),
		Env:               analyzertest.ServerProcessEnvironment(),
		StartupTimeout:    10 * time.Second,
		ReadyPollInterval: 20 * time.Millisecond,
		GracePeriod:       2 * time.Second,
	}
}

func launchClient(t *testing.T, launchArgs string, opts *config.Options) (*Client, error) {
	t.Helper()

	c := New()
	t.Cleanup(func() { _ = c.Close() })

	err := c.Start(context.Background(), config.LaunchEndpoint(analyzertest.FreePort(t), launchArgs), opts)

	return c, err
}

func TestAnalyzeText_Connect(t *testing.T) {
	const text = "El perro ladra.\nLa niña corre.\n"

	for _, framing := range []config.Framing{config.FramingClose, config.FramingMessage} {
		t.Run(string(framing), func(t *testing.T) {
			srv := analyzertest.New(t, framing, nil)
			c := connectClient(t, srv.Addr(), &config.Options{Framing: framing})

			out, err := c.AnalyzeText(context.Background(), text)
			require.NoError(t, err)
			require.Equal(t, analyzertest.Annotate(text), out)
			require.Zero(t, c.ServerPID())
			require.True(t, c.ServerAlive())
		})
	}
}

func TestAnalyzeText_SequentialCallsAreIndependent(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), &config.Options{SkipConnectCheck: true})

	first, err := c.AnalyzeText(context.Background(), "uno dos")
	require.NoError(t, err)

	second, err := c.AnalyzeText(context.Background(), "tres")
	require.NoError(t, err)

	require.Equal(t, analyzertest.Annotate("uno dos"), first)
	require.Equal(t, analyzertest.Annotate("tres"), second)
	require.NotContains(t, second, "uno")
	require.Equal(t, 2, srv.Requests())
}

func TestAnalyzeText_ConcurrentCallsUseOwnChannels(t *testing.T) {
	srv := analyzertest.New(t, config.FramingMessage, nil)

	dialer := &countingDialer{next: transport.NewTCPDialer(discardLogger(), time.Second)}
	c := connectClient(t, srv.Addr(), &config.Options{
		Framing:          config.FramingMessage,
		Dialer:           dialer,
		SkipConnectCheck: true,
	})

	const calls = 16

	results := make([]string, calls)
	errs := make([]error, calls)

	var wg sync.WaitGroup
	for i := range calls {
		wg.Go(func() {
			results[i], errs[i] = c.AnalyzeText(context.Background(), fmt.Sprintf("palabra%d otra%d", i, i))
		})
	}

	wg.Wait()

	for i := range calls {
		require.NoError(t, errs[i])
		require.Equal(t, analyzertest.Annotate(fmt.Sprintf("palabra%d otra%d", i, i)), results[i])
	}

	require.EqualValues(t, calls, dialer.count.Load())
}

func TestStart_ConnectClosedPort(t *testing.T) {
	endpoint, err := config.ParseEndpoint(net.JoinHostPort("127.0.0.1", fmt.Sprint(analyzertest.FreePort(t))))
	require.NoError(t, err)

	c := New()
	err = c.Start(context.Background(), endpoint, &config.Options{DialTimeout: time.Second})

	connErr, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)
	require.Contains(t, connErr.Address, "127.0.0.1")

	_, err = c.AnalyzeText(context.Background(), "hola")
	require.ErrorIs(t, err, errors.ErrClientNotStarted)
}

func TestAnalyzeText_ServerGoneAfterStart(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), &config.Options{DialTimeout: time.Second})

	srv.Close()

	_, err := c.AnalyzeText(context.Background(), "hola")

	_, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)
}

func TestStart_InvalidEndpoint(t *testing.T) {
	err := New().Start(context.Background(), config.Endpoint{Mode: config.ModeConnect, Host: "localhost"}, nil)

	_, ok := stderrors.AsType[*errors.InvalidEndpointError](err)
	require.True(t, ok)
}

func TestStart_UnknownFraming(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	endpoint, err := config.ParseEndpoint(srv.Addr())
	require.NoError(t, err)

	err = New().Start(context.Background(), endpoint, &config.Options{Framing: "chunked"})
	require.ErrorIs(t, err, errors.ErrUnsupportedFraming)
}

func TestAnalyzeText_HungServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func() {
				defer conn.Close()
				<-release
			}()
		}
	}()

	c := connectClient(t, ln.Addr().String(), &config.Options{IOTimeout: 200 * time.Millisecond})

	start := time.Now()
	_, err = c.AnalyzeText(context.Background(), "hola")

	_, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok, "expected ProtocolError, got %v", err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestAnalyzeText_NotStarted(t *testing.T) {
	_, err := New().AnalyzeText(context.Background(), "hola")
	require.ErrorIs(t, err, errors.ErrClientNotStarted)
}

func TestClose_Idempotent(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.AnalyzeText(context.Background(), "hola")
	require.ErrorIs(t, err, errors.ErrClientClosed)

	err = c.Start(context.Background(), c.Endpoint(), nil)
	require.ErrorIs(t, err, errors.ErrClientClosed)
}

func TestAnalyzeFile(t *testing.T) {
	const text = "Los gatos duermen.\n\nEl sol brilla.\n"

	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), nil)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")

	require.NoError(t, os.WriteFile(in, []byte(text), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("stale content that is longer than nothing"), 0o644))

	require.NoError(t, c.AnalyzeFile(context.Background(), in, out))

	want, err := c.AnalyzeText(context.Background(), text)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, want, string(got), "output is overwritten, not appended")
}

func TestAnalyzeFile_MissingInput(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), &config.Options{SkipConnectCheck: true})

	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	err := c.AnalyzeFile(context.Background(), filepath.Join(dir, "missing.txt"), out)

	readErr, ok := stderrors.AsType[*errors.FileReadError](err)
	require.True(t, ok, "expected FileReadError, got %v", err)
	require.ErrorIs(t, readErr, os.ErrNotExist)
	require.NoFileExists(t, out)
	require.Zero(t, srv.Requests(), "nothing is sent to the server")
}

func TestAnalyzeFile_UnwritableOutput(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), nil)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("hola"), 0o644))

	out := filepath.Join(dir, "no", "such", "dir", "out.txt")

	err := c.AnalyzeFile(context.Background(), in, out)

	writeErr, ok := stderrors.AsType[*errors.FileWriteError](err)
	require.True(t, ok, "expected FileWriteError, got %v", err)
	require.Equal(t, out, writeErr.Path)
}

func TestAnalyzeFile_AnalysisFailureLeavesOutputAlone(t *testing.T) {
	c := connectClient(t, net.JoinHostPort("127.0.0.1", fmt.Sprint(analyzertest.FreePort(t))), &config.Options{
		SkipConnectCheck: true,
	})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("hola"), 0o644))

	err := c.AnalyzeFile(context.Background(), in, out)

	_, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok)
	require.NoFileExists(t, out)
}

func TestStats(t *testing.T) {
	srv := analyzertest.New(t, config.FramingMessage, nil)
	c := connectClient(t, srv.Addr(), &config.Options{Framing: config.FramingMessage})
	ctx := context.Background()

	require.NoError(t, c.ResetStats(ctx))

	_, err := c.AnalyzeText(ctx, "a b c d")
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, "Words: 4\n", stats)
}

func TestStats_CloseFraming(t *testing.T) {
	srv := analyzertest.New(t, config.FramingClose, nil)
	c := connectClient(t, srv.Addr(), &config.Options{SkipConnectCheck: true})

	_, err := c.Stats(context.Background())
	require.ErrorIs(t, err, errors.ErrUnsupportedFraming)
	require.Zero(t, srv.Requests())
}

func TestLaunch_AnalyzeImmediately(t *testing.T) {
	c, err := launchClient(t, "--utf -f es.cfg", launchOptions(t))
	require.NoError(t, err)
	require.Positive(t, c.ServerPID())
	require.True(t, c.ServerAlive())
	require.Equal(t, config.ModeLaunch, c.Endpoint().Mode)

	out, err := c.AnalyzeText(context.Background(), "hola mundo")
	require.NoError(t, err)
	require.Equal(t, analyzertest.Annotate("hola mundo"), out)

	supervisor := c.supervisor
	require.NoError(t, c.Close())
	require.False(t, supervisor.Alive(), "Close stops the launched server")
}

func TestLaunch_MessageFraming(t *testing.T) {
	opts := launchOptions(t)
	opts.Framing = config.FramingMessage

	c, err := launchClient(t, "--framing message", opts)
	require.NoError(t, err)

	out, err := c.AnalyzeText(context.Background(), "uno\ndos\n")
	require.NoError(t, err)
	require.Equal(t, analyzertest.Annotate("uno\ndos\n"), out)
}

func TestLaunch_InvalidArguments(t *testing.T) {
	tests := []struct {
		name       string
		launchArgs string
		timeout    time.Duration
	}{
		{name: "server rejects config", launchArgs: "-f /nonexistent.cfg --exit-code 1", timeout: 10 * time.Second},
		{name: "unknown flag", launchArgs: "--no-such-flag", timeout: 10 * time.Second},
		{name: "never listens", launchArgs: "--no-listen", timeout: 300 * time.Millisecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := launchOptions(t)
			opts.StartupTimeout = tc.timeout

			c, err := launchClient(t, tc.launchArgs, opts)
			require.Error(t, err)

			_, isLaunch := stderrors.AsType[*errors.LaunchError](err)
			_, isTimeout := stderrors.AsType[*errors.StartupTimeoutError](err)
			require.True(t, isLaunch || isTimeout, "unexpected error %T: %v", err, err)

			_, err = c.AnalyzeText(context.Background(), "hola")
			require.ErrorIs(t, err, errors.ErrClientNotStarted)
		})
	}
}

func TestLaunch_PortTakenByAnotherServer(t *testing.T) {
	other := analyzertest.New(t, config.FramingClose, nil)

	c := New()
	t.Cleanup(func() { _ = c.Close() })

	err := c.Start(context.Background(), config.LaunchEndpoint(other.Port(), ""), launchOptions(t))

	_, ok := stderrors.AsType[*errors.LaunchError](err)
	require.True(t, ok, "expected LaunchError, got %v", err)
	require.ErrorIs(t, err, errors.ErrPortInUse)
	require.Zero(t, c.ServerPID())

	_, err = c.AnalyzeText(context.Background(), "hola")
	require.ErrorIs(t, err, errors.ErrClientNotStarted)
}

func TestLaunch_MissingBinary(t *testing.T) {
	opts := launchOptions(t)
	opts.ServerPath = filepath.Join(t.TempDir(), "analyzer_server")

	_, err := launchClient(t, "", opts)

	_, ok := stderrors.AsType[*errors.ServerNotFoundError](err)
	require.True(t, ok)

	_, ok = stderrors.AsType[*errors.LaunchError](err)
	require.True(t, ok)
}

func TestLaunch_ServerDiesThenUnavailable(t *testing.T) {
	// One readiness probe plus one request.
	c, err := launchClient(t, "--die-after 2", launchOptions(t))
	require.NoError(t, err)

	_, err = c.AnalyzeText(context.Background(), "hola")
	require.NoError(t, err)

	select {
	case <-c.supervisor.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit")
	}

	require.False(t, c.ServerAlive())

	_, err = c.AnalyzeText(context.Background(), "hola")

	unavailable, ok := stderrors.AsType[*errors.ServerUnavailableError](err)
	require.True(t, ok, "expected ServerUnavailableError, got %v", err)
	require.Equal(t, c.ServerPID(), unavailable.PID)

	procErr, ok := stderrors.AsType[*errors.ProcessError](err)
	require.True(t, ok)
	require.Equal(t, 3, procErr.ExitCode)

	in := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("hola"), 0o644))

	err = c.AnalyzeFile(context.Background(), in, filepath.Join(t.TempDir(), "out.txt"))
	_, ok = stderrors.AsType[*errors.ServerUnavailableError](err)
	require.True(t, ok)
}

func TestLaunch_DetachKeepsServerRunning(t *testing.T) {
	opts := launchOptions(t)
	opts.ShutdownPolicy = config.ShutdownDetach

	c, err := launchClient(t, "", opts)
	require.NoError(t, err)

	supervisor := c.supervisor
	require.NoError(t, c.Close())
	require.True(t, supervisor.Alive())

	// The server still answers a fresh client.
	other := connectClient(t, c.Endpoint().Address(), nil)

	out, err := other.AnalyzeText(context.Background(), "sigue")
	require.NoError(t, err)
	require.Equal(t, analyzertest.Annotate("sigue"), out)

	proc, err := os.FindProcess(c.ServerPID())
	require.NoError(t, err)
	require.NoError(t, proc.Kill())

	select {
	case <-supervisor.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit")
	}
}

// countingDialer counts the channels it opens.
type countingDialer struct {
	next  config.Dialer
	count atomic.Int64
}

func (d *countingDialer) Dial(ctx context.Context, address string) (config.Channel, error) {
	d.count.Add(1)

	return d.next.Dial(ctx, address)
}
