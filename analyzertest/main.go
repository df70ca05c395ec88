package analyzertest

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/config"
)

// ServerProcessEnv marks a test binary re-executed as a fake server.
const ServerProcessEnv = "ANALYZERTEST_SERVER_PROCESS"

// IsServerProcess reports whether the current process was launched to act
// as a fake server rather than to run tests.
func IsServerProcess() bool {
	return os.Getenv(ServerProcessEnv) == "1"
}

// ServerProcessEnvironment returns the environment that makes a re-executed
// test binary run Main.
func ServerProcessEnvironment() map[string]string {
	return map[string]string{ServerProcessEnv: "1"}
}

// Main runs a fake analysis server process and returns its exit code.
//
// args follow the analyzer_server convention: the port comes first, the
// remaining arguments configure the server. A "--port N" flag is accepted
// instead of the positional port. Recognized flags:
//
//	--framing close|message   wire framing (default close)
//	--utf, -f <cfg>           accepted and ignored, like a real config
//	--startup-delay d         sleep before listening
//	--no-listen               never listen (startup timeout)
//	--exit-code n             print to stderr and exit immediately
//	--die-after n             exit with code 3 after serving n connections
//	--ignore-term             ignore SIGTERM (forces a SIGKILL)
//
// Readiness probes count as served connections. The server stops cleanly on
// SIGTERM or SIGINT.
func Main(args []string) int {
	return run(args, os.Stderr)
}

func run(args []string, stderr io.Writer) int {
	port := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		port, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("fake-analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		portFlag     = fs.String("port", "", "listening port")
		framing      = fs.String("framing", string(config.FramingClose), "wire framing")
		cfgFile      = fs.String("f", "", "configuration file (ignored)")
		_            = fs.Bool("utf", false, "UTF-8 mode (ignored)")
		startupDelay = fs.Duration("startup-delay", 0, "delay before listening")
		noListen     = fs.Bool("no-listen", false, "never listen")
		exitCode     = fs.Int("exit-code", 0, "exit immediately with this code")
		dieAfter     = fs.Int("die-after", 0, "exit after serving this many connections")
		ignoreTerm   = fs.Bool("ignore-term", false, "ignore SIGTERM")
	)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *portFlag != "" {
		port = *portFlag
	}

	if *exitCode != 0 {
		fmt.Fprintf(stderr, "fake-analyzer: cannot open config file %q\n", *cfgFile)

		return *exitCode
	}

	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		fmt.Fprintf(stderr, "Wrong port number %q\n", port)

		return 2
	}

	f, err := config.ParseFraming(*framing)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}

	stopSignals := []os.Signal{syscall.SIGTERM, syscall.SIGINT}
	if *ignoreTerm {
		signal.Ignore(syscall.SIGTERM)
		stopSignals = stopSignals[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), stopSignals...)
	defer stop()

	if *noListen {
		<-ctx.Done()

		return 0
	}

	if *startupDelay > 0 {
		select {
		case <-time.After(*startupDelay):
		case <-ctx.Done():
			return 0
		}
	}

	srv, err := Start(net.JoinHostPort("127.0.0.1", port), f, nil)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR on binding: %v\n", err)

		return 1
	}
	defer srv.Close()

	fmt.Fprintln(stderr, "SERVER: Analyzers loaded.")

	if *dieAfter > 0 {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for srv.Requests() < *dieAfter {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return 0
			}
		}

		fmt.Fprintln(stderr, "SERVER: crashing on purpose")

		return 3
	}

	<-ctx.Done()
	fmt.Fprintln(stderr, "SERVER: Signal received. Stopping")

	return 0
}

// Executable returns the running test binary, to be launched as the server
// binary together with ServerProcessEnvironment.
func Executable(tb testing.TB) string {
	tb.Helper()

	path, err := os.Executable()
	if err != nil {
		tb.Fatalf("analyzertest: locate test binary: %v", err)
	}

	return path
}

// FreePort returns a loopback port that was free when it was checked.
func FreePort(tb testing.TB) uint16 {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("analyzertest: find free port: %v", err)
	}
	defer ln.Close()

	return uint16(ln.Addr().(*net.TCPAddr).Port)
}
