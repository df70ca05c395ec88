// Command fl-analyze sends text to a FreeLing-style analysis server, either
// one already running or one it launches for the duration of the command.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	analyzer "github.com/wagiedev/analyzer-client-go"
	"github.com/wagiedev/analyzer-client-go/internal/config"
)

var (
	flagConfig     string
	flagServer     string
	flagLaunchPort uint16
	flagLaunchArgs string
	flagServerBin  string
	flagFraming    string
	flagTimeout    time.Duration
	flagLogLevel   string
	flagPIDFile    string
	flagDetach     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fl-analyze",
		Short:         "Client for FreeLing-style analysis servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagServer, "server", envOrDefault("FL_ANALYZE_SERVER", ""), "Connect to a running server at host:port")
	flags.Uint16Var(&flagLaunchPort, "launch-port", 0, "Launch a local server on this port")
	flags.StringVar(&flagLaunchArgs, "launch-args", "", "Arguments passed verbatim to the launched server")
	flags.StringVar(&flagServerBin, "server-bin", "", "Server binary (default: search PATH)")
	flags.StringVar(&flagFraming, "framing", "", "Wire framing: close or message")
	flags.DurationVar(&flagTimeout, "timeout", 0, "Bound on one request/response exchange")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&flagPIDFile, "pid-file", "", "Record the launched server's PID here")
	flags.BoolVar(&flagDetach, "detach", false, "Leave the launched server running on exit")

	root.AddCommand(
		newTextCmd(),
		newFileCmd(),
		newBatchCmd(),
		newWatchCmd(),
		newStatsCmd(),
		newResetStatsCmd(),
		newMCPCmd(),
		newStopCmd(),
	)

	return root
}

// settings is the resolved endpoint and client configuration of a command.
type settings struct {
	endpoint analyzer.Endpoint
	options  []analyzer.Option
	log      *slog.Logger
}

// resolveSettings merges the config file with the command line. Flags win.
func resolveSettings() (*settings, error) {
	options := &config.Options{}
	level := ""

	var (
		endpoint analyzer.Endpoint
		haveEP   bool
	)

	if flagConfig != "" {
		f, err := config.LoadFile(flagConfig)
		if err != nil {
			return nil, err
		}

		if err := f.Apply(options); err != nil {
			return nil, fmt.Errorf("config %s: %w", flagConfig, err)
		}

		if f.Server != "" || f.Launch != nil {
			endpoint, err = f.Endpoint()
			if err != nil {
				return nil, fmt.Errorf("config %s: %w", flagConfig, err)
			}

			haveEP = true
		}

		level = f.LogLevel
	}

	switch {
	case flagServer != "" && flagLaunchPort != 0:
		return nil, errors.New("--server and --launch-port are mutually exclusive")
	case flagServer != "":
		ep, err := analyzer.ParseEndpoint(flagServer)
		if err != nil {
			return nil, err
		}

		endpoint, haveEP = ep, true
	case flagLaunchPort != 0:
		endpoint, haveEP = analyzer.LaunchEndpoint(flagLaunchPort, flagLaunchArgs), true
	}

	if !haveEP {
		return nil, errors.New("no server: use --server, --launch-port or a config file")
	}

	if flagFraming != "" {
		framing, err := analyzer.ParseFraming(flagFraming)
		if err != nil {
			return nil, err
		}

		options.Framing = framing
	}

	if flagTimeout > 0 {
		options.IOTimeout = flagTimeout
	}

	if flagServerBin != "" {
		options.ServerPath = flagServerBin
	}

	if flagPIDFile != "" {
		options.PIDFile = flagPIDFile
	}

	if flagDetach {
		options.ShutdownPolicy = analyzer.ShutdownDetach
	}

	if flagLogLevel != "" {
		level = flagLogLevel
	}

	log, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	options.Logger = log

	return &settings{
		endpoint: endpoint,
		options:  []analyzer.Option{analyzer.WithConfig(options)},
		log:      log,
	}, nil
}

// newLogger logs to stderr at level. An empty level means warn.
func newLogger(level string) (*slog.Logger, error) {
	lvl := slog.LevelWarn

	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// withClient resolves the settings and runs fn with a client, closing it afterwards.
func withClient(ctx context.Context, fn func(analyzer.Client) error) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}

	return analyzer.WithClient(ctx, s.endpoint, fn, s.options...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
