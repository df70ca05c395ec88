// Package analyzer is a client for line-oriented text analysis servers such
// as the FreeLing analyzer_server.
//
// A Client either launches and supervises a local server process or
// connects to a server that is already running, submits text over TCP and
// returns the server's annotated output verbatim. The client never looks
// inside the text it sends or receives.
//
// # Launching a Server
//
// NewLaunched starts the server binary on a port with an opaque argument
// string and waits until it accepts connections:
//
//	client, err := analyzer.NewLaunched(ctx, 50005, "-f es.cfg --outlv tagged",
//	    analyzer.WithLogger(slog.Default()),
//	    analyzer.WithStartupTimeout(2*time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	out, err := client.AnalyzeText(ctx, "El gato come pescado.")
//
// Closing the client stops the server (SIGTERM, then SIGKILL after a grace
// period) unless WithShutdownPolicy(analyzer.ShutdownDetach) was given, in
// which case the server keeps running for other clients.
//
// # Connecting to a Server
//
//	client, err := analyzer.Connect("myserver.home.org:50005")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.AnalyzeFile(ctx, "in.txt", "out.txt")
//
// # Framing
//
// The wire framing is configurable with WithFraming:
//
//   - FramingClose (default): the request is written whole, the client
//     half-closes the connection, and the response is everything the server
//     sends until it closes.
//   - FramingMessage: the FreeLing socket protocol. Each input line travels
//     as one NUL-terminated message with one NUL-terminated reply; the
//     FL-SERVER-READY sentinel is dropped from the output. This framing also
//     carries the RESET_STATS and PRINT_STATS server commands.
//
// Every request uses its own connection, so a Client is safe for concurrent
// use. Every blocking step is bounded by a timeout.
//
// # Error Handling
//
// Failures are reported as distinct types that can be inspected with
// errors.As or errors.AsType:
//
//	if _, ok := errors.AsType[*analyzer.ConnectionError](err); ok {
//	    // server not reachable
//	}
//
// Available error types: LaunchError, StartupTimeoutError,
// InvalidEndpointError, ConnectionError, ProtocolError,
// ServerUnavailableError, FileReadError, FileWriteError, ServerNotFoundError
// and ProcessError. The client never retries.
package analyzer
