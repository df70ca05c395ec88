// Package protocol implements the request/response exchange with an analysis server.
//
// The protocol is strictly half-duplex: one request, one complete response,
// no pipelining. How the boundaries of a request and its response are marked
// depends on the Framing:
//
//   - close framing writes the whole text, half-closes the connection, and
//     reads until the server closes its side.
//   - message framing sends every input line as a NUL-terminated message and
//     reads one NUL-terminated reply per line. Replies equal to the
//     FL-SERVER-READY sentinel carry no output and are dropped. After the
//     last line the client half-closes and collects the server's final
//     flush replies until EOF.
//
// Example usage:
//
//	driver, err := protocol.NewDriver(log, config.FramingMessage, 5*time.Minute)
//	ch, err := dialer.Dial(ctx, "localhost:12345")
//	defer ch.Close()
//	out, err := driver.Submit(ctx, ch, "los niños comen pescado")
package protocol
