// Package analyzertest provides a fake analysis server for tests.
//
// Server speaks both wire framings over a loopback TCP listener. Main turns
// a test binary into a stand-alone server process so supervisor tests can
// launch it exactly like a real analyzer_server:
//
//	func TestMain(m *testing.M) {
//	    if analyzertest.IsServerProcess() {
//	        os.Exit(analyzertest.Main(os.Args[1:]))
//	    }
//	    os.Exit(m.Run())
//	}
package analyzertest

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wagiedev/analyzer-client-go/internal/config"
)

// Control messages of the FreeLing socket protocol.
const (
	readyReply   = "FL-SERVER-READY"
	resetStats   = "RESET_STATS"
	printStats   = "PRINT_STATS"
	terminatorCh = '\x00'
)

// Handler turns input text into analyzed output.
//
// In close framing it receives the whole request. In message framing it
// receives one line at a time; an empty result is answered with the ready
// sentinel.
type Handler func(input string) string

// Annotate is the default Handler. It emits one "form lemma tag" line per
// whitespace-separated token and a blank line after every non-empty input
// line, mimicking a tagger's output format.
func Annotate(input string) string {
	var b strings.Builder

	for line := range strings.SplitSeq(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		for _, f := range fields {
			b.WriteString(f)
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(f))
			b.WriteString(" W\n")
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// Server is a fake analysis server listening on 127.0.0.1.
type Server struct {
	ln      net.Listener
	framing config.Framing
	handler Handler

	requests atomic.Int64
	words    atomic.Int64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves until Close.
func Start(addr string, framing config.Framing, handler Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	if handler == nil {
		handler = Annotate
	}

	if framing == "" {
		framing = config.FramingClose
	}

	s := &Server{
		ln:      ln,
		framing: framing,
		handler: handler,
	}

	s.wg.Go(s.acceptLoop)

	return s, nil
}

// New starts a Server on a free port and closes it when the test ends.
func New(tb testing.TB, framing config.Framing, handler Handler) *Server {
	tb.Helper()

	s, err := Start("127.0.0.1:0", framing, handler)
	if err != nil {
		tb.Fatalf("analyzertest: start server: %v", err)
	}

	tb.Cleanup(s.Close)

	return s
}

// Addr returns the "host:port" the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Port returns the listening port.
func (s *Server) Port() uint16 {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.ParseUint(port, 10, 16)

	return uint16(n)
}

// Requests returns how many connections have been served.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// Close stops accepting and waits for in-flight connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		_ = s.ln.Close()
		s.wg.Wait()
	})
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.wg.Go(func() {
			defer conn.Close()

			s.serve(conn)
			s.requests.Add(1)
		})
	}
}

func (s *Server) serve(conn net.Conn) {
	if s.framing == config.FramingMessage {
		s.serveMessages(conn)

		return
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return
	}

	s.words.Add(int64(len(strings.Fields(string(data)))))
	_, _ = io.WriteString(conn, s.handler(string(data)))
}

// serveMessages answers every NUL-terminated message with one reply and
// sends a final flush reply when the client half-closes.
func (s *Server) serveMessages(conn net.Conn) {
	r := bufio.NewReader(conn)

	for {
		msg, err := r.ReadString(terminatorCh)
		if err != nil {
			break
		}

		msg = msg[:len(msg)-1]

		var reply string

		switch msg {
		case resetStats:
			s.words.Store(0)
		case printStats:
			reply = "Words: " + strconv.FormatInt(s.words.Load(), 10) + "\n"
		default:
			s.words.Add(int64(len(strings.Fields(msg))))
			reply = s.handler(msg)
		}

		if err := writeMessage(conn, reply); err != nil {
			return
		}
	}

	_ = writeMessage(conn, "")
}

func writeMessage(w io.Writer, reply string) error {
	if reply == "" {
		reply = readyReply
	}

	_, err := io.WriteString(w, reply+string(terminatorCh))

	return err
}
