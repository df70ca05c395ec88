package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/config"
	"github.com/wagiedev/analyzer-client-go/internal/errors"
	"github.com/wagiedev/analyzer-client-go/internal/server"
	"github.com/wagiedev/analyzer-client-go/internal/transport"
)

// maxStderrBufferSize caps the retained stderr. Reading continues past the
// cap (the callback receives every line) but the buffer stops growing.
const maxStderrBufferSize = 1024 * 1024

// State is the lifecycle state of the supervised process.
type State int32

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota
	// StateStarting means the process runs but is not accepting connections yet.
	StateStarting
	// StateReady means the server accepts connections.
	StateReady
	// StateTerminated means the process has exited.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Supervisor launches one analysis server process and owns it until Stop or Detach.
type Supervisor struct {
	log      *slog.Logger
	endpoint config.Endpoint
	options  *config.Options

	path string
	args []string
	cmd  *exec.Cmd

	state    atomic.Int32
	started  atomic.Bool
	stopping atomic.Bool
	detached atomic.Bool

	stopOnce sync.Once
	done     chan struct{}
	exitErr  error // written before done is closed

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
	stderrWg  sync.WaitGroup

	pidFile *PIDFile
}

// New creates a supervisor for a launch-mode endpoint. Nothing is started
// until Start is called.
func New(log *slog.Logger, endpoint config.Endpoint, options *config.Options) *Supervisor {
	options = options.WithDefaults()

	s := &Supervisor{
		log:      log.With("component", "supervisor", "port", endpoint.Port),
		endpoint: endpoint,
		options:  options,
		done:     make(chan struct{}),
	}

	if options.PIDFile != "" {
		s.pidFile = NewPIDFile(options.PIDFile)
	}

	return s
}

// Start launches the server and blocks until it accepts connections.
//
// Returns *errors.LaunchError when the binary cannot be found or started,
// the port is already taken, or the process exits during startup, and *errors.StartupTimeoutError when the
// server does not listen within the startup timeout; the process has then
// been killed. ctx only bounds startup, not the lifetime of the server.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrSupervisorStarted
	}

	s.log.Info("Starting analysis server")

	path, err := server.NewDiscoverer(&server.Config{
		ServerPath: s.options.ServerPath,
		Logger:     s.log,
	}).Discover(ctx)
	if err != nil {
		s.finishIdle()

		return &errors.LaunchError{Err: err}
	}

	args, err := server.BuildArgs(s.endpoint.Port, s.endpoint.LaunchArgs, s.options.PortFlag)
	if err != nil {
		s.finishIdle()

		return &errors.LaunchError{Path: path, Err: err}
	}

	s.path, s.args = path, args
	s.log.Debug("Built server command", "path", path, "args", args)

	// A foreign listener would answer the readiness probes for a child that
	// cannot bind.
	if err := transport.Probe(ctx, s.endpoint.Address(), s.options.ReadyPollInterval); err == nil {
		s.log.Error("Port already in use", "address", s.endpoint.Address())
		s.finishIdle()

		return &errors.LaunchError{
			Path: path,
			Args: args,
			Err:  fmt.Errorf("%w: %s", errors.ErrPortInUse, s.endpoint.Address()),
		}
	}

	//nolint:gosec // G204: launching the configured server binary is the point
	cmd := exec.Command(path, args...)
	cmd.Dir = s.options.Cwd
	cmd.Env = server.BuildEnvironment(s.options.Env)
	configureProcessGroup(cmd)

	// A detached server outlives this process, so it must not inherit a
	// pipe that breaks when we exit.
	var stderr io.ReadCloser

	if s.options.ShutdownPolicy != config.ShutdownDetach {
		stderr, err = cmd.StderrPipe()
		if err != nil {
			s.finishIdle()

			return &errors.LaunchError{Path: path, Args: args, Err: fmt.Errorf("stderr pipe: %w", err)}
		}
	}

	if err := cmd.Start(); err != nil {
		s.log.Error("Failed to start server process", "error", err)
		s.finishIdle()

		return &errors.LaunchError{Path: path, Args: args, Err: err}
	}

	s.cmd = cmd
	s.state.Store(int32(StateStarting))
	s.log.Info("Analysis server process started", "pid", cmd.Process.Pid)

	if stderr != nil {
		s.stderrWg.Go(func() { s.pumpStderr(stderr) })
	}

	go s.wait()

	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.state.CompareAndSwap(int32(StateStarting), int32(StateReady))
	s.log.Info("Analysis server ready", "pid", cmd.Process.Pid, "address", s.endpoint.Address())

	if s.pidFile != nil {
		if err := s.pidFile.Write(cmd.Process.Pid); err != nil {
			s.log.Warn("Failed to write PID file", "path", s.pidFile.Path(), "error", err)
		}
	}

	return nil
}

// waitReady polls the server port until it accepts a connection, the
// process exits, or the startup timeout elapses.
func (s *Supervisor) waitReady(ctx context.Context) error {
	timeout := s.options.StartupTimeout

	startCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(s.options.ReadyPollInterval)
	defer ticker.Stop()

	address := s.endpoint.Address()

	for {
		if err := transport.Probe(startCtx, address, s.options.ReadyPollInterval); err == nil {
			select {
			case <-s.done:
				// Something else owns the port and our child already died.
			default:
				return nil
			}
		}

		select {
		case <-s.done:
			s.log.Error("Server exited during startup", "error", s.exitErr)

			return &errors.LaunchError{Path: s.path, Args: s.args, Err: s.exitErr}

		case <-startCtx.Done():
			s.kill()

			if ctx.Err() != nil {
				return &errors.LaunchError{Path: s.path, Args: s.args, Err: ctx.Err()}
			}

			s.log.Error("Server did not become ready", "timeout", timeout)

			return &errors.StartupTimeoutError{
				Port:    s.endpoint.Port,
				Timeout: timeout,
				Stderr:  s.Stderr(),
			}

		case <-ticker.C:
		}
	}
}

// wait reaps the process and records how it ended. It is the only caller
// of cmd.Wait.
func (s *Supervisor) wait() {
	// All reads from the stderr pipe must complete before Wait.
	s.stderrWg.Wait()

	err := s.cmd.Wait()

	if s.stopping.Load() {
		s.log.Debug("Server process terminated during shutdown")
	} else {
		exitCode := 0
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		if err == nil {
			err = errors.ErrServerNotRunning
		}

		s.exitErr = &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(s.Stderr()),
			Err:      err,
		}

		s.log.Error("Server process exited unexpectedly", "exit_code", exitCode, "error", err)
	}

	s.state.Store(int32(StateTerminated))
	close(s.done)
}

func (s *Supervisor) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()

		s.stderrMu.Lock()
		if s.stderrBuf.Len() < maxStderrBufferSize {
			s.stderrBuf.WriteString(line)
			s.stderrBuf.WriteByte('\n')
		}
		s.stderrMu.Unlock()

		if s.options.Stderr != nil {
			s.options.Stderr(line)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug("Stderr scanner error", "error", err)
	}
}

// finishIdle marks a supervisor whose process never started as terminated.
func (s *Supervisor) finishIdle() {
	s.stopOnce.Do(func() {})
	s.state.Store(int32(StateTerminated))
	close(s.done)
}

// Stop terminates the server: SIGTERM, then SIGKILL once the grace period
// or ctx expires. Safe to call multiple times and after Detach, where it
// does nothing.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.cmd == nil {
			return
		}

		s.stopping.Store(true)
		defer s.removePIDFile()

		select {
		case <-s.done:
			return
		default:
		}

		s.log.Info("Stopping analysis server", "pid", s.cmd.Process.Pid)

		_ = signalProcess(s.cmd.Process, syscall.SIGTERM)

		select {
		case <-s.done:
		case <-time.After(s.options.GracePeriod):
			s.log.Warn("Server ignored SIGTERM, killing", "grace_period", s.options.GracePeriod)
			_ = signalProcess(s.cmd.Process, os.Kill)
			<-s.done
		case <-ctx.Done():
			_ = signalProcess(s.cmd.Process, os.Kill)
			<-s.done
		}
	})

	// A detached process is not ours to wait for.
	if s.started.Load() && s.cmd != nil && !s.detached.Load() {
		<-s.done
	}

	return nil
}

func (s *Supervisor) removePIDFile() {
	if s.pidFile == nil {
		return
	}

	if err := s.pidFile.Remove(); err != nil {
		s.log.Warn("Failed to remove PID file", "error", err)
	}
}

// kill forcefully terminates the process during a failed startup and waits
// for the wait goroutine to reap it.
func (s *Supervisor) kill() {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		_ = signalProcess(s.cmd.Process, os.Kill)
	})

	<-s.done
}

// Detach releases ownership of a running server: Stop becomes a no-op and
// the process keeps running after the client exits. Returns the PID.
func (s *Supervisor) Detach() int {
	s.stopOnce.Do(func() {
		s.detached.Store(true)
	})

	if s.detached.Load() {
		s.log.Info("Detached analysis server", "pid", s.PID())
	}

	return s.PID()
}

// Alive reports whether the server process is running.
func (s *Supervisor) Alive() bool {
	st := s.State()

	return st == StateStarting || st == StateReady
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// PID returns the process id, or 0 when no process was started.
func (s *Supervisor) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}

	return s.cmd.Process.Pid
}

// Done is closed once the process has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Err returns the *errors.ProcessError of an unexpected exit, or nil while
// the process runs or when it was stopped on purpose.
func (s *Supervisor) Err() error {
	select {
	case <-s.done:
		return s.exitErr
	default:
		return nil
	}
}

// Stderr returns the captured stderr output so far.
func (s *Supervisor) Stderr() string {
	s.stderrMu.Lock()
	defer s.stderrMu.Unlock()

	return s.stderrBuf.String()
}

// signalProcess sends sig to the process group of proc, returning nil if
// the process has already exited.
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := signalGroup(proc, sig)
	if stderrors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
