package subprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// PIDFile records the PID of a launched server so a detached server can be
// found and stopped later.
type PIDFile struct {
	path string
}

// NewPIDFile creates a PID file handle for path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Write stores pid, creating parent directories as needed.
func (p *PIDFile) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}

	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	return nil
}

// Read returns the stored PID.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in %s: %q", p.path, strings.TrimSpace(string(data)))
	}

	return pid, nil
}

// Remove deletes the file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}

	return nil
}

// Path returns the file path.
func (p *PIDFile) Path() string {
	return p.path
}

// StopRecorded stops the server whose PID is stored in p, the way Stop does
// for an owned process: SIGTERM, then SIGKILL after grace. The file is
// removed once the process is gone.
func StopRecorded(ctx context.Context, p *PIDFile, grace time.Duration) (int, error) {
	pid, err := p.Read()
	if err != nil {
		return 0, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, fmt.Errorf("find process %d: %w", pid, err)
	}

	if processAlive(pid) {
		if err := signalProcess(proc, syscall.SIGTERM); err != nil {
			return pid, fmt.Errorf("signal process %d: %w", pid, err)
		}

		if !waitExit(ctx, pid, grace) {
			_ = signalProcess(proc, os.Kill)

			if !waitExit(ctx, pid, grace) {
				return pid, fmt.Errorf("process %d did not exit", pid)
			}
		}
	}

	return pid, p.Remove()
}

// waitExit polls until pid is gone, ctx ends or timeout elapses.
func waitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for processAlive(pid) {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}

	return true
}
