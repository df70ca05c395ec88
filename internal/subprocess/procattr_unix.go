//go:build !windows

package subprocess

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcessGroup runs the server in its own process group so that
// signals reach any helper processes it spawns, and so a terminal's SIGINT
// does not reach it behind the supervisor's back.
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals the whole process group led by proc, falling back to
// proc alone.
func signalGroup(proc *os.Process, sig os.Signal) error {
	if s, ok := sig.(syscall.Signal); ok && proc.Pid > 0 {
		if err := syscall.Kill(-proc.Pid, s); err == nil {
			return nil
		}
	}

	return proc.Signal(sig)
}

// processAlive reports whether pid exists, using the null signal.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
