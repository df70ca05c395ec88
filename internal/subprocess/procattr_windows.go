//go:build windows

package subprocess

import (
	"os"
	"os/exec"
)

func configureProcessGroup(cmd *exec.Cmd) {
	_ = cmd
}

// signalGroup kills proc; Windows has no SIGTERM.
func signalGroup(proc *os.Process, sig os.Signal) error {
	_ = sig

	return proc.Kill()
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	_ = proc.Release()

	return true
}
