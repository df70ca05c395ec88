package analyzer

import (
	"context"
	"time"

	"github.com/wagiedev/analyzer-client-go/internal/subprocess"
)

// StopDetached stops a server left running by ShutdownDetach, using the PID
// recorded through WithPIDFile. It sends SIGTERM, escalates to SIGKILL after
// grace, and removes the file once the process is gone. Returns the PID.
func StopDetached(ctx context.Context, pidFile string, grace time.Duration) (int, error) {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return subprocess.StopRecorded(ctx, subprocess.NewPIDFile(pidFile), grace)
}
