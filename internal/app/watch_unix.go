//go:build !windows

package app

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// shutdownSignals are the OS signals that trigger graceful shutdown.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// stopDaemon reads the PID file and sends SIGTERM to the running daemon.
func stopDaemon(w io.Writer, storageDir string) error {
	pid, err := readPID(storageDir)
	if err != nil {
		return errors.Wrap(err, "no daemon running (could not read PID file)")
	}

	if !processExists(pid) {
		// Clean up stale PID file.
		os.Remove(pidFilePath(storageDir))
		return errors.Newf("no daemon running (PID %d is not active, cleaned up stale PID file)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return errors.Wrapf(err, "failed to stop daemon (PID %d)", pid)
	}

	// Remove PID file after successful signal.
	os.Remove(pidFilePath(storageDir))
	fmt.Fprintf(w, "Stopped daemon (PID %d)\n", pid)
	return nil
}

// processExists checks whether a process with the given PID is running.
func processExists(pid int) bool {
	// Sending signal 0 checks for process existence without actually signaling.
	err := syscall.Kill(pid, 0)
	return err == nil
}
