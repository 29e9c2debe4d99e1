//go:build !windows

package terminal

import (
	"errors"
	"io"
	"os/exec"

	"golang.org/x/sys/unix"
)

// killProcessGroup sends SIGKILL to the session leader's process group so
// that jobs started from the shell go down with it.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return cmd.Process.Kill()
}

// isEndOfStream reports whether a read error from the PTY master means the
// slave side was closed. Linux reports that as EIO rather than EOF.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EIO)
}
