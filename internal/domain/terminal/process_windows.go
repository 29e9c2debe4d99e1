//go:build windows

package terminal

import (
	"errors"
	"io"
	"os/exec"
)

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF)
}
