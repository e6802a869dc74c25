//go:build unix

package pipeline

import (
	"os/exec"
	"syscall"
)

// setGracefulShutdown makes a canceled command receive SIGINT first.
func setGracefulShutdown(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
}
