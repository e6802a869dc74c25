//go:build !unix

package pipeline

import "os/exec"

// setGracefulShutdown is a no-op where SIGINT is not available; the command
// is killed with os.Process.Kill.
func setGracefulShutdown(*exec.Cmd) {}
