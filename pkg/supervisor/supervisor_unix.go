//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// platformPreStart has nothing to add on Unix: no job object or process
// group is set up, so the child stays in the parent's process group and
// Stop signals only the child itself.
func platformPreStart(h *Handle) error {
	return nil
}

// platformTerminate sends SIGTERM, the graceful shutdown signal every
// engine in the spec table handles.
func platformTerminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}
