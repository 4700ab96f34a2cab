//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"

	winjob "github.com/kolesnikovae/go-winjob"
)

// platformPreStart creates a Windows job object (Spawn assigns the child to
// it right after cmd.Start) configured to kill all member processes when the job handle is
// closed, so a forceful Stop also reaps any grandchildren the engine
// spawns (common for Python-backed engines that fork worker processes).
func platformPreStart(h *Handle) error {
	job, err := winjob.Create(winjob.WithKillOnJobClose())
	if err != nil {
		return err
	}
	h.cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	h.jobSetup = func(cmd *exec.Cmd) error {
		return job.Assign(cmd.Process)
	}
	return nil
}

// platformTerminate sends a graceful close request. Windows has no SIGTERM
// equivalent for arbitrary processes; engines in the spec table accept a
// CTRL_BREAK_EVENT on their own console process group.
func platformTerminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.GenerateConsoleCtrlEvent(syscall.CTRL_BREAK_EVENT, uint32(cmd.Process.Pid))
}
