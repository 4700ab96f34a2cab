// Package supervisor implements the Process Supervisor (C5) and Port
// Allocator (C6): spawning engine subprocesses, tracking liveness, and
// stopping them with a grace period before a forceful kill.
package supervisor

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/logging"
)

// gracePeriod is how long Stop waits for a graceful exit before escalating
// to a forceful kill.
const gracePeriod = 5 * time.Second

// SpawnOptions configures how a child is launched and how its stdio is
// handled.
type SpawnOptions struct {
	Dir    string
	Env    []string // appended to the host environment, never replacing it
	Stdout io.Writer
	Stderr io.Writer

	// FilterHealthLogs, when set, wraps Stdout/Stderr in a
	// logging.FilteringWriter that drops lines the caller doesn't want
	// surfaced (typically readiness-probe access-log noise).
	FilterHealthLogs func(line string) bool
}

// Handle tracks a spawned child process.
type Handle struct {
	cmd      *exec.Cmd
	mu       sync.Mutex
	exited   bool
	exitedCh chan struct{}
	jobSetup func(*exec.Cmd) error // platform hook, see supervisor_windows.go
}

// Spawn starts exe with argv under opts and returns a Handle. The context
// governs the lifetime of the process: cancelling ctx kills it.
func Spawn(ctx context.Context, exePath string, argv []string, opts SpawnOptions) (*Handle, error) {
	cmd := exec.CommandContext(ctx, exePath, argv...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	stdout := opts.Stdout
	stderr := opts.Stderr
	if opts.FilterHealthLogs != nil {
		if stdout != nil {
			stdout = logging.NewFilteringWriter(stdout, opts.FilterHealthLogs)
		}
		if stderr != nil {
			stderr = logging.NewFilteringWriter(stderr, opts.FilterHealthLogs)
		}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	h := &Handle{cmd: cmd, exitedCh: make(chan struct{})}
	if err := platformPreStart(h); err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	if h.jobSetup != nil {
		if err := h.jobSetup(cmd); err != nil {
			_ = cmd.Process.Kill()
			return nil, err
		}
	}

	go func() {
		_ = cmd.Wait()
		h.mu.Lock()
		h.exited = true
		h.mu.Unlock()
		close(h.exitedCh)
	}()

	return h, nil
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// IsRunning reports whether the child has not yet exited. It never blocks.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.exited
}

// Stop sends a graceful termination signal, waits up to gracePeriod, and
// force-kills if the process is still alive. Stopping an already-stopped
// handle is a no-op.
func (h *Handle) Stop() error {
	if !h.IsRunning() {
		return nil
	}

	if err := platformTerminate(h.cmd); err != nil && h.IsRunning() {
		// Signal delivery failed for a reason other than "already
		// exited"; fall straight through to force-kill below.
	}

	select {
	case <-h.exitedCh:
		return nil
	case <-time.After(gracePeriod):
	}

	if !h.IsRunning() {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && h.IsRunning() {
		return err
	}
	<-h.exitedCh
	return nil
}

// Wait blocks until the child exits.
func (h *Handle) Wait() {
	<-h.exitedCh
}
