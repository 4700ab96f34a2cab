package supervisor

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"
)

func sleepCommand() (exe string, argv []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", "timeout /T 30"}
	}
	return "sleep", []string{"30"}
}

func TestSpawnIsRunningAndStop(t *testing.T) {
	exe, argv := sleepCommand()
	var out bytes.Buffer
	h, err := Spawn(context.Background(), exe, argv, SpawnOptions{Stdout: &out, Stderr: &out})
	if err != nil {
		t.Skipf("cannot spawn %s on this host: %v", exe, err)
	}

	if !h.IsRunning() {
		t.Fatal("expected process to be running immediately after spawn")
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Fatal("expected process to have exited after Stop()")
	}

	// Idempotent: stopping an already-stopped handle is a no-op.
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestSpawnExitsOnItsOwn(t *testing.T) {
	exe, argv := "true", []string{}
	if runtime.GOOS == "windows" {
		exe, argv = "cmd", []string{"/C", "exit 0"}
	}
	h, err := Spawn(context.Background(), exe, argv, SpawnOptions{})
	if err != nil {
		t.Skipf("cannot spawn %s: %v", exe, err)
	}

	select {
	case <-h.exitedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit in time")
	}
	if h.IsRunning() {
		t.Fatal("expected IsRunning() == false after natural exit")
	}
}
