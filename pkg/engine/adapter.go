// Package engine implements the Wrapped-Server Adapter (C7): the shared
// base behavior every concrete engine (gpu-llama, npu-llm, diffusion,
// whisper, tts, ryzen-ai) builds on to spawn its native server subprocess,
// wait for it to become healthy, and forward HTTP requests to it.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/errs"
	"github.com/lemonade-sdk/lemon-server/pkg/logging"
	"github.com/lemonade-sdk/lemon-server/pkg/supervisor"
)

// State is an Engine Instance's readiness state.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

const readinessPollInterval = 200 * time.Millisecond

// ArgvBuilder builds a concrete engine's command-line arguments once its
// loopback port is known.
type ArgvBuilder func(port int) ([]string, error)

// Adapter is embedded by every concrete engine. It owns the subprocess
// lifecycle (port, spawn, readiness, forwarding, stop) that spec.md §4.5
// specifies once for all engine families.
type Adapter struct {
	Log     *slog.Logger
	Recipe  string
	Backend string

	// ExePath is the installed executable's absolute path.
	ExePath string
	// ReadinessPath is polled with GET until it returns 2xx.
	ReadinessPath string
	// ReadinessDeadline bounds how long Start waits before giving up.
	ReadinessDeadline time.Duration
	// FilterHealthLogs suppresses readiness-probe noise from the child's
	// log output, per spec.md §4.4.
	FilterHealthLogs func(line string) bool

	mu     sync.Mutex
	port   int
	handle *supervisor.Handle
	client *http.Client
	state  State
	model  string
	fp     string
	stdout io.WriteCloser
	stderr io.WriteCloser
}

// SuppressPath returns a FilterHealthLogs predicate that drops any child
// log line mentioning path, keeping readiness-probe polling (spec.md §4.4)
// out of the component logger.
func SuppressPath(path string) func(line string) bool {
	return func(line string) bool {
		return path != "" && strings.Contains(line, path)
	}
}

// Start chooses a port, spawns the child via the Process Supervisor, and
// polls ReadinessPath until it answers 2xx or ReadinessDeadline elapses.
func (a *Adapter) Start(ctx context.Context, build ArgvBuilder, dir string, env []string) error {
	port, err := supervisor.AllocatePort()
	if err != nil {
		return fmt.Errorf("allocate port: %w", err)
	}

	argv, err := build(port)
	if err != nil {
		return fmt.Errorf("build argv: %w", err)
	}

	stdout := logging.NewLineWriter(a.Log, slog.LevelInfo)
	stderr := logging.NewLineWriter(a.Log, slog.LevelWarn)

	a.mu.Lock()
	a.port = port
	a.state = StateStarting
	a.client = &http.Client{Timeout: 0}
	a.stdout = stdout
	a.stderr = stderr
	a.mu.Unlock()

	handle, err := supervisor.Spawn(ctx, a.ExePath, argv, supervisor.SpawnOptions{
		Dir:              dir,
		Env:              env,
		Stdout:           stdout,
		Stderr:           stderr,
		FilterHealthLogs: a.FilterHealthLogs,
	})
	if err != nil {
		a.closeChildIO()
		a.setState(StateFailed)
		return fmt.Errorf("spawn %s/%s: %w", a.Recipe, a.Backend, err)
	}

	a.mu.Lock()
	a.handle = handle
	a.mu.Unlock()

	start := time.Now()
	deadline := a.ReadinessDeadline
	if deadline <= 0 {
		deadline = 60 * time.Second
	}

	for {
		if !handle.IsRunning() {
			a.closeChildIO()
			a.setState(StateFailed)
			return &errs.EngineNotReady{Recipe: a.Recipe, Backend: a.Backend, ElapsedMs: time.Since(start).Milliseconds()}
		}
		if a.probeReady(ctx) {
			a.setState(StateReady)
			return nil
		}
		if time.Since(start) >= deadline {
			handle.Stop()
			a.closeChildIO()
			a.setState(StateFailed)
			return &errs.EngineNotReady{Recipe: a.Recipe, Backend: a.Backend, ElapsedMs: time.Since(start).Milliseconds()}
		}
		select {
		case <-ctx.Done():
			handle.Stop()
			a.closeChildIO()
			a.setState(StateFailed)
			return ctx.Err()
		case <-time.After(readinessPollInterval):
		}
	}
}

// closeChildIO releases the line-writer goroutines piping the child's
// stdout/stderr into the component logger. Safe to call more than once or
// when Start was never called.
func (a *Adapter) closeChildIO() {
	a.mu.Lock()
	stdout, stderr := a.stdout, a.stderr
	a.stdout, a.stderr = nil, nil
	a.mu.Unlock()

	if stdout != nil {
		stdout.Close()
	}
	if stderr != nil {
		stderr.Close()
	}
}

func (a *Adapter) probeReady(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL()+a.ReadinessPath, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// State returns the adapter's current readiness state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Port returns the child's loopback port, or 0 if not started.
func (a *Adapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Bind records the model name and options fingerprint this instance was
// loaded for, used by the Orchestrator's fast-path match in spec.md §4.7.1.
func (a *Adapter) Bind(model, fingerprint string) {
	a.mu.Lock()
	a.model, a.fp = model, fingerprint
	a.mu.Unlock()
}

// Matches reports whether this instance already serves (model, fingerprint).
// An empty fingerprint matches any fingerprint currently bound for model.
func (a *Adapter) Matches(model, fingerprint string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != model {
		return false
	}
	return fingerprint == "" || a.fp == fingerprint
}

func (a *Adapter) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", a.Port())
}

// ForwardUnary issues a JSON request to path and returns the child's raw
// response body, its Content-Type header, and the status code.
func (a *Adapter) ForwardUnary(ctx context.Context, method, path string, body any, timeout time.Duration) ([]byte, string, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", 0, err
		}
		reader = bytes.NewReader(data)
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, a.baseURL()+path, reader)
	if err != nil {
		return nil, "", 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", 0, &errs.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, &errs.TransportError{Cause: err}
	}
	return data, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// ForwardStreaming opens a chunked request to path and copies the child's
// response body to sink as it arrives, flushing after every chunk if sink
// supports it. The bytes are always passed through unmodified, so
// event:/data: framed bodies reach the sink as the child sent them (the
// Event Channel parser, not this adapter, interprets them).
func (a *Adapter) ForwardStreaming(ctx context.Context, method, path string, body any, sink io.Writer) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL()+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, &errs.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	flusher, _ := sink.(interface{ Flush() })
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return resp.StatusCode, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return resp.StatusCode, &errs.TransportError{Cause: readErr}
		}
	}
	return resp.StatusCode, nil
}

// MultipartField is one field of a multipart/form-data request: either a
// plain text value (Reader nil) or a named file upload.
type MultipartField struct {
	Name     string
	Value    string
	Filename string
	Reader   io.Reader
}

// ForwardMultipart builds a multipart/form-data body from fields and
// forwards it to path, returning the child's raw response and status.
func (a *Adapter) ForwardMultipart(ctx context.Context, path string, fields []MultipartField) ([]byte, int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if f.Reader != nil {
			part, err := w.CreateFormFile(f.Name, f.Filename)
			if err != nil {
				return nil, 0, err
			}
			if _, err := io.Copy(part, f.Reader); err != nil {
				return nil, 0, err
			}
			continue
		}
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, 0, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL()+path, &buf)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, &errs.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &errs.TransportError{Cause: err}
	}
	return data, resp.StatusCode, nil
}

// Unload stops the child process and resets the adapter to its unstarted
// state so the port can be reused by a subsequent Start.
func (a *Adapter) Unload() {
	a.mu.Lock()
	handle := a.handle
	a.handle = nil
	a.port = 0
	a.state = StateStopped
	a.model, a.fp = "", ""
	a.mu.Unlock()

	if handle != nil {
		handle.Stop()
	}
	a.closeChildIO()
}

// IsRunning reports whether the child process is still alive.
func (a *Adapter) IsRunning() bool {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()
	return handle != nil && handle.IsRunning()
}
