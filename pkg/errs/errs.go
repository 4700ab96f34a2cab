// Package errs defines the tagged error kinds raised by the orchestration
// engine. Handlers map these to HTTP status codes via errors.As rather than
// matching on error strings.
package errs

import "fmt"

// UnsupportedBackend is returned when a recipe's OS-support predicate
// rejects the host.
type UnsupportedBackend struct {
	Recipe  string
	Backend string
	Reason  string
}

func (e *UnsupportedBackend) Error() string {
	return fmt.Sprintf("backend %s/%s unsupported: %s", e.Recipe, e.Backend, e.Reason)
}

// BackendInstallFailed wraps a failure from the Artifact Store or Backend
// Manager during install.
type BackendInstallFailed struct {
	Recipe  string
	Backend string
	Cause   error
}

func (e *BackendInstallFailed) Error() string {
	return fmt.Sprintf("install %s/%s failed: %v", e.Recipe, e.Backend, e.Cause)
}

func (e *BackendInstallFailed) Unwrap() error { return e.Cause }

// ModelNotFound is returned when a model name does not resolve to any
// known checkpoint.
type ModelNotFound struct {
	Model string
}

func (e *ModelNotFound) Error() string { return fmt.Sprintf("model not found: %s", e.Model) }

// ModelInvalidated is returned when a loaded engine rejects a model on
// first use (corrupt or incompatible weights on disk).
type ModelInvalidated struct {
	Model string
}

func (e *ModelInvalidated) Error() string { return fmt.Sprintf("model invalidated: %s", e.Model) }

// DownloadReason distinguishes why a Download Transfer stopped short of
// completion.
type DownloadReason string

const (
	ReasonPaused    DownloadReason = "paused"
	ReasonCancelled DownloadReason = "cancelled"
)

// DownloadAborted is returned when a Transfer stops via the control
// channel rather than running to completion.
type DownloadAborted struct {
	Reason DownloadReason
}

func (e *DownloadAborted) Error() string { return fmt.Sprintf("download aborted: %s", e.Reason) }

// EngineNotReady is returned when a spawned engine fails to pass its
// readiness probe before the configured deadline.
type EngineNotReady struct {
	Recipe    string
	Backend   string
	ElapsedMs int64
}

func (e *EngineNotReady) Error() string {
	return fmt.Sprintf("engine %s/%s not ready after %dms", e.Recipe, e.Backend, e.ElapsedMs)
}

// UnsupportedOperation is returned when a request targets a capability an
// engine does not declare.
type UnsupportedOperation struct {
	Operation string
	Engine    string
}

func (e *UnsupportedOperation) Error() string {
	return fmt.Sprintf("operation %q unsupported by engine %s", e.Operation, e.Engine)
}

// TransportError wraps a failure talking to a child engine over loopback
// HTTP.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Cause) }

func (e *TransportError) Unwrap() error { return e.Cause }

// Busy is returned by the re-entry guard when a pre-flight transition is
// already underway for the same engine slot.
type Busy struct {
	Recipe  string
	Backend string
}

func (e *Busy) Error() string {
	return fmt.Sprintf("engine slot %s/%s busy", e.Recipe, e.Backend)
}
