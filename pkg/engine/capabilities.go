package engine

import (
	"context"

	"github.com/lemonade-sdk/lemon-server/pkg/errs"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// LoadOptions carries the per-request load-time settings (context size,
// extra runtime flags, gpu layers, ...) that feed a concrete engine's argv
// builder and its options fingerprint.
type LoadOptions map[string]any

// Engine is implemented by every concrete engine family (gpu-llama,
// npu-llm, diffusion, whisper, tts, ryzen-ai). The Orchestrator drives one
// Engine Instance per (recipe, backend) slot through this interface
// without knowing which concrete type backs it; each implementation
// embeds Adapter (by value) for the shared spawn/forward/unload machinery.
type Engine interface {
	Capabilities() recipe.CapabilitySet
	RecipeName() string
	BackendName() string

	// Load spawns the child bound to modelPath with opts, waits for
	// readiness, and records fingerprint as the options fingerprint this
	// instance now serves.
	Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error
	// Unload stops the child, freeing the engine slot.
	Unload()
	// State reports the current readiness state.
	State() State
	// Matches reports whether this instance already serves
	// (model, fingerprint), implementing the Orchestrator's fast path.
	Matches(model, fingerprint string) bool
	// Bind records which (model, fingerprint) this instance now serves.
	Bind(model, fingerprint string)
}

// RequireCapability returns an UnsupportedOperation error unless caps
// declares cap, used by the Orchestrator before routing a request to an
// engine that does not implement it.
func RequireCapability(caps recipe.CapabilitySet, engineName string, cap recipe.Capability) error {
	if caps.Has(cap) {
		return nil
	}
	return &errs.UnsupportedOperation{Operation: string(cap), Engine: engineName}
}
