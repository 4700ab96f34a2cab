package orchestrator

import (
	"context"

	"go.uber.org/mock/gomock"

	"github.com/lemonade-sdk/lemon-server/pkg/engine"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// mockEngine is a hand-written double for engine.Engine, built on
// gomock.Controller the way a mockgen-generated mock would be, without
// actually running mockgen. The concrete engines (gpu-llama, whisper, ...)
// all spawn a real subprocess on Load, which makes them unsuitable for
// exercising the Orchestrator's locking and fast-path logic in isolation;
// mockEngine instead lets a test set its state, model and fingerprint
// directly. ctrl is stored but no expectations are registered on it, so
// Finish checks nothing about the mock.
type mockEngine struct {
	ctrl    *gomock.Controller
	recipe  string
	backend string
	state   engine.State
	model   string
	fp      string
	loads   int
}

func newMockEngine(ctrl *gomock.Controller, recipeName, backend string) *mockEngine {
	return &mockEngine{ctrl: ctrl, recipe: recipeName, backend: backend, state: engine.StateStopped}
}

func (m *mockEngine) Capabilities() recipe.CapabilitySet { return recipe.CapabilitySet{} }
func (m *mockEngine) RecipeName() string                 { return m.recipe }
func (m *mockEngine) BackendName() string                { return m.backend }

func (m *mockEngine) Load(ctx context.Context, modelPath, fingerprint string, opts engine.LoadOptions) error {
	m.loads++
	m.model = modelPath
	m.fp = fingerprint
	m.state = engine.StateReady
	return nil
}

func (m *mockEngine) Unload() {
	m.state = engine.StateStopped
}

func (m *mockEngine) State() engine.State { return m.state }

func (m *mockEngine) Matches(model, fingerprint string) bool {
	return m.model == model && m.fp == fingerprint
}

func (m *mockEngine) Bind(model, fingerprint string) {
	m.model = model
	m.fp = fingerprint
}

// Port satisfies the optional interface{ Port() int } ActiveEngines probes
// for, mirroring the real engines' Adapter.Port.
func (m *mockEngine) Port() int { return 0 }
