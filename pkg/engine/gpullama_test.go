package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestGPULlamaCapabilities(t *testing.T) {
	g := NewGPULlama(slog.Default(), "vulkan", "/opt/llama-server", "", "")
	caps := g.Capabilities()
	for _, c := range []recipe.Capability{recipe.CapChatCompletion, recipe.CapEmbeddings, recipe.CapReranking} {
		if !caps.Has(c) {
			t.Errorf("expected capability %s", c)
		}
	}
	if caps.Has(recipe.CapImageGenerate) {
		t.Error("gpu-llama must not declare image-generate")
	}
	if g.RecipeName() != "gpu-llama" {
		t.Errorf("RecipeName() = %q, want gpu-llama", g.RecipeName())
	}
	if g.BackendName() != "vulkan" {
		t.Errorf("BackendName() = %q, want vulkan", g.BackendName())
	}
}

func TestGPULlamaSatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewGPULlama(slog.Default(), "cpu", "/opt/llama-server", "", "")
}

func TestGPULlamaFreshInstanceNotReadyAndUnbound(t *testing.T) {
	g := NewGPULlama(slog.Default(), "cpu", "/opt/llama-server", "", "")
	if g.State() != "" {
		t.Errorf("State() = %q, want empty before Start", g.State())
	}
	if g.Matches("anything", "") {
		t.Error("fresh instance should not match any model")
	}
}

func TestLibraryPathEnvEmptyInstallDir(t *testing.T) {
	if env := libraryPathEnv(""); env != nil {
		t.Errorf("expected nil env for empty installDir, got %v", env)
	}
}

func TestLibraryPathEnvPrependsInstallDir(t *testing.T) {
	env := libraryPathEnv("/opt/gpu-runtime")
	if len(env) != 2 {
		t.Fatalf("expected 2 env entries, got %d", len(env))
	}
}
