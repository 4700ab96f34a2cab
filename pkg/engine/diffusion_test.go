package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestDiffusionCapabilities(t *testing.T) {
	d := NewDiffusion(slog.Default(), "vulkan", "/opt/stable-diffusion-server", "")
	caps := d.Capabilities()
	for _, c := range []recipe.Capability{recipe.CapImageGenerate, recipe.CapImageEdit, recipe.CapImageVariation} {
		if !caps.Has(c) {
			t.Errorf("expected capability %s", c)
		}
	}
	if caps.Has(recipe.CapAudioSpeak) {
		t.Error("diffusion must not declare audio-speak")
	}
}

func TestDiffusionSatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewDiffusion(slog.Default(), "cpu", "/opt/stable-diffusion-server", "")
}
