package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestTTSCapabilities(t *testing.T) {
	s := NewTTS(slog.Default(), "/opt/tts-server", "")
	if !s.Capabilities().Has(recipe.CapAudioSpeak) {
		t.Error("expected audio-speak capability")
	}
	if s.BackendName() != "cpu" {
		t.Errorf("BackendName() = %q, want cpu", s.BackendName())
	}
}

func TestTTSSatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewTTS(slog.Default(), "/opt/tts-server", "")
}
