package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestWhisperCapabilities(t *testing.T) {
	w := NewWhisper(slog.Default(), "vulkan", "/opt/whisper-server", "")
	caps := w.Capabilities()
	if !caps.Has(recipe.CapAudioTranscribe) {
		t.Error("expected audio-transcribe capability")
	}
	if caps.Has(recipe.CapChatCompletion) {
		t.Error("whisper must not declare chat/completion")
	}
}

func TestWhisperSatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewWhisper(slog.Default(), "cpu", "/opt/whisper-server", "")
}
