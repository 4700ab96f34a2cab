package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// TTS wraps tts-server, the speech-synthesis engine behind the "tts"
// recipe. It has a single "cpu" backend; there is no GPU build in the
// backend table.
type TTS struct {
	Adapter
	ExtraFlags string
}

func NewTTS(log *slog.Logger, exePath, extraFlags string) *TTS {
	return &TTS{
		Adapter: Adapter{
			Log: log, Recipe: "tts", Backend: "cpu",
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 60 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		ExtraFlags: extraFlags,
	}
}

func (s *TTS) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapAudioSpeak)
}
func (s *TTS) RecipeName() string  { return s.Recipe }
func (s *TTS) BackendName() string { return s.Backend }

// Load spawns tts-server bound to modelPath. opts may carry a default
// voice name; absent a voice, the server falls back to its own default.
func (s *TTS) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}
		if voice, ok := opts["voice"].(string); ok && voice != "" {
			args = append(args, "--voice", voice)
		}
		if s.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(s.ExtraFlags)...)
		}
		return args, nil
	}

	if err := s.Adapter.Start(ctx, build, "", nil); err != nil {
		return err
	}
	s.Adapter.Bind(modelPath, fingerprint)
	return nil
}
