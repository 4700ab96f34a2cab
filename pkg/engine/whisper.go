package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// Whisper wraps whisper-server, the audio-transcription engine behind the
// "whisper" recipe.
type Whisper struct {
	Adapter
	ExtraFlags string
}

func NewWhisper(log *slog.Logger, backend, exePath, extraFlags string) *Whisper {
	return &Whisper{
		Adapter: Adapter{
			Log: log, Recipe: "whisper", Backend: backend,
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 60 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		ExtraFlags: extraFlags,
	}
}

func (w *Whisper) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapAudioTranscribe)
}
func (w *Whisper) RecipeName() string  { return w.Recipe }
func (w *Whisper) BackendName() string { return w.Backend }

// Load spawns whisper-server bound to modelPath. There is no context-size
// knob for an audio model; opts only carries an optional language hint
// passed straight through to the server's default-language flag.
func (w *Whisper) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}
		if lang, ok := opts["language"].(string); ok && lang != "" {
			args = append(args, "--language", lang)
		}
		if w.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(w.ExtraFlags)...)
		}
		return args, nil
	}

	if err := w.Adapter.Start(ctx, build, "", nil); err != nil {
		return err
	}
	w.Adapter.Bind(modelPath, fingerprint)
	return nil
}
