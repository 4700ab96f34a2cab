package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// RyzenAI wraps ryzen-ai-llm-server, the chat+embeddings engine behind the
// "ryzen-ai" recipe. Its backend lifecycle is owned by an external vendor
// installer rather than the Artifact Store (recipe.Spec.ExternalInstaller);
// the engine only ever spawns an executable already present on PATH, it
// never downloads or extracts one.
type RyzenAI struct {
	Adapter
	ExtraFlags string
}

func NewRyzenAI(log *slog.Logger, exePath, extraFlags string) *RyzenAI {
	return &RyzenAI{
		Adapter: Adapter{
			Log: log, Recipe: "ryzen-ai", Backend: "ryzen-ai",
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 90 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		ExtraFlags: extraFlags,
	}
}

func (r *RyzenAI) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapChatCompletion, recipe.CapEmbeddings)
}
func (r *RyzenAI) RecipeName() string  { return r.Recipe }
func (r *RyzenAI) BackendName() string { return r.Backend }

// Load spawns ryzen-ai-llm-server bound to modelPath.
func (r *RyzenAI) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}
		if v, ok := opts["embedding"].(bool); ok && v {
			args = append(args, "--embeddings")
		}
		if r.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(r.ExtraFlags)...)
		}
		return args, nil
	}

	if err := r.Adapter.Start(ctx, build, "", nil); err != nil {
		return err
	}
	r.Adapter.Bind(modelPath, fingerprint)
	return nil
}
