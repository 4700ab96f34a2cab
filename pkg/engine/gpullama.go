package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// GPULlama wraps llama-server, the GPU/CPU LLM engine behind the
// "gpu-llama" recipe. It serves chat/completion, embeddings, and
// reranking, optionally with a multimodal projector for vision models.
type GPULlama struct {
	Adapter
	InstallDir string
	ExtraFlags string
	DefaultCtx uint64
}

func NewGPULlama(log *slog.Logger, backend, exePath, installDir, extraFlags string) *GPULlama {
	return &GPULlama{
		Adapter: Adapter{
			Log: log, Recipe: "gpu-llama", Backend: backend,
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 60 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		InstallDir: installDir,
		ExtraFlags: extraFlags,
		DefaultCtx: 4096,
	}
}

func (g *GPULlama) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapChatCompletion, recipe.CapEmbeddings, recipe.CapReranking)
}
func (g *GPULlama) RecipeName() string  { return g.Recipe }
func (g *GPULlama) BackendName() string { return g.Backend }

// Load spawns llama-server bound to modelPath. mmproj and context_size are
// read out of opts when present; --embeddings is added when the request
// wants the embedding capability.
func (g *GPULlama) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--jinja", "--metrics", "--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}

		ctxSize := g.DefaultCtx
		if v, ok := opts["context_size"].(float64); ok && v > 0 {
			ctxSize = uint64(v)
		}
		args = append(args, "--ctx-size", strconv.FormatUint(ctxSize, 10))

		if mmproj, ok := opts["mmproj"].(string); ok && mmproj != "" {
			args = append(args, "--mmproj", mmproj)
		}
		if v, ok := opts["embedding"].(bool); ok && v {
			args = append(args, "--embeddings")
		}
		if g.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(g.ExtraFlags)...)
		}
		return args, nil
	}

	env := libraryPathEnv(g.InstallDir)
	if err := g.Adapter.Start(ctx, build, "", env); err != nil {
		return err
	}
	g.Adapter.Bind(modelPath, fingerprint)
	return nil
}

// libraryPathEnv prepends installDir to the platform's dynamic-linker
// search path so GPU runtime libraries co-located with the executable are
// found, per spec.md §4.1's cross-platform filename-selection note.
func libraryPathEnv(installDir string) []string {
	if installDir == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("LD_LIBRARY_PATH=%s:%s", installDir, os.Getenv("LD_LIBRARY_PATH")),
		fmt.Sprintf("PATH=%s%c%s", installDir, os.PathListSeparator, os.Getenv("PATH")),
	}
}
