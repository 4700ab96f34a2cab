package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// NPULLM wraps npu-llm-server, the NPU-only chat engine behind the
// "npu-llm" recipe. Host eligibility (Windows + an AMD or Intel device in
// the host's GPU inventory) is
// enforced by the recipe table's SupportsHost predicate before this type is
// ever constructed; the engine itself is platform-agnostic code.
type NPULLM struct {
	Adapter
	ExtraFlags string
}

func NewNPULLM(log *slog.Logger, exePath, extraFlags string) *NPULLM {
	return &NPULLM{
		Adapter: Adapter{
			Log: log, Recipe: "npu-llm", Backend: "npu",
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 90 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		ExtraFlags: extraFlags,
	}
}

func (n *NPULLM) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapChatCompletion)
}
func (n *NPULLM) RecipeName() string  { return n.Recipe }
func (n *NPULLM) BackendName() string { return n.Backend }

// Load spawns npu-llm-server bound to modelPath. The NPU engine has no
// adjustable context size in this recipe; opts is not read, and only the
// engine's ExtraFlags are appended to the argv.
func (n *NPULLM) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}
		if n.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(n.ExtraFlags)...)
		}
		return args, nil
	}

	if err := n.Adapter.Start(ctx, build, "", nil); err != nil {
		return err
	}
	n.Adapter.Bind(modelPath, fingerprint)
	return nil
}
