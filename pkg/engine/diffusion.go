package engine

import (
	"context"
	"strconv"
	"time"

	"log/slog"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// Diffusion wraps stable-diffusion-server, the image engine behind the
// "diffusion" recipe. It serves generate, edit, and variation requests; the
// Orchestrator forwards edit/variation's multipart bodies straight through
// the embedded Adapter's ForwardMultipart.
type Diffusion struct {
	Adapter
	ExtraFlags string
}

func NewDiffusion(log *slog.Logger, backend, exePath, extraFlags string) *Diffusion {
	return &Diffusion{
		Adapter: Adapter{
			Log: log, Recipe: "diffusion", Backend: backend,
			ExePath: exePath, ReadinessPath: "/health",
			ReadinessDeadline: 90 * time.Second,
			FilterHealthLogs:  SuppressPath("/health"),
		},
		ExtraFlags: extraFlags,
	}
}

func (d *Diffusion) Capabilities() recipe.CapabilitySet {
	return recipe.NewCapabilitySet(recipe.CapImageGenerate, recipe.CapImageEdit, recipe.CapImageVariation)
}
func (d *Diffusion) RecipeName() string  { return d.Recipe }
func (d *Diffusion) BackendName() string { return d.Backend }

// Load spawns stable-diffusion-server bound to modelPath. opts may carry a
// VAE or text-encoder auxiliary path resolved by the Model Resolver.
func (d *Diffusion) Load(ctx context.Context, modelPath, fingerprint string, opts LoadOptions) error {
	build := func(port int) ([]string, error) {
		args := []string{"--model", modelPath, "--host", "127.0.0.1", "--port", strconv.Itoa(port)}
		if vae, ok := opts["vae"].(string); ok && vae != "" {
			args = append(args, "--vae", vae)
		}
		if enc, ok := opts["text_encoder"].(string); ok && enc != "" {
			args = append(args, "--text-encoder", enc)
		}
		if d.ExtraFlags != "" {
			args = append(args, recipe.SplitExtraFlags(d.ExtraFlags)...)
		}
		return args, nil
	}

	if err := d.Adapter.Start(ctx, build, "", nil); err != nil {
		return err
	}
	d.Adapter.Bind(modelPath, fingerprint)
	return nil
}
