// Package orchestrator implements the Orchestrator (C10): the
// idle/pre_flight/inferring state machine that turns an inference request
// into a ready Engine Instance, reusing one when the requested model and
// options fingerprint already match, and serializes conflicting requests to
// the same (recipe, backend) slot.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lemonade-sdk/lemon-server/pkg/artifactstore"
	"github.com/lemonade-sdk/lemon-server/pkg/backendmanager"
	"github.com/lemonade-sdk/lemon-server/pkg/download"
	"github.com/lemonade-sdk/lemon-server/pkg/engine"
	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/errs"
	"github.com/lemonade-sdk/lemon-server/pkg/metrics"
	"github.com/lemonade-sdk/lemon-server/pkg/models"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
	"github.com/lemonade-sdk/lemon-server/pkg/version"
)

// EngineFactory builds a fresh, unstarted Engine for (recipeName, backend),
// given the executable path resolved from the Artifact Store and the
// backend's install directory (for recipes whose runtime needs co-located
// shared libraries).
type EngineFactory func(log *slog.Logger, recipeName, backend, exePath, installDir, extraFlags string) (engine.Engine, error)

// slot is one (recipe, backend) engine seat. mu serializes the
// idle->pre_flight transition per spec.md §4.7.2: at most one pre-flight may
// be underway for a given slot at a time.
type slot struct {
	mu  sync.Mutex
	eng engine.Engine
}

// Orchestrator wires together every upstream component (C1-C9) behind the
// single entry point the HTTP handlers call: Ensure.
type Orchestrator struct {
	log       *slog.Logger
	table     recipe.Table
	backends  *backendmanager.Manager
	store     *artifactstore.Store
	versions  *version.Registry
	resolver  *models.Resolver
	pipeline  *download.Pipeline
	newEngine EngineFactory

	mu    sync.Mutex
	slots map[string]*slot

	// group deduplicates concurrent Ensure calls that want the exact same
	// (recipe, backend, model, fingerprint); it never spans two different
	// desired states for the same slot, so it cannot hand one caller
	// another caller's model.
	group singleflight.Group

	stats *statsLog
}

// New constructs an Orchestrator. factory, if nil, defaults to
// DefaultEngineFactory.
func New(log *slog.Logger, table recipe.Table, backends *backendmanager.Manager, store *artifactstore.Store, versions *version.Registry, resolver *models.Resolver, pipeline *download.Pipeline, factory EngineFactory) *Orchestrator {
	if factory == nil {
		factory = DefaultEngineFactory
	}
	return &Orchestrator{
		log:       log,
		table:     table,
		backends:  backends,
		store:     store,
		versions:  versions,
		resolver:  resolver,
		pipeline:  pipeline,
		newEngine: factory,
		slots:     make(map[string]*slot),
		stats:     newStatsLog(),
	}
}

// DefaultEngineFactory maps a recipe name to its concrete engine
// constructor. Only gpu-llama receives installDir; every engine receives
// extraFlags and splits it into argv tokens.
func DefaultEngineFactory(log *slog.Logger, recipeName, backend, exePath, installDir, extraFlags string) (engine.Engine, error) {
	switch recipeName {
	case "gpu-llama":
		return engine.NewGPULlama(log, backend, exePath, installDir, extraFlags), nil
	case "whisper":
		return engine.NewWhisper(log, backend, exePath, extraFlags), nil
	case "diffusion":
		return engine.NewDiffusion(log, backend, exePath, extraFlags), nil
	case "tts":
		return engine.NewTTS(log, exePath, extraFlags), nil
	case "npu-llm":
		return engine.NewNPULLM(log, exePath, extraFlags), nil
	case "ryzen-ai":
		return engine.NewRyzenAI(log, exePath, extraFlags), nil
	default:
		return nil, fmt.Errorf("unknown recipe %q", recipeName)
	}
}

func slotKey(recipeName, backend string) string { return recipeName + "/" + backend }

func (o *Orchestrator) slotFor(recipeName, backend string) *slot {
	key := slotKey(recipeName, backend)
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.slots[key]
	if !ok {
		s = &slot{}
		o.slots[key] = s
	}
	return s
}

// extraFlagsFor reads LEMON_<RECIPE>_EXTRA_FLAGS (recipe name upper-cased,
// hyphens turned to underscores), letting an operator pass engine-specific
// runtime flags without a request-level option.
func extraFlagsFor(recipeName string) string {
	env := "LEMON_" + strings.ToUpper(strings.ReplaceAll(recipeName, "-", "_")) + "_EXTRA_FLAGS"
	return envconfig.Var(env)
}

// Ensure resolves modelName, chooses its backend, and returns a ready Engine
// bound to (modelName, fingerprint(opts)), implementing spec.md §4.7.1's
// state machine: a fast path when an existing instance already matches,
// otherwise a serialized pre-flight that installs the backend, downloads
// the model, unloads any conflicting instance, and loads the new one.
func (o *Orchestrator) Ensure(ctx context.Context, modelName string, opts engine.LoadOptions) (engine.Engine, models.ModelInfo, error) {
	info, err := o.resolver.Resolve(modelName)
	if err != nil {
		return nil, models.ModelInfo{}, err
	}

	spec, ok := o.table.Get(info.Recipe)
	if !ok {
		return nil, info, fmt.Errorf("unknown recipe %q", info.Recipe)
	}

	backend := spec.DefaultBackend(envconfig.HostOS(), envconfig.HostArch())
	if b, ok := opts["backend"].(string); ok && b != "" {
		backend = b
	}

	fp := Fingerprint(opts)
	s := o.slotFor(info.Recipe, backend)

	if e, ok := fastPathMatch(s, modelName, fp); ok {
		return e, info, nil
	}

	dedupKey := fmt.Sprintf("%s/%s/%s/%s", info.Recipe, backend, modelName, fp)
	v, err, _ := o.group.Do(dedupKey, func() (any, error) {
		return o.preFlight(ctx, s, spec, info, modelName, backend, fp, opts)
	})
	if err != nil {
		return nil, info, err
	}
	return v.(engine.Engine), info, nil
}

func fastPathMatch(s *slot, modelName, fp string) (engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng != nil && s.eng.State() == engine.StateReady && s.eng.Matches(modelName, fp) {
		return s.eng, true
	}
	return nil, false
}

// preFlight performs the idle->pre_flight transition for one slot. It
// rejects with errs.Busy rather than queueing when another pre_flight for a
// conflicting (model, fingerprint) is already underway on this slot, per
// spec.md §4.7.2.
func (o *Orchestrator) preFlight(ctx context.Context, s *slot, spec recipe.Spec, info models.ModelInfo, modelName, backend, fp string, opts engine.LoadOptions) (engine.Engine, error) {
	if !s.mu.TryLock() {
		return nil, &errs.Busy{Recipe: info.Recipe, Backend: backend}
	}
	defer s.mu.Unlock()

	// Re-check: a sibling dedup key may have finished loading this exact
	// (model, fingerprint) between the fast-path check and acquiring the
	// slot lock.
	if s.eng != nil && s.eng.State() == engine.StateReady && s.eng.Matches(modelName, fp) {
		return s.eng, nil
	}

	if ok, reason := spec.SupportsHost(); !ok {
		return nil, &errs.UnsupportedBackend{Recipe: info.Recipe, Backend: backend, Reason: reason}
	}

	if entry, ok := o.backends.Cache().Get(info.Recipe, backend); !ok || entry.State != backendmanager.StateInstalled {
		if err := o.backends.Install(ctx, info.Recipe, backend, nil); err != nil {
			return nil, err
		}
	}

	if !o.resolver.IsDownloaded(info) {
		if err := o.downloadModel(ctx, info, modelName); err != nil {
			return nil, err
		}
	}

	if s.eng != nil {
		s.eng.Unload()
		s.eng = nil
	}

	eng, err := o.loadEngine(ctx, spec, info, modelName, backend, fp, opts)
	if err != nil {
		return nil, err
	}
	s.eng = eng
	return eng, nil
}

func (o *Orchestrator) downloadModel(ctx context.Context, info models.ModelInfo, modelName string) error {
	repo := stripVariant(info.Checkpoint)
	destDir := info.Root()
	return o.pipeline.Pull(ctx, modelName, modelName, repo, "main", destDir, download.KindModel, nil)
}

func stripVariant(checkpoint string) string {
	repo, _, _ := strings.Cut(checkpoint, ":")
	return repo
}

func (o *Orchestrator) loadEngine(ctx context.Context, spec recipe.Spec, info models.ModelInfo, modelName, backend, fp string, opts engine.LoadOptions) (engine.Engine, error) {
	var installDir, exePath string
	if spec.ExternalInstaller {
		// The vendor installer puts its executable on PATH, not under the
		// Artifact Store's install tree; there is no co-located installDir
		// to pass through either.
		found, err := exec.LookPath(spec.ExeName(envconfig.HostOS()))
		if err != nil {
			return nil, &errs.BackendInstallFailed{Recipe: info.Recipe, Backend: backend, Cause: err}
		}
		exePath = found
	} else {
		required, _ := o.versions.Required(info.Recipe, backend)
		installDir = o.store.InstallDir(info.Recipe, backend, required)
		exePath = filepath.Join(installDir, spec.ExeName(envconfig.HostOS()))
	}

	eng, err := o.newEngine(o.log, info.Recipe, backend, exePath, installDir, extraFlagsFor(info.Recipe))
	if err != nil {
		return nil, err
	}

	loadOpts := engine.LoadOptions{}
	for k, v := range opts {
		loadOpts[k] = v
	}
	if mmproj := info.ResolvedPath("mmproj"); mmproj != "" {
		loadOpts["mmproj"] = mmproj
	}
	if vae := info.ResolvedPath("vae"); vae != "" {
		loadOpts["vae"] = vae
	}
	if te := info.ResolvedPath("text_encoder"); te != "" {
		loadOpts["text_encoder"] = te
	}
	if info.Embedding {
		loadOpts["embedding"] = true
	}

	checkpointPath := info.ResolvedPath("checkpoint")
	if _, ok := loadOpts["context_size"]; !ok && strings.HasSuffix(checkpointPath, ".gguf") {
		if gguf, err := models.InspectGGUF(checkpointPath); err == nil && gguf.ContextLength > 0 {
			loadOpts["context_size"] = float64(gguf.ContextLength)
		}
	}
	if err := eng.Load(ctx, checkpointPath, fp, loadOpts); err != nil {
		return nil, err
	}
	// Engines bind the checkpoint path on Load; rebind to the model name,
	// which is what the fast path, IsModelLoaded and UnloadModel match on.
	eng.Bind(modelName, fp)
	return eng, nil
}

// Unload stops the currently-loaded engine for (recipeName, backend), if
// any, returning it to idle without a replacement.
func (o *Orchestrator) Unload(recipeName, backend string) {
	s := o.slotFor(recipeName, backend)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng != nil {
		s.eng.Unload()
		s.eng = nil
	}
}

// UnloadModel stops whichever slot, if any, currently serves modelName,
// used by the model-invalidated retry path where the caller knows the
// model name but not which backend ended up serving it.
func (o *Orchestrator) UnloadModel(modelName string) {
	o.mu.Lock()
	slots := make([]*slot, 0, len(o.slots))
	for _, s := range o.slots {
		slots = append(slots, s)
	}
	o.mu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		if s.eng != nil && s.eng.Matches(modelName, "") {
			s.eng.Unload()
			s.eng = nil
		}
		s.mu.Unlock()
	}
}

// IsModelLoaded reports whether any slot currently serves modelName.
func (o *Orchestrator) IsModelLoaded(modelName string) bool {
	o.mu.Lock()
	slots := make([]*slot, 0, len(o.slots))
	for _, s := range o.slots {
		slots = append(slots, s)
	}
	o.mu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		match := s.eng != nil && s.eng.State() == engine.StateReady && s.eng.Matches(modelName, "")
		s.mu.Unlock()
		if match {
			return true
		}
	}
	return false
}

// ActiveEngines implements metrics.Source: every slot currently holding a
// ready engine, for the /stats aggregated-metrics scrape.
func (o *Orchestrator) ActiveEngines() []metrics.ActiveEngine {
	o.mu.Lock()
	keys := make([]string, 0, len(o.slots))
	snapshot := make(map[string]*slot, len(o.slots))
	for k, s := range o.slots {
		keys = append(keys, k)
		snapshot[k] = s
	}
	o.mu.Unlock()

	var out []metrics.ActiveEngine
	for _, key := range keys {
		s := snapshot[key]
		s.mu.Lock()
		if s.eng != nil && s.eng.State() == engine.StateReady {
			recipeName, backend, _ := strings.Cut(key, "/")
			if a, ok := s.eng.(interface{ Port() int }); ok {
				out = append(out, metrics.ActiveEngine{
					Recipe: recipeName, Backend: backend, Port: a.Port(),
				})
			}
		}
		s.mu.Unlock()
	}
	return out
}

// LoadedSlots returns one summary entry per slot currently holding an
// engine instance, used by GET /health to report each slot's state.
type LoadedSlot struct {
	Recipe  string
	Backend string
	State   engine.State
}

func (o *Orchestrator) LoadedSlots() []LoadedSlot {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]LoadedSlot, 0, len(o.slots))
	for key, s := range o.slots {
		s.mu.Lock()
		if s.eng != nil {
			recipeName, backend, _ := strings.Cut(key, "/")
			out = append(out, LoadedSlot{Recipe: recipeName, Backend: backend, State: s.eng.State()})
		}
		s.mu.Unlock()
	}
	return out
}
