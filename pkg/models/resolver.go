// Package models implements the Model Resolver (C8): mapping a user-facing
// model name to a ModelInfo and the on-disk paths of its checkpoint and any
// auxiliary files.
package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/distribution/reference"

	"github.com/lemonade-sdk/lemon-server/pkg/errs"
)

// ModelInfo describes one resolvable model: its checkpoint source, the
// recipe that serves it, the modalities it supports, and any auxiliary
// files (multimodal projector, text encoder, VAE) a multi-file layout
// needs alongside the primary weights.
type ModelInfo struct {
	Name       string `json:"name"`
	Checkpoint string `json:"checkpoint"` // hub repo, optionally "repo:variant"
	Recipe     string `json:"recipe"`

	Reasoning bool `json:"reasoning"`
	Vision    bool `json:"vision"`
	Embedding bool `json:"embedding"`
	Reranking bool `json:"reranking"`

	Mmproj      string `json:"mmproj,omitempty"`
	TextEncoder string `json:"text_encoder,omitempty"`
	VAE         string `json:"vae,omitempty"`

	root string // <cache_root>/models/<checkpoint>, set by Resolver
}

// ResolvedPath returns the on-disk path for a named role ("checkpoint",
// "mmproj", "text_encoder", "vae"), or "" if that role has no file.
//
// A "checkpoint" with no ":variant" tag (stable-diffusion-xl-base-1.0,
// Kokoro-82M, the NPU ONNX bundles) names a whole hub repo rather than a
// single quantization shard; its weights are whatever the Model Download
// Pipeline pulled directly under the model's root, so the root itself is
// the resolved path.
func (m ModelInfo) ResolvedPath(role string) string {
	if m.root == "" {
		return ""
	}
	switch role {
	case "checkpoint":
		if name := primaryFilename(m.Checkpoint); name != "" {
			return filepath.Join(m.root, name)
		}
		return m.root
	case "mmproj":
		if m.Mmproj == "" {
			return ""
		}
		return filepath.Join(m.root, m.Mmproj)
	case "text_encoder":
		if m.TextEncoder == "" {
			return ""
		}
		return filepath.Join(m.root, m.TextEncoder)
	case "vae":
		if m.VAE == "" {
			return ""
		}
		return filepath.Join(m.root, m.VAE)
	default:
		return ""
	}
}

// Root returns the on-disk directory this ModelInfo's files live under, set
// once Resolve/List has filled it in.
func (m ModelInfo) Root() string { return m.root }

// primaryFilename derives a checkpoint's weight filename from its
// "repo[:variant]" string; the variant, when present, names the GGUF
// quantization shard rather than a registry tag. A variant-less checkpoint
// returns "", which ResolvedPath treats as "the model's root directory".
func primaryFilename(checkpoint string) string {
	repo, variant, _ := strings.Cut(checkpoint, ":")
	if variant == "" {
		return ""
	}
	_ = repo
	return variant
}

// checkpointDir maps a checkpoint string to its deterministic on-disk
// subtree under <cache_root>/models, matching spec.md §6's persisted state
// layout. Colons and slashes in the checkpoint are not filesystem-safe, so
// they are replaced with "--" and "_" respectively.
func checkpointDir(cacheRoot, checkpoint string) string {
	safe := strings.ReplaceAll(checkpoint, ":", "--")
	safe = strings.ReplaceAll(safe, "/", "_")
	return filepath.Join(cacheRoot, "models", safe)
}

// Resolver owns the registered-models index (<config_root>/user_models.json)
// and resolves model names to ModelInfo with on-disk paths filled in.
type Resolver struct {
	mu         sync.Mutex
	cacheRoot  string
	configPath string
	registered map[string]ModelInfo
}

// NewResolver loads <configRoot>/user_models.json if present; a missing file
// starts with an empty registry rather than erroring.
func NewResolver(cacheRoot, configRoot string) (*Resolver, error) {
	r := &Resolver{
		cacheRoot:  cacheRoot,
		configPath: filepath.Join(configRoot, "user_models.json"),
		registered: make(map[string]ModelInfo),
	}
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read user_models.json: %w", err)
	}
	var entries []ModelInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse user_models.json: %w", err)
	}
	for _, m := range entries {
		r.registered[m.Name] = m
	}
	return r, nil
}

// Register validates checkpoint against container-image-reference grammar
// (the same "repo[:tag]" shape a hub checkpoint string follows) and
// persists info under name, without triggering a download. The repo is
// lower-cased before validation, since hub repo names may carry upper case
// and that grammar rejects it.
func (r *Resolver) Register(name string, info ModelInfo) error {
	if _, err := reference.ParseNormalizedNamed(strings.ToLower(stripVariant(info.Checkpoint))); err != nil {
		return fmt.Errorf("invalid checkpoint %q: %w", info.Checkpoint, err)
	}
	info.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[name] = info
	return r.persistLocked()
}

// Unregister removes name from the registry, leaving any downloaded files
// on disk untouched (the caller is responsible for also deleting weights).
func (r *Resolver) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, name)
	return r.persistLocked()
}

func (r *Resolver) persistLocked() error {
	entries := make([]ModelInfo, 0, len(r.registered))
	for _, m := range r.registered {
		entries = append(entries, m)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.configPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.configPath, data, 0o644)
}

// Resolve returns the ModelInfo for name with its on-disk root filled in.
func (r *Resolver) Resolve(name string) (ModelInfo, error) {
	r.mu.Lock()
	info, ok := r.registered[name]
	r.mu.Unlock()
	if !ok {
		if catalogInfo, ok := lookupCatalog(name); ok {
			info = catalogInfo
		} else {
			return ModelInfo{}, &errs.ModelNotFound{Model: name}
		}
	}
	info.root = checkpointDir(r.cacheRoot, info.Checkpoint)
	return info, nil
}

// IsDownloaded reports whether every role a ModelInfo names already has a
// file on disk. A directory-style checkpoint role (see ResolvedPath) counts
// as downloaded only once it holds at least one entry, so a not-yet-pulled
// multi-file model isn't mistaken for one that is.
func (r *Resolver) IsDownloaded(info ModelInfo) bool {
	for _, role := range []string{"checkpoint", "mmproj", "text_encoder", "vae"} {
		path := info.ResolvedPath(role)
		if path == "" {
			continue
		}
		fi, err := os.Stat(path)
		if err != nil {
			return false
		}
		if fi.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil || len(entries) == 0 {
				return false
			}
		}
	}
	return true
}

// List returns every registered model with its on-disk root filled in;
// catalog entries are not included.
func (r *Resolver) List() []ModelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ModelInfo, 0, len(r.registered))
	for _, m := range r.registered {
		m.root = checkpointDir(r.cacheRoot, m.Checkpoint)
		out = append(out, m)
	}
	return out
}

func stripVariant(checkpoint string) string {
	repo, _, _ := strings.Cut(checkpoint, ":")
	return repo
}
