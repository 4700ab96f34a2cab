package version

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed backend_versions.json
var defaultVersions embed.FS

// Registry holds the canonical required version per (recipe, backend),
// loaded at startup from backend_versions.json.
type Registry struct {
	required map[string]map[string]string
}

// NewRegistry loads the default, embedded backend_versions.json. It is the
// fallback used when no user config override exists in configDir.
func NewRegistry() (*Registry, error) {
	data, err := defaultVersions.ReadFile("backend_versions.json")
	if err != nil {
		return nil, err
	}
	return registryFromJSON(data)
}

// LoadRegistry reads backend_versions.json from configDir if present,
// otherwise falls back to the embedded defaults.
func LoadRegistry(configDir string) (*Registry, error) {
	path := filepath.Join(configDir, "backend_versions.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry()
		}
		return nil, err
	}
	return registryFromJSON(data)
}

func registryFromJSON(data []byte) (*Registry, error) {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse backend_versions.json: %w", err)
	}
	return &Registry{required: raw}, nil
}

// Required returns the required version string for (recipe, backend). The
// second return value is false if the table has no entry for the target;
// callers must fail the install loudly rather than silently skip the gate.
func (r *Registry) Required(recipe, backend string) (string, bool) {
	byBackend, ok := r.required[recipe]
	if !ok {
		return "", false
	}
	v, ok := byBackend[backend]
	return v, ok
}

// NeedsUpdate reports whether installedVersion is older than the required
// version for (recipe, backend), i.e. does not satisfy it. An empty
// installedVersion always needs update (nothing installed).
func (r *Registry) NeedsUpdate(recipe, backend, installedVersion string) (bool, error) {
	required, ok := r.Required(recipe, backend)
	if !ok {
		return false, fmt.Errorf("no required version registered for %s/%s", recipe, backend)
	}
	if installedVersion == "" {
		return true, nil
	}
	return !Parse(installedVersion).GTE(Parse(required)), nil
}
