package backendmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lemonade-sdk/lemon-server/pkg/artifactstore"
	"github.com/lemonade-sdk/lemon-server/pkg/errs"
	"github.com/lemonade-sdk/lemon-server/pkg/events"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
	"github.com/lemonade-sdk/lemon-server/pkg/version"
)

// Manager orchestrates install/uninstall/status queries using the Artifact
// Store (C1), Version Registry (C2), and Backend Spec Table (C3), and
// maintains the Recipes Cache.
type Manager struct {
	log      *slog.Logger
	table    recipe.Table
	versions *version.Registry
	store    *artifactstore.Store
	cache    *RecipesCache

	installMu sync.Mutex
	inFlight  map[string]bool // "recipe/backend" currently installing
}

// New constructs a Manager. The returned cache is populated on first call
// to GetAllBackendsStatus.
func New(log *slog.Logger, table recipe.Table, versions *version.Registry, store *artifactstore.Store) *Manager {
	return &Manager{
		log:      log,
		table:    table,
		versions: versions,
		store:    store,
		cache:    NewRecipesCache(),
		inFlight: make(map[string]bool),
	}
}

// Cache returns the Recipes Cache backing /system-info.
func (m *Manager) Cache() *RecipesCache { return m.cache }

func slotKey(recipeName, backend string) string { return recipeName + "/" + backend }

// Install downloads and extracts backend for recipeName, reporting progress
// to the Event Channel via w. On success the Recipes Cache entry
// transitions to installed and a complete event is emitted.
func (m *Manager) Install(ctx context.Context, recipeName, backend string, w *events.Writer) error {
	key := slotKey(recipeName, backend)
	m.installMu.Lock()
	if m.inFlight[key] {
		m.installMu.Unlock()
		return &errs.Busy{Recipe: recipeName, Backend: backend}
	}
	m.inFlight[key] = true
	m.installMu.Unlock()
	defer func() {
		m.installMu.Lock()
		delete(m.inFlight, key)
		m.installMu.Unlock()
	}()

	spec, ok := m.table.Get(recipeName)
	if !ok {
		return fmt.Errorf("unknown recipe %q", recipeName)
	}
	if ok, reason := spec.SupportsHost(); !ok {
		return &errs.UnsupportedBackend{Recipe: recipeName, Backend: backend, Reason: reason}
	}

	required, ok := m.versions.Required(recipeName, backend)
	if !ok {
		return fmt.Errorf("no required version registered for %s/%s", recipeName, backend)
	}

	if spec.ExternalInstaller {
		return m.installExternal(recipeName, backend, spec, w)
	}

	params := spec.InstallParams(backend, required, goos(), goarch())
	exeName := spec.ExeName(goos())

	progress := func(bytesReceived, totalBytes int64) {
		if w == nil {
			return
		}
		var pct float64
		if totalBytes > 0 {
			pct = float64(bytesReceived) / float64(totalBytes) * 100
		}
		_ = w.Emit(events.KindProgress, events.Progress{
			BytesReceived: bytesReceived,
			TotalBytes:    totalBytes,
			Percent:       pct,
			DisplayName:   fmt.Sprintf("%s/%s", recipeName, backend),
		})
	}

	_, err := m.store.InstallFromGitHub(ctx, recipeName, backend, required, params.Repo, params.Filename, params.Tag, exeName, progress)
	if err != nil {
		if w != nil {
			_ = w.Emit(events.KindError, events.ErrorPayload{Error: err.Error()})
		}
		return &errs.BackendInstallFailed{Recipe: recipeName, Backend: backend, Cause: err}
	}

	m.cache.UpdateEntry(recipeName, backend, BackendEntry{
		Recipe: recipeName, Backend: backend, State: StateInstalled,
		InstalledVersion: required, RequiredVersion: required,
		ReleaseURL:      fmt.Sprintf("https://github.com/%s/releases/tag/%s", params.Repo, params.Tag),
		ArchiveFilename: params.Filename,
	})

	if w != nil {
		_ = w.Emit(events.KindComplete, struct{}{})
	}
	return nil
}

func (m *Manager) installExternal(recipeName, backend string, spec recipe.Spec, w *events.Writer) error {
	// The vendor installer owns its own lifecycle; lemon-server's role is
	// limited to detecting whether it has already been run.
	exeName := spec.ExeName(goos())
	if _, err := exec.LookPath(exeName); err != nil {
		if w != nil {
			_ = w.Emit(events.KindError, events.ErrorPayload{Error: "vendor installer not found; launch it manually"})
		}
		return &errs.BackendInstallFailed{Recipe: recipeName, Backend: backend, Cause: err}
	}
	m.cache.UpdateEntry(recipeName, backend, BackendEntry{
		Recipe: recipeName, Backend: backend, State: StateInstalled,
	})
	if w != nil {
		_ = w.Emit(events.KindComplete, struct{}{})
	}
	return nil
}

// Uninstall removes the install directory for (recipe, backend), retrying
// transient filesystem locks per spec.md §4.3.
func (m *Manager) Uninstall(recipeName, backend string) error {
	// With an empty version, InstallDir is the backend dir holding all versions.
	dir := m.store.InstallDir(recipeName, backend, "")
	if err := artifactstore.RemoveAllWithRetry(dir); err != nil {
		return fmt.Errorf("uninstall %s/%s: %w", recipeName, backend, err)
	}
	spec, _ := m.table.Get(recipeName)
	m.cache.UpdateEntry(recipeName, backend, BackendEntry{
		Recipe: recipeName, Backend: backend, State: StateInstallable,
		Action: installAction(recipeName, backend, spec),
	})
	return nil
}

// GetAllBackendsStatus probes every (recipe, backend) in the spec table
// concurrently via errgroup and returns the computed entries; it also
// updates the Recipes Cache so subsequent /system-info reads are coherent.
func (m *Manager) GetAllBackendsStatus(ctx context.Context) ([]BackendEntry, error) {
	type job struct {
		recipeName, backend string
		spec                recipe.Spec
	}
	var jobs []job
	for name, spec := range m.table {
		for backend := range m.backendsFor(name, spec) {
			jobs = append(jobs, job{recipeName: name, backend: backend, spec: spec})
		}
	}

	results := make([]BackendEntry, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			entry := m.computeStatus(j.recipeName, j.backend, j.spec)
			results[i] = entry
			m.cache.UpdateEntry(j.recipeName, j.backend, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// backendsFor enumerates the backend names worth probing for a recipe: its
// default backend, plus "cpu" when the Version Registry has a required
// version for it. No other backend is probed.
func (m *Manager) backendsFor(recipeName string, spec recipe.Spec) map[string]bool {
	out := map[string]bool{spec.DefaultBackend(goos(), goarch()): true}
	if req, ok := m.versions.Required(recipeName, "cpu"); ok && req != "" {
		out["cpu"] = true
	}
	return out
}

func (m *Manager) computeStatus(recipeName, backend string, spec recipe.Spec) BackendEntry {
	entry := BackendEntry{Recipe: recipeName, Backend: backend}

	if ok, reason := spec.SupportsHost(); !ok {
		entry.State = StateUnsupported
		entry.Message = reason
		return entry
	}

	required, _ := m.versions.Required(recipeName, backend)
	entry.RequiredVersion = required

	if spec.ExternalInstaller {
		exeName := spec.ExeName(goos())
		if _, err := exec.LookPath(exeName); err != nil {
			entry.State = StateInstallable
			entry.Action = "launch vendor installer"
			return entry
		}
		entry.State = StateInstalled
		return entry
	}

	exePath := filepath.Join(m.store.InstallDir(recipeName, backend, required), spec.ExeName(goos()))
	installedVersion := m.detectInstalledVersion(recipeName, backend)

	if installedVersion == "" {
		if _, err := os.Stat(exePath); errors.Is(err, os.ErrNotExist) {
			entry.State = StateInstallable
			entry.Action = installAction(recipeName, backend, spec)
			return entry
		}
	}

	entry.InstalledVersion = installedVersion
	needsUpdate, err := m.versions.NeedsUpdate(recipeName, backend, installedVersion)
	if err != nil || needsUpdate {
		entry.State = StateUpdateRequired
		entry.Action = installAction(recipeName, backend, spec)
		return entry
	}
	entry.State = StateInstalled
	return entry
}

// detectInstalledVersion returns the version-looking directory name under
// the backend's install root, or "" if none is present. Directories are
// named by their version string (see artifactstore.Store.InstallDir).
func (m *Manager) detectInstalledVersion(recipeName, backend string) string {
	backendDir := filepath.Dir(m.store.InstallDir(recipeName, backend, "x"))
	entries, err := os.ReadDir(backendDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() && filepath.Ext(e.Name()) != ".partial" {
			return e.Name()
		}
	}
	return ""
}

func installAction(recipeName, backend string, spec recipe.Spec) string {
	if spec.ExternalInstaller {
		return "launch vendor installer"
	}
	return fmt.Sprintf("lemonctl install %s %s", recipeName, backend)
}

// GetBackendEnrichment returns the release URL, archive filename, and
// version recorded for (recipe, backend) in one call, used to keep the
// cache coherent across installed/not-installed transitions.
func (m *Manager) GetBackendEnrichment(recipeName, backend string) (BackendEntry, bool) {
	return m.cache.Get(recipeName, backend)
}

func goos() string   { return currentGOOS }
func goarch() string { return currentGOARCH }
