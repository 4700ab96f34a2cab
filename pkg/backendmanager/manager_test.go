package backendmanager

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/artifactstore"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
	"github.com/lemonade-sdk/lemon-server/pkg/version"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	versions, err := version.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	store := artifactstore.New(t.TempDir())
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return New(log, recipe.DefaultTable(), versions, store)
}

func TestGetAllBackendsStatusPopulatesCache(t *testing.T) {
	m := testManager(t)

	entries, err := m.GetAllBackendsStatus(context.Background())
	if err != nil {
		t.Fatalf("GetAllBackendsStatus() error = %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one probed entry")
	}

	for _, e := range entries {
		cached, ok := m.Cache().Get(e.Recipe, e.Backend)
		if !ok {
			t.Errorf("cache missing entry for %s/%s", e.Recipe, e.Backend)
		}
		if cached.State != e.State {
			t.Errorf("cache state mismatch for %s/%s: cached=%s computed=%s", e.Recipe, e.Backend, cached.State, e.State)
		}
	}
}

func TestCacheUpdateEntryLeavesOthersUntouched(t *testing.T) {
	cache := NewRecipesCache()
	cache.UpdateEntry("gpu-llama", "vulkan", BackendEntry{State: StateInstalled})
	cache.UpdateEntry("whisper", "cpu", BackendEntry{State: StateUnsupported, Message: "no mic"})

	cache.UpdateEntry("gpu-llama", "vulkan", BackendEntry{State: StateUpdateRequired})

	whisperEntry, ok := cache.Get("whisper", "cpu")
	if !ok {
		t.Fatal("expected whisper/cpu entry to remain")
	}
	if whisperEntry.State != StateUnsupported || whisperEntry.Message != "no mic" {
		t.Errorf("unrelated entry mutated: %+v", whisperEntry)
	}
}
