package version

import "testing"

func TestNewRegistryLoadsEmbeddedDefaults(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, ok := reg.Required("gpu-llama", "vulkan"); !ok {
		t.Fatal("expected gpu-llama/vulkan to be registered")
	}
}

func TestNeedsUpdate(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	needs, err := reg.NeedsUpdate("gpu-llama", "vulkan", "")
	if err != nil {
		t.Fatalf("NeedsUpdate() error = %v", err)
	}
	if !needs {
		t.Error("empty installed version should need update")
	}

	needs, err = reg.NeedsUpdate("gpu-llama", "vulkan", "99.0.0")
	if err != nil {
		t.Fatalf("NeedsUpdate() error = %v", err)
	}
	if needs {
		t.Error("installed version ahead of required should not need update")
	}

	if _, err := reg.NeedsUpdate("no-such-recipe", "cpu", "1.0.0"); err == nil {
		t.Error("expected error for unregistered recipe/backend")
	}
}
