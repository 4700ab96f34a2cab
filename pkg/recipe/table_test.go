package recipe

import "testing"

func TestDefaultTableHasAllRecipes(t *testing.T) {
	table := DefaultTable()
	want := []string{"gpu-llama", "npu-llm", "diffusion", "whisper", "tts", "ryzen-ai"}
	for _, name := range want {
		if _, ok := table.Get(name); !ok {
			t.Errorf("missing recipe %q", name)
		}
	}
}

func TestExeNameWindowsSuffix(t *testing.T) {
	table := DefaultTable()
	spec, _ := table.Get("gpu-llama")
	if got := spec.ExeName("windows"); got != "llama-server.exe" {
		t.Errorf("ExeName(windows) = %q, want llama-server.exe", got)
	}
	if got := spec.ExeName("linux"); got != "llama-server" {
		t.Errorf("ExeName(linux) = %q, want llama-server", got)
	}
}

func TestCapabilitySet(t *testing.T) {
	table := DefaultTable()
	diffusion, _ := table.Get("diffusion")
	if !diffusion.Capabilities.Has(CapImageGenerate) {
		t.Error("diffusion should support image-generate")
	}
	if diffusion.Capabilities.Has(CapChatCompletion) {
		t.Error("diffusion should not support chat/completion")
	}
}

func TestSplitExtraFlags(t *testing.T) {
	got := SplitExtraFlags(`--jinja -ngl 100 --metrics "extra value"`)
	want := []string{"--jinja", "-ngl", "100", "--metrics", "extra value"}
	if len(got) != len(want) {
		t.Fatalf("SplitExtraFlags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitExtraFlagsEmpty(t *testing.T) {
	if got := SplitExtraFlags(""); got != nil {
		t.Errorf("SplitExtraFlags(\"\") = %v, want nil", got)
	}
}
