package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestNPULLMCapabilities(t *testing.T) {
	n := NewNPULLM(slog.Default(), "/opt/npu-llm-server", "")
	caps := n.Capabilities()
	if !caps.Has(recipe.CapChatCompletion) {
		t.Error("expected chat/completion capability")
	}
	if caps.Has(recipe.CapEmbeddings) {
		t.Error("npu-llm must not declare embeddings")
	}
}

func TestNPULLMSatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewNPULLM(slog.Default(), "/opt/npu-llm-server", "")
}
