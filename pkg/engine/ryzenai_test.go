package engine

import (
	"log/slog"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

func TestRyzenAICapabilities(t *testing.T) {
	r := NewRyzenAI(slog.Default(), "/opt/ryzen-ai-llm-server", "")
	caps := r.Capabilities()
	if !caps.Has(recipe.CapChatCompletion) || !caps.Has(recipe.CapEmbeddings) {
		t.Error("expected chat/completion and embeddings capabilities")
	}
	if caps.Has(recipe.CapReranking) {
		t.Error("ryzen-ai must not declare reranking")
	}
}

func TestRyzenAISatisfiesEngineInterface(t *testing.T) {
	var _ Engine = NewRyzenAI(slog.Default(), "/opt/ryzen-ai-llm-server", "")
}
