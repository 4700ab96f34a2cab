package orchestrator

import (
	"net/http"

	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/metrics"
	"github.com/lemonade-sdk/lemon-server/pkg/middleware"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

// Router builds the full HTTP mux, CORS-wrapped, using Go's enhanced
// net/http.ServeMux "METHOD /path" route patterns. allowedOrigins, if
// empty, falls back to envconfig.AllowedOrigins().
func (o *Orchestrator) Router(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", o.handleHealth)
	mux.HandleFunc("GET /system-info", o.handleSystemInfo)
	mux.HandleFunc("GET /recipes", o.handleRecipes)
	mux.HandleFunc("GET /stats", o.handleStats)
	if !envconfig.DisableMetrics() {
		mux.Handle("GET /stats/metrics", metrics.NewAggregatedHandler(o.log, o))
	}

	mux.HandleFunc("GET /models", o.handleModels)
	mux.HandleFunc("POST /models/register", o.handleRegisterModel)
	mux.HandleFunc("POST /pull", o.handlePull)
	mux.HandleFunc("POST /delete", o.handleDelete)
	mux.HandleFunc("POST /load", o.handleLoad)
	mux.HandleFunc("POST /unload", o.handleUnload)
	mux.HandleFunc("POST /install", o.handleInstall)
	mux.HandleFunc("POST /uninstall", o.handleUninstall)

	// The public surface matches spec.md §6 exactly (no "/v1" prefix); the
	// second argument to handleOpenAI/handleMultipart is the path forwarded
	// to the child engine, which does speak the OpenAI-server "/v1/..." wire
	// convention regardless of what this gateway exposes externally.
	mux.HandleFunc("POST /chat/completions", o.handleOpenAI(recipe.CapChatCompletion, "/v1/chat/completions"))
	mux.HandleFunc("POST /completions", o.handleOpenAI(recipe.CapChatCompletion, "/v1/completions"))
	mux.HandleFunc("POST /responses", o.handleOpenAI(recipe.CapChatCompletion, "/v1/responses"))
	mux.HandleFunc("POST /embeddings", o.handleOpenAI(recipe.CapEmbeddings, "/v1/embeddings"))
	mux.HandleFunc("POST /reranking", o.handleOpenAI(recipe.CapReranking, "/v1/reranking"))
	mux.HandleFunc("POST /images/generations", o.handleOpenAI(recipe.CapImageGenerate, "/v1/images/generations"))
	mux.HandleFunc("POST /images/edits", o.handleMultipart(recipe.CapImageEdit, "/v1/images/edits"))
	mux.HandleFunc("POST /images/variations", o.handleMultipart(recipe.CapImageVariation, "/v1/images/variations"))
	mux.HandleFunc("POST /audio/transcriptions", o.handleMultipart(recipe.CapAudioTranscribe, "/v1/audio/transcriptions"))
	mux.HandleFunc("POST /audio/speech", o.handleOpenAI(recipe.CapAudioSpeak, "/v1/audio/speech"))

	return middleware.CORS(allowedOrigins, mux)
}
