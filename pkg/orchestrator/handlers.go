package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/download"
	"github.com/lemonade-sdk/lemon-server/pkg/engine"
	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/events"
	"github.com/lemonade-sdk/lemon-server/pkg/models"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
)

const maxRequestBody = 64 << 20 // 64MiB, generous for base64 image payloads

// inferenceRequest is the subset of an OpenAI-shaped request body the
// Orchestrator itself needs to read; everything else passes through to the
// engine untouched.
type inferenceRequest struct {
	Model  string         `json:"model"`
	Stream bool           `json:"stream"`
	Extra  map[string]any `json:"-"`
}

// decodeInferenceRequest reads r's body as JSON into both the typed fields
// above and the raw map forwarded to the engine.
func decodeInferenceRequest(w http.ResponseWriter, r *http.Request) (inferenceRequest, map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return inferenceRequest{}, nil, fmt.Errorf("decode request body: %w", err)
	}
	req := inferenceRequest{Extra: raw}
	if m, ok := raw["model"].(string); ok {
		req.Model = m
	}
	if s, ok := raw["stream"].(bool); ok {
		req.Stream = s
	}
	return req, raw, nil
}

// handleOpenAI dispatches one OpenAI-compatible unary or streaming request
// for capability cap at the child's relative path.
func (o *Orchestrator) handleOpenAI(cap recipe.Capability, childPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, raw, err := decodeInferenceRequest(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.Model == "" {
			writeError(w, fmt.Errorf("missing required field: model"))
			return
		}

		eng, info, err := o.forward(r.Context(), req.Model, loadOptionsFrom(raw), cap)
		if err != nil {
			o.recordFailure(req.Model, info, err)
			writeError(w, err)
			return
		}

		o.dispatch(w, r, eng, info, req, childPath)
	}
}

// forward resolves modelName's engine via Ensure and checks that it
// declares cap. The model-invalidated retry happens later, in dispatch.
func (o *Orchestrator) forward(ctx context.Context, modelName string, opts engine.LoadOptions, cap recipe.Capability) (engine.Engine, models.ModelInfo, error) {
	eng, info, err := o.Ensure(ctx, modelName, opts)
	if err != nil {
		return nil, info, err
	}
	if err := engine.RequireCapability(eng.Capabilities(), info.Recipe, cap); err != nil {
		return nil, info, err
	}
	return eng, info, nil
}

// dispatch forwards the decoded request body to childPath on eng, retrying
// once by re-pulling the model if the child reports it as invalidated.
func (o *Orchestrator) dispatch(w http.ResponseWriter, r *http.Request, eng engine.Engine, info models.ModelInfo, req inferenceRequest, childPath string) {
	started := time.Now()
	adapter, ok := eng.(interface {
		ForwardUnary(ctx context.Context, method, path string, body any, timeout time.Duration) ([]byte, string, int, error)
		ForwardStreaming(ctx context.Context, method, path string, body any, sink interface{ Write([]byte) (int, error) }) (int, error)
	})
	if !ok {
		writeError(w, fmt.Errorf("engine %s does not support HTTP forwarding", info.Recipe))
		return
	}

	if req.Stream {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		flusher, _ := w.(http.Flusher)
		sink := &flushWriter{w: w, f: flusher}
		status, err := adapter.ForwardStreaming(r.Context(), http.MethodPost, childPath, req.Extra, sink)
		o.recordOutcome(req.Model, info, status, true, time.Since(started))
		if err != nil && status == 0 {
			writeError(w, err)
		}
		return
	}

	body, contentType, status, err := adapter.ForwardUnary(r.Context(), http.MethodPost, childPath, req.Extra, 0)
	if isModelInvalidated(status, body) {
		o.UnloadModel(req.Model)
		body, contentType, status, err = adapter.ForwardUnary(r.Context(), http.MethodPost, childPath, req.Extra, 0)
	}
	o.recordOutcome(req.Model, info, status, false, time.Since(started))
	if err != nil {
		writeError(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// isModelInvalidated is a conservative heuristic for spec.md §4.7.1.e's
// "engine reports the model invalidated on first use": a 404 from the
// child after a successful load means the weights it was pointed at are no
// longer the ones it expected.
func isModelInvalidated(status int, _ []byte) bool {
	return status == http.StatusNotFound
}

func (o *Orchestrator) recordOutcome(model string, info models.ModelInfo, status int, streaming bool, dur time.Duration) {
	o.stats.Record(requestRecord{
		Model: model, Recipe: info.Recipe, StartedAt: time.Now().Add(-dur),
		DurationMs: dur.Milliseconds(), StatusCode: status, Streaming: streaming,
	})
}

func (o *Orchestrator) recordFailure(model string, info models.ModelInfo, err error) {
	o.stats.Record(requestRecord{
		Model: model, Recipe: info.Recipe, StartedAt: time.Now(),
		StatusCode: statusFor(err),
	})
}

// handleMultipart dispatches one multipart/form-data request (audio
// transcription, image edit, image variation) for capability cap. The
// "model" form field selects the engine the same way the "model" JSON
// field does for the unary/streaming endpoints.
func (o *Orchestrator) handleMultipart(cap recipe.Capability, childPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxRequestBody); err != nil {
			writeError(w, fmt.Errorf("parse multipart form: %w", err))
			return
		}
		modelName := r.FormValue("model")
		if modelName == "" {
			writeError(w, fmt.Errorf("missing required field: model"))
			return
		}

		opts := engine.LoadOptions{}
		if lang := r.FormValue("language"); lang != "" {
			opts["language"] = lang
		}
		if voice := r.FormValue("voice"); voice != "" {
			opts["voice"] = voice
		}

		eng, info, err := o.forward(r.Context(), modelName, opts, cap)
		if err != nil {
			o.recordFailure(modelName, info, err)
			writeError(w, err)
			return
		}
		adapter, ok := eng.(interface {
			ForwardMultipart(ctx context.Context, path string, fields []engine.MultipartField) ([]byte, int, error)
		})
		if !ok {
			writeError(w, fmt.Errorf("engine %s does not support multipart forwarding", info.Recipe))
			return
		}

		fields, closers := multipartFields(r)
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		started := time.Now()
		body, status, err := adapter.ForwardMultipart(r.Context(), childPath, fields)
		o.recordOutcome(modelName, info, status, false, time.Since(started))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

// multipartFields re-packs a parsed multipart form (text values and file
// uploads) into the Adapter's MultipartField shape so it can be re-encoded
// for the child engine.
func multipartFields(r *http.Request) ([]engine.MultipartField, []io.Closer) {
	var fields []engine.MultipartField
	var closers []io.Closer
	if r.MultipartForm == nil {
		return fields, closers
	}
	for name, values := range r.MultipartForm.Value {
		for _, v := range values {
			fields = append(fields, engine.MultipartField{Name: name, Value: v})
		}
	}
	for name, headers := range r.MultipartForm.File {
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				continue
			}
			closers = append(closers, f)
			fields = append(fields, engine.MultipartField{Name: name, Filename: h.Filename, Reader: f})
		}
	}
	return fields, closers
}

// loadOptionsFrom extracts the subset of a request body relevant to the
// fingerprint and Load argv (context_size, embedding, backend, ...),
// leaving chat-shaped fields (messages, temperature, ...) out since they do
// not affect which engine instance serves the request.
func loadOptionsFrom(raw map[string]any) engine.LoadOptions {
	opts := engine.LoadOptions{}
	for _, k := range []string{"context_size", "embedding", "backend", "language", "voice", "mmproj", "vae", "text_encoder"} {
		if v, ok := raw[k]; ok {
			opts[k] = v
		}
	}
	return opts
}

type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

// handleModels serves GET /models. show_all=true includes catalog entries
// never downloaded; otherwise only models already on disk are listed.
func (o *Orchestrator) handleModels(w http.ResponseWriter, r *http.Request) {
	showAll := r.URL.Query().Get("show_all") == "true"

	type modelOut struct {
		ID         string `json:"id"`
		Recipe     string `json:"recipe"`
		Downloaded bool   `json:"downloaded"`
		Loaded     bool   `json:"loaded"`
	}
	seen := make(map[string]bool)
	var out []modelOut
	for _, info := range o.resolver.List() {
		seen[info.Name] = true
		downloaded := o.resolver.IsDownloaded(info)
		if !showAll && !downloaded {
			continue
		}
		out = append(out, modelOut{
			ID: info.Name, Recipe: info.Recipe, Downloaded: downloaded,
			Loaded: o.IsModelLoaded(info.Name),
		})
	}

	// show_all also surfaces the static catalog (models known to lemon-server
	// but never registered or downloaded), resolved for its on-disk root so
	// Downloaded reflects reality rather than defaulting to true.
	if showAll {
		for _, entry := range models.Catalog() {
			if seen[entry.Name] {
				continue
			}
			info, err := o.resolver.Resolve(entry.Name)
			if err != nil {
				continue
			}
			out = append(out, modelOut{
				ID: info.Name, Recipe: info.Recipe, Downloaded: o.resolver.IsDownloaded(info),
				Loaded: o.IsModelLoaded(info.Name),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// handleRegisterModel serves POST /models/register: add a checkpoint under
// a user-chosen name without triggering a download.
func (o *Orchestrator) handleRegisterModel(w http.ResponseWriter, r *http.Request) {
	var info models.ModelInfo
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&info); err != nil {
		writeError(w, err)
		return
	}
	if info.Name == "" {
		writeError(w, fmt.Errorf("missing required field: name"))
		return
	}
	if err := o.resolver.Register(info.Name, info); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handlePull serves POST /pull: download modelName's files, streaming
// progress/complete/error frames as Server-Sent Events.
func (o *Orchestrator) handlePull(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	info, err := o.resolver.Resolve(body.Model)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	ew := events.NewWriter(&flushWriter{w: w, f: flusherOf(w)})
	_ = o.downloadModelStreamed(r.Context(), info, body.Model, ew)
}

func flusherOf(w http.ResponseWriter) http.Flusher {
	if f, ok := w.(http.Flusher); ok {
		return f
	}
	return nil
}

func (o *Orchestrator) downloadModelStreamed(ctx context.Context, info models.ModelInfo, modelName string, w *events.Writer) error {
	repo := stripVariant(info.Checkpoint)
	return o.pipeline.Pull(ctx, modelName, modelName, repo, "main", info.Root(), download.KindModel, w)
}

// handleInstall serves POST /install: install a backend, streaming
// progress as Server-Sent Events.
func (o *Orchestrator) handleInstall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipe  string `json:"recipe"`
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	ew := events.NewWriter(&flushWriter{w: w, f: flusherOf(w)})
	_ = o.backends.Install(r.Context(), body.Recipe, body.Backend, ew)
}

// handleUninstall serves POST /uninstall.
func (o *Orchestrator) handleUninstall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipe  string `json:"recipe"`
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	if err := o.backends.Uninstall(body.Recipe, body.Backend); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "uninstalled"})
}

// handleUnload serves POST /unload.
func (o *Orchestrator) handleUnload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipe  string `json:"recipe"`
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	o.Unload(body.Recipe, body.Backend)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
}

// handleLoad serves POST /load: an explicit pre-flight without forwarding
// an inference request, used by clients that want to warm an engine ahead
// of the first real call.
func (o *Orchestrator) handleLoad(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string         `json:"model"`
		Opts  map[string]any `json:"options"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	_, info, err := o.Ensure(r.Context(), body.Model, engine.LoadOptions(body.Opts))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "recipe": info.Recipe})
}

// handleDelete serves POST /delete: remove a registered model's metadata
// (its downloaded files, if any, are left on disk for the caller to clean
// up separately via uninstall semantics at the filesystem layer).
func (o *Orchestrator) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	if err := o.resolver.Unregister(body.Model); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleHealth serves GET /health: the Orchestrator's own view of its
// slots, without probing any child engine.
func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
	slots := o.LoadedSlots()
	out := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]any{"recipe": s.Recipe, "backend": s.Backend, "state": s.State})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "engines": out})
}

// handleSystemInfo serves GET /system-info: host OS/arch plus the Recipes
// Cache snapshot enriched by the Backend Manager.
func (o *Orchestrator) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if _, err := o.backends.GetAllBackendsStatus(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"os":       envconfig.HostOS(),
		"arch":     envconfig.HostArch(),
		"backends": o.backends.Cache().Snapshot(),
	})
}

// handleRecipes serves GET /recipes: the static capability table, useful
// for a client deciding which endpoint a model can serve.
func (o *Orchestrator) handleRecipes(w http.ResponseWriter, r *http.Request) {
	type recipeOut struct {
		Name         string   `json:"name"`
		Capabilities []string `json:"capabilities"`
	}
	var out []recipeOut
	for _, name := range o.table.Recipes() {
		spec, _ := o.table.Get(name)
		caps := make([]string, 0, len(spec.Capabilities))
		for c := range spec.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, recipeOut{Name: name, Capabilities: caps})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// handleStats serves GET /stats: the aggregate + per-model request log.
func (o *Orchestrator) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
