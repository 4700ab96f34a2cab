package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// client is a thin HTTP client for a running lemon-server, used by every
// subcommand that talks to the daemon rather than the filesystem directly.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(addr string) *client {
	return &client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError mirrors the {"error": "..."} body the Orchestrator's writeError
// produces, so a failed request surfaces the daemon's own message rather
// than a generic status line.
type apiError struct {
	status  int
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: %s", http.StatusText(e.status))
}

func (c *client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody *jsonBody
	if body != nil {
		reqBody = newJSONBody(body)
	}
	req, err := newRequest(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact lemon-server at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{status: resp.StatusCode}
	_ = json.NewDecoder(resp.Body).Decode(apiErr)
	return apiErr
}

// Health calls GET /health.
func (c *client) Health(ctx context.Context) (healthResponse, error) {
	var out healthResponse
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

type healthResponse struct {
	Status  string          `json:"status"`
	Engines []engineSummary `json:"engines"`
}

type engineSummary struct {
	Recipe  string `json:"recipe"`
	Backend string `json:"backend"`
	State   string `json:"state"`
}

// Models calls GET /models.
func (c *client) Models(ctx context.Context, showAll bool) ([]modelSummary, error) {
	path := "/models"
	if showAll {
		path += "?show_all=true"
	}
	var out struct {
		Data []modelSummary `json:"data"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Data, err
}

type modelSummary struct {
	ID         string `json:"id"`
	Recipe     string `json:"recipe"`
	Downloaded bool   `json:"downloaded"`
	Loaded     bool   `json:"loaded"`
}

// Recipes calls GET /recipes.
func (c *client) Recipes(ctx context.Context) ([]recipeSummary, error) {
	var out struct {
		Data []recipeSummary `json:"data"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/recipes", nil, &out)
	return out.Data, err
}

type recipeSummary struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// SystemInfo calls GET /system-info.
func (c *client) SystemInfo(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, "/system-info", nil, &out)
	return out, err
}

// Install calls POST /install and streams progress frames to onEvent.
func (c *client) Install(ctx context.Context, recipeName, backend string, onEvent eventSink) error {
	return c.streamEvents(ctx, "/install", map[string]string{"recipe": recipeName, "backend": backend}, onEvent)
}

// Pull calls POST /pull and streams progress frames to onEvent.
func (c *client) Pull(ctx context.Context, model string, onEvent eventSink) error {
	return c.streamEvents(ctx, "/pull", map[string]string{"model": model}, onEvent)
}
