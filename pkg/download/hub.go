// Package download implements the Model Download Pipeline (C9): pulling
// model checkpoints from a HuggingFace-Hub-compatible registry onto local
// disk, with progress reporting and pause/cancel/resume control.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	defaultHubBaseURL   = "https://huggingface.co"
	defaultHubUserAgent = "lemon-server"
)

// HubClient speaks the subset of the HuggingFace Hub HTTP API needed to
// list and fetch files from a model repository. It is pull-only: lemon-server
// never publishes models, so no commit/LFS-upload machinery is included.
type HubClient struct {
	httpClient *http.Client
	userAgent  string
	token      string
	baseURL    string
}

// HubClientOption configures a HubClient.
type HubClientOption func(*HubClient)

// WithHubToken sets the bearer token used for gated/private repositories.
func WithHubToken(token string) HubClientOption {
	return func(c *HubClient) {
		if token != "" {
			c.token = token
		}
	}
}

// WithHubTransport overrides the HTTP transport, mainly for tests.
func WithHubTransport(transport http.RoundTripper) HubClientOption {
	return func(c *HubClient) {
		if transport != nil {
			c.httpClient.Transport = transport
		}
	}
}

// WithHubUserAgent overrides the default User-Agent header.
func WithHubUserAgent(userAgent string) HubClientOption {
	return func(c *HubClient) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithHubBaseURL overrides the hub origin, used to point at a test server.
func WithHubBaseURL(baseURL string) HubClientOption {
	return func(c *HubClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewHubClient builds a HubClient against the public hub by default.
func NewHubClient(opts ...HubClientOption) *HubClient {
	c := &HubClient{
		httpClient: &http.Client{},
		userAgent:  defaultHubUserAgent,
		baseURL:    defaultHubBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoFile describes one entry returned by the hub's tree listing.
type RepoFile struct {
	Type string   `json:"type"` // "file" or "directory"
	Path string   `json:"path"`
	Size int64    `json:"size"`
	OID  string   `json:"oid"`
	LFS  *LFSInfo `json:"lfs"`
}

// LFSInfo carries the real size of a file tracked by the hub's LFS layer;
// RepoFile.Size reflects the LFS pointer file, not the checkpoint bytes.
type LFSInfo struct {
	OID         string `json:"oid"`
	Size        int64  `json:"size"`
	PointerSize int64  `json:"pointer_size"`
}

// ActualSize returns the real file size, unwrapping LFS pointer sizes.
func (f *RepoFile) ActualSize() int64 {
	if f.LFS != nil {
		return f.LFS.Size
	}
	return f.Size
}

// Filename returns the base name of the file's repo path.
func (f *RepoFile) Filename() string {
	return path.Base(f.Path)
}

// ListFiles recursively lists every file in repo at revision, descending
// into subdirectories. An empty revision defaults to "main".
func (c *HubClient) ListFiles(ctx context.Context, repo, revision string) ([]RepoFile, error) {
	if revision == "" {
		revision = "main"
	}
	return c.listFilesRecursive(ctx, repo, revision, "")
}

func (c *HubClient) listFilesRecursive(ctx context.Context, repo, revision, dirPath string) ([]RepoFile, error) {
	entries, err := c.ListFilesInPath(ctx, repo, revision, dirPath)
	if err != nil {
		return nil, err
	}

	var all []RepoFile
	for _, entry := range entries {
		switch entry.Type {
		case "file":
			all = append(all, entry)
		case "directory":
			sub, err := c.listFilesRecursive(ctx, repo, revision, entry.Path)
			if err != nil {
				return nil, fmt.Errorf("list files in %s: %w", entry.Path, err)
			}
			all = append(all, sub...)
		}
	}
	return all, nil
}

// ListFilesInPath lists the immediate entries at dirPath, non-recursively.
func (c *HubClient) ListFilesInPath(ctx context.Context, repo, revision, dirPath string) ([]RepoFile, error) {
	if revision == "" {
		revision = "main"
	}
	endpointPath := path.Join(revision, dirPath)
	reqURL := fmt.Sprintf("%s/api/models/%s/tree/%s", c.baseURL, repo, endpointPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp, repo); err != nil {
		return nil, err
	}

	var files []RepoFile
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return files, nil
}

// DownloadFile streams filename from repo at revision. The caller must
// close the returned reader. contentLength is -1 when the server omits it.
func (c *HubClient) DownloadFile(ctx context.Context, repo, revision, filename string) (io.ReadCloser, int64, error) {
	if revision == "" {
		revision = "main"
	}
	reqURL := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, repo, revision, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download file: %w", err)
	}
	if err := c.checkResponse(resp, repo); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// RepoInfo carries hub repository metadata.
type RepoInfo struct {
	LastModified time.Time `json:"lastModified"`
}

// GetRepoInfo fetches metadata about repo at revision.
func (c *HubClient) GetRepoInfo(ctx context.Context, repo, revision string) (*RepoInfo, error) {
	if revision == "" {
		revision = "main"
	}
	reqURL := fmt.Sprintf("%s/api/models/%s/revision/%s", c.baseURL, repo, url.PathEscape(revision))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get repo info: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp, repo); err != nil {
		return nil, err
	}

	var info RepoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &info, nil
}

func (c *HubClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *HubClient) checkResponse(resp *http.Response, repo string) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return &HubAuthError{Repo: repo, StatusCode: resp.StatusCode}
	case http.StatusNotFound:
		return &HubNotFoundError{Repo: repo}
	case http.StatusTooManyRequests:
		return &HubRateLimitError{Repo: repo}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// HubAuthError indicates the repository requires (or rejected) credentials.
type HubAuthError struct {
	Repo       string
	StatusCode int
}

func (e *HubAuthError) Error() string {
	return fmt.Sprintf("authentication required for repository %q (status %d)", e.Repo, e.StatusCode)
}

// HubNotFoundError indicates the repository or revision does not exist.
type HubNotFoundError struct {
	Repo string
}

func (e *HubNotFoundError) Error() string {
	return fmt.Sprintf("repository %q not found", e.Repo)
}

// HubRateLimitError indicates the hub throttled this client.
type HubRateLimitError struct {
	Repo string
}

func (e *HubRateLimitError) Error() string {
	return fmt.Sprintf("rate limited while accessing repository %q", e.Repo)
}
