package download

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemonade-sdk/lemon-server/pkg/events"
)

func testPipeline(t *testing.T, handler http.HandlerFunc) (*Pipeline, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hub := NewHubClient(WithHubBaseURL(srv.URL))
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewPipeline(log, hub, events.NewControlChannel()), srv
}

func TestPullDownloadsWeightsAndConfig(t *testing.T) {
	const weightBody = "fake-gguf-bytes"
	p, _ := testPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/tree/main"):
			json.NewEncoder(w).Encode([]RepoFile{
				{Type: "file", Path: "model.gguf", Size: int64(len(weightBody))},
				{Type: "file", Path: "config.json", Size: 4},
				{Type: "file", Path: "unrelated.bin", Size: 4},
			})
		case strings.Contains(r.URL.Path, "/resolve/main/model.gguf"):
			_, _ = w.Write([]byte(weightBody))
		case strings.Contains(r.URL.Path, "/resolve/main/config.json"):
			_, _ = w.Write([]byte("{}\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	dest := t.TempDir()
	var sse bytes.Buffer
	err := p.Pull(context.Background(), "xfer-1", "org/model", "org/model", "main", dest, KindModel, events.NewWriter(&sse))
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "model.gguf")); err != nil {
		t.Errorf("expected model.gguf on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "unrelated.bin")); err == nil {
		t.Error("unrelated.bin should not have been downloaded")
	}
	if !strings.Contains(sse.String(), "event:complete") {
		t.Errorf("expected a complete event, got %q", sse.String())
	}

	transfer, ok := p.Registry().Get("xfer-1")
	if !ok || transfer.State != StateCompleted {
		t.Errorf("transfer = %+v, ok=%v, want State=completed", transfer, ok)
	}
}

func TestPullSkipsAlreadyPresentFiles(t *testing.T) {
	hit := false
	p, _ := testPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/tree/main"):
			json.NewEncoder(w).Encode([]RepoFile{{Type: "file", Path: "model.gguf", Size: 4}})
		case strings.Contains(r.URL.Path, "/resolve/main/model.gguf"):
			hit = true
			_, _ = w.Write([]byte("abcd"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "model.gguf"), []byte("abcd"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.Pull(context.Background(), "xfer-resume", "org/model", "org/model", "main", dest, KindModel, nil); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if hit {
		t.Error("expected resume to skip the already-downloaded file without re-fetching it")
	}
}
