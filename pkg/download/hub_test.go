package download

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListFilesRecursesSubdirectories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/tree/main"):
			json.NewEncoder(w).Encode([]RepoFile{
				{Type: "file", Path: "config.json", Size: 10},
				{Type: "directory", Path: "shards"},
			})
		case strings.HasSuffix(r.URL.Path, "/tree/main/shards"):
			json.NewEncoder(w).Encode([]RepoFile{
				{Type: "file", Path: "shards/model-00001.safetensors", Size: 1000},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHubClient(WithHubBaseURL(srv.URL))
	files, err := c.ListFiles(context.Background(), "org/model", "")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
}

func TestDownloadFileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHubClient(WithHubBaseURL(srv.URL))
	_, _, err := c.DownloadFile(context.Background(), "org/missing", "main", "model.gguf")
	var nf *HubNotFoundError
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.As(err, &nf) {
		t.Errorf("expected HubNotFoundError, got %v", err)
	}
}
