package artifactstore

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%q): %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write(%q): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func TestInstallFromGitHubExtractsAndCleansSiblings(t *testing.T) {
	zipData := buildZip(t, map[string]string{"llama-server.exe": "fake binary"})

	mux := http.NewServeMux()
	mux.HandleFunc("/owner/repo/releases/download/v1.3.0/asset.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(zipData)))
		w.Write(zipData)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cacheDir := t.TempDir()
	store := New(cacheDir)
	store.HTTPClient = srv.Client()
	store.BaseURL = srv.URL

	oldDir := store.InstallDir("gpu-llama", "vulkan", "1.2.0")
	if err := os.MkdirAll(oldDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var progressCalls int
	var lastBytes int64
	finalDir, err := store.InstallFromGitHub(context.Background(), "gpu-llama", "vulkan", "1.3.0",
		"owner/repo", "asset.zip", "v1.3.0", "llama-server.exe",
		func(bytesReceived, totalBytes int64) {
			progressCalls++
			lastBytes = bytesReceived
		})
	if err != nil {
		t.Fatalf("InstallFromGitHub() error = %v", err)
	}

	if progressCalls == 0 {
		t.Error("expected at least one progress callback")
	}
	if lastBytes != int64(len(zipData)) {
		t.Errorf("final progress bytes = %d, want %d", lastBytes, len(zipData))
	}
	if _, err := os.Stat(filepath.Join(finalDir, "llama-server.exe")); err != nil {
		t.Fatalf("expected extracted exe in %s: %v", finalDir, err)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Errorf("expected old version dir removed, stat err = %v", err)
	}
}

func TestInstallFromGitHubMissingExecutableFails(t *testing.T) {
	zipData := buildZip(t, map[string]string{"README.txt": "no exe here"})

	mux := http.NewServeMux()
	mux.HandleFunc("/owner/repo/releases/download/v1.0.0/asset.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := New(t.TempDir())
	store.HTTPClient = srv.Client()
	store.BaseURL = srv.URL

	_, err := store.InstallFromGitHub(context.Background(), "tts", "cpu", "1.0.0",
		"owner/repo", "asset.zip", "v1.0.0", "tts-server", nil)
	if err == nil {
		t.Fatal("expected error when extraction does not produce the expected executable")
	}

	if _, statErr := os.Stat(store.InstallDir("tts", "cpu", "1.0.0")); !os.IsNotExist(statErr) {
		t.Error("expected no install directory to remain after a failed install")
	}
	if _, statErr := os.Stat(store.InstallDir("tts", "cpu", "1.0.0") + ".partial"); !os.IsNotExist(statErr) {
		t.Error("expected partial directory to be cleaned up after failure")
	}
}
