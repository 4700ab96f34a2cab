// Package artifactstore implements the Artifact Store (C1): resolving,
// downloading, and extracting a (recipe, backend, version)'s archive into a
// versioned install directory, with atomic extraction and cleanup of prior
// versions.
package artifactstore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
)

// minProgressInterval rate-limits the progress callback per spec.md §4.1.
const minProgressInterval = 33 * time.Millisecond

// ProgressFunc receives monotonically non-decreasing bytesReceived and a
// possibly-zero totalBytes (zero when the transport withholds Content-Length).
type ProgressFunc func(bytesReceived, totalBytes int64)

// Store resolves install directories under root (normally
// <cache_root>/bin).
type Store struct {
	Root       string
	HTTPClient *http.Client

	// BaseURL is the release-download host, normally
	// "https://github.com". Overridable for tests.
	BaseURL string
}

// New constructs a Store rooted at <cacheDir>/bin.
func New(cacheDir string) *Store {
	return &Store{
		Root:       filepath.Join(cacheDir, "bin"),
		HTTPClient: http.DefaultClient,
		BaseURL:    "https://github.com",
	}
}

// InstallDir returns <root>/<recipe>/<backend>/<version>.
func (s *Store) InstallDir(recipe, backend, version string) string {
	return filepath.Join(s.Root, recipe, backend, version)
}

// backendDir returns <root>/<recipe>/<backend>, the parent holding all
// installed versions of one (recipe, backend).
func (s *Store) backendDir(recipe, backend string) string {
	return filepath.Join(s.Root, recipe, backend)
}

// InstallFromGitHub downloads filename from the release tagged tag of repo
// (owner/name), extracts it into <root>/<recipe>/<backend>/<version>/, and
// on success removes any sibling version directories for the same
// (recipe, backend). Extraction happens in a <version>.partial sibling that
// is renamed atomically into place; on any failure the partial directory is
// removed and no prior version is touched.
func (s *Store) InstallFromGitHub(ctx context.Context, recipe, backend, version, repo, filename, tag, expectedExe string, progress ProgressFunc) (string, error) {
	url := fmt.Sprintf("%s/%s/releases/download/%s/%s", s.BaseURL, repo, tag, filename)

	tmp, err := os.MkdirTemp("", "lemon-artifact-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	archivePath := filepath.Join(tmp, filename)
	total, err := downloadFile(ctx, s.HTTPClient, url, archivePath, progress)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}

	backendDir := s.backendDir(recipe, backend)
	if err := os.MkdirAll(backendDir, 0o755); err != nil {
		return "", err
	}

	finalDir := s.InstallDir(recipe, backend, version)
	partialDir := finalDir + ".partial"
	_ = os.RemoveAll(partialDir)
	if err := os.MkdirAll(partialDir, 0o755); err != nil {
		return "", err
	}

	if err := extractArchive(archivePath, partialDir); err != nil {
		os.RemoveAll(partialDir)
		return "", fmt.Errorf("extract %s (%s): %w", filename, units.HumanSize(float64(total)), err)
	}

	if expectedExe != "" {
		if _, err := os.Stat(filepath.Join(partialDir, expectedExe)); err != nil {
			os.RemoveAll(partialDir)
			return "", fmt.Errorf("extraction of %s did not produce expected executable %s", filename, expectedExe)
		}
	}

	if err := os.Rename(partialDir, finalDir); err != nil {
		os.RemoveAll(partialDir)
		return "", fmt.Errorf("finalize install dir: %w", err)
	}

	if err := s.removeSiblingVersions(recipe, backend, version); err != nil {
		// Non-fatal: the new version is installed and usable; stale
		// siblings are cleaned up best-effort.
		return finalDir, nil
	}

	return finalDir, nil
}

// removeSiblingVersions deletes every directory under
// <root>/<recipe>/<backend>/ whose name is not keepVersion.
func (s *Store) removeSiblingVersions(recipe, backend, keepVersion string) error {
	dir := s.backendDir(recipe, backend)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keepVersion {
			continue
		}
		if err := RemoveAllWithRetry(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
