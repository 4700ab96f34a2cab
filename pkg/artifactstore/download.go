package artifactstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// downloadFile GETs url into destPath, invoking progress at most once per
// minProgressInterval plus exactly once more on completion, per spec.md
// §4.1's progress protocol. It returns the number of bytes written.
func downloadFile(ctx context.Context, client *http.Client, url, destPath string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	var written int64
	lastReport := time.Time{}
	buf := make([]byte, 256*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if progress != nil {
				now := time.Now()
				if now.Sub(lastReport) >= minProgressInterval {
					progress(written, total)
					lastReport = now
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, readErr
		}
	}

	if progress != nil {
		// Final callback: exactly once, unconditionally, on completion.
		progress(written, total)
	}

	return written, nil
}

// RemoveAllWithRetry retries os.RemoveAll up to 5 times with a 500ms
// backoff, tolerating transient file locks from antivirus or indexing
// software (spec.md §4.3 uninstall semantics, reused here for sibling
// version cleanup).
func RemoveAllWithRetry(path string) error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil
		}
		lastErr = fmt.Errorf("path still exists after RemoveAll: %s", path)
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}
