// Package logging provides the slog-based logger used throughout lemon-server.
package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logger type used across the codebase.
type Logger = *slog.Logger

// ParseLevel parses a LEMON_LOG_LEVEL value into a slog.Level. Unrecognized
// or empty values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a text-handler logger writing to stderr at the given level.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Component returns a child logger tagged with a "component" attribute, the
// convention used to scope log lines to a single subsystem (backend
// manager, a specific engine instance, the download pipeline, ...).
func Component(log *slog.Logger, name string) *slog.Logger {
	return log.With("component", name)
}

// lineWriter is an io.WriteCloser that logs each line written to it through
// a *slog.Logger, one record per line. It is used to capture a spawned
// engine's stdout/stderr without blocking the child on a full pipe.
type lineWriter struct {
	logger *slog.Logger
	level  slog.Level
	pw     *io.PipeWriter
	done   chan struct{}
}

// NewLineWriter returns an io.WriteCloser that forwards each newline-delimited
// line written to it to logger at the given level. Close must be called to
// release the background goroutine; it blocks until buffered lines drain.
func NewLineWriter(logger *slog.Logger, level slog.Level) io.WriteCloser {
	pr, pw := io.Pipe()
	lw := &lineWriter{logger: logger, level: level, pw: pw, done: make(chan struct{})}
	go lw.drain(pr)
	return lw
}

func (lw *lineWriter) drain(pr *io.PipeReader) {
	defer close(lw.done)
	scanner := bufio.NewScanner(pr)
	// Some engines emit very long single lines; grow the buffer instead of
	// truncating silently.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lw.logger.Log(context.Background(), lw.level, scanner.Text())
	}
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	return lw.pw.Write(p)
}

func (lw *lineWriter) Close() error {
	err := lw.pw.Close()
	<-lw.done
	return err
}

// FilteringWriter wraps an io.Writer and drops any line for which skip
// returns true before it reaches dst. It backs filter_health_logs:
// suppressing a child engine's readiness-probe access-log lines so they
// don't swamp the logs during warmup polling.
type FilteringWriter struct {
	dst  io.Writer
	skip func(line string) bool
	buf  strings.Builder
}

// NewFilteringWriter constructs a FilteringWriter.
func NewFilteringWriter(dst io.Writer, skip func(line string) bool) *FilteringWriter {
	return &FilteringWriter{dst: dst, skip: skip}
}

func (f *FilteringWriter) Write(p []byte) (int, error) {
	n := len(p)
	for _, b := range p {
		if b == '\n' {
			line := f.buf.String()
			f.buf.Reset()
			if !f.skip(line) {
				if _, err := io.WriteString(f.dst, line+"\n"); err != nil {
					return n, err
				}
			}
			continue
		}
		f.buf.WriteByte(b)
	}
	return n, nil
}
