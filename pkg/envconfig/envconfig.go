// Package envconfig centralizes environment-variable configuration for
// lemon-server, following the LEMON_* naming convention.
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/lemonade-sdk/lemon-server/pkg/logging"
)

// Var returns an environment variable stripped of leading/trailing quotes and
// whitespace, which tolerates values pasted from shell snippets.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a lazy bool accessor for key, falling back to
// defaultValue when the variable is unset or unparsable.
func BoolWithDefault(key string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(key); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return defaultValue
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a lazy bool accessor defaulting to false.
func Bool(key string) func() bool {
	withDefault := BoolWithDefault(key)
	return func() bool { return withDefault(false) }
}

// LogLevel reads LEMON_LOG_LEVEL and returns the corresponding slog.Level.
func LogLevel() slog.Level {
	return logging.ParseLevel(Var("LEMON_LOG_LEVEL"))
}

// CacheDir returns the cache root under which backend installs and model
// weights are stored: <cache_root>/bin/... and <cache_root>/models/....
// Configured via LEMON_CACHE_DIR; defaults to a per-OS user cache directory.
func CacheDir() (string, error) {
	if s := Var("LEMON_CACHE_DIR"); s != "" {
		return s, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "lemon-server"), nil
}

// ConfigDir returns the directory holding backend_versions.json and
// user_models.json. Configured via LEMON_CONFIG_DIR; defaults to a per-OS
// user config directory.
func ConfigDir() (string, error) {
	if s := Var("LEMON_CONFIG_DIR"); s != "" {
		return s, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "lemon-server"), nil
}

// Port returns the HTTP listen port. Configured via LEMON_PORT; defaults to
// 8000.
func Port() string {
	if s := Var("LEMON_PORT"); s != "" {
		return s
	}
	return "8000"
}

// GitHubToken returns the optional LEMON_GITHUB_TOKEN value. AsMap reports
// whether it is set; the Artifact Store's downloader does not send it, so
// backend release downloads are unauthenticated.
func GitHubToken() string {
	return Var("LEMON_GITHUB_TOKEN")
}

// HuggingFaceToken returns an optional token for gated model repositories on
// the model hub. Configured via LEMON_HF_TOKEN.
func HuggingFaceToken() string {
	return Var("LEMON_HF_TOKEN")
}

// DisableMetrics is true when LEMON_DISABLE_METRICS is set to a truthy
// value.
var DisableMetrics = Bool("LEMON_DISABLE_METRICS")

// AllowedOrigins returns the CORS allow-list. It reads LEMON_ORIGINS (a
// comma-separated list) and always appends the default loopback origins on
// http and https with wildcard ports, mirroring a desktop app talking to a
// local server on an arbitrary port.
func AllowedOrigins() (origins []string) {
	if s := Var("LEMON_ORIGINS"); s != "" {
		for _, o := range strings.Split(s, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	for _, host := range []string{"localhost", "127.0.0.1"} {
		origins = append(origins,
			"http://"+host,
			"https://"+host,
			"http://"+host+":*",
			"https://"+host+":*",
		)
	}

	return origins
}

// HostOS returns the normalized host operating system name used for
// picking install-params archive filenames (linux, darwin, windows).
func HostOS() string {
	return runtime.GOOS
}

// HostArch returns the normalized host architecture (amd64, arm64, ...).
func HostArch() string {
	return runtime.GOARCH
}

// EnvVar describes a single environment variable with its current value and
// a human-readable description, used for the CLI's introspection output.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns all lemon-server environment variables with their current
// values and descriptions.
func AsMap() map[string]EnvVar {
	cacheDir, _ := CacheDir()
	configDir, _ := ConfigDir()
	return map[string]EnvVar{
		"LEMON_CACHE_DIR":       {"LEMON_CACHE_DIR", cacheDir, "Root directory for backend installs and model weights"},
		"LEMON_CONFIG_DIR":      {"LEMON_CONFIG_DIR", configDir, "Directory for backend_versions.json and user_models.json"},
		"LEMON_PORT":            {"LEMON_PORT", Port(), "HTTP listen port (default: 8000)"},
		"LEMON_LOG_LEVEL":       {"LEMON_LOG_LEVEL", Var("LEMON_LOG_LEVEL"), "Log verbosity: debug, info, warn, error (default: info)"},
		"LEMON_ORIGINS":         {"LEMON_ORIGINS", AllowedOrigins(), "Comma-separated CORS allowed origins, in addition to loopback defaults"},
		"LEMON_GITHUB_TOKEN":    {"LEMON_GITHUB_TOKEN", GitHubToken() != "", "Whether a GitHub token is configured (not sent with backend release downloads)"},
		"LEMON_HF_TOKEN":        {"LEMON_HF_TOKEN", HuggingFaceToken() != "", "Whether a model hub token is configured for gated checkpoints"},
		"LEMON_DISABLE_METRICS": {"LEMON_DISABLE_METRICS", DisableMetrics(), "Disable the /stats/metrics aggregation endpoint"},
	}
}
