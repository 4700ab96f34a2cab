// Package server wires the Version Registry, Artifact Store, Backend
// Manager, Model Resolver, Download Pipeline, and Orchestrator into a
// runnable HTTP service. It backs both the lemon-server daemon and
// lemonctl's "serve" subcommand, so the two never drift.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lemonade-sdk/lemon-server/pkg/artifactstore"
	"github.com/lemonade-sdk/lemon-server/pkg/backendmanager"
	"github.com/lemonade-sdk/lemon-server/pkg/download"
	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/events"
	"github.com/lemonade-sdk/lemon-server/pkg/models"
	"github.com/lemonade-sdk/lemon-server/pkg/orchestrator"
	"github.com/lemonade-sdk/lemon-server/pkg/recipe"
	"github.com/lemonade-sdk/lemon-server/pkg/version"
)

// shutdownGrace bounds how long Run waits for in-flight requests to drain
// once ctx is cancelled before forcing the listener closed.
const shutdownGrace = 10 * time.Second

// Run wires every component and blocks serving HTTP until ctx is cancelled
// or the listener fails. It is the single source of truth for startup
// order: directories, then the static recipe table and version registry,
// then the stores and managers that depend on them, then the orchestrator,
// then the HTTP server.
func Run(ctx context.Context, log *slog.Logger) error {
	orch, err := wire(log)
	if err != nil {
		return err
	}

	handler := orch.Router(envconfig.AllowedOrigins())
	srv := &http.Server{
		Addr:              ":" + envconfig.Port(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed, forcing close", "error", err)
			return srv.Close()
		}
		return nil
	}
}

// wire constructs the Orchestrator and every component it depends on.
func wire(log *slog.Logger) (*orchestrator.Orchestrator, error) {
	cacheDir, err := envconfig.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	configDir, err := envconfig.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	log.Info("LEMON_CACHE_DIR", "path", cacheDir)
	log.Info("LEMON_CONFIG_DIR", "path", configDir)

	table := recipe.DefaultTable()

	versions, err := version.LoadRegistry(configDir)
	if err != nil {
		return nil, fmt.Errorf("load backend version registry: %w", err)
	}

	store := artifactstore.New(cacheDir)
	backends := backendmanager.New(log.With("component", "backend-manager"), table, versions, store)

	resolver, err := models.NewResolver(cacheDir, configDir)
	if err != nil {
		return nil, fmt.Errorf("load model resolver: %w", err)
	}

	hub := download.NewHubClient(
		download.WithHubToken(envconfig.HuggingFaceToken()),
		download.WithHubUserAgent("lemon-server"),
	)
	control := events.NewControlChannel()
	pipeline := download.NewPipeline(log.With("component", "download-pipeline"), hub, control)

	return orchestrator.New(
		log.With("component", "orchestrator"),
		table,
		backends,
		store,
		versions,
		resolver,
		pipeline,
		orchestrator.DefaultEngineFactory,
	), nil
}
