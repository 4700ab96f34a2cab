package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/logging"
	"github.com/lemonade-sdk/lemon-server/pkg/server"
)

// initLogger creates the application logger based on the LEMON_LOG_LEVEL
// env var.
func initLogger() *slog.Logger {
	return logging.New(envconfig.LogLevel())
}

var log = initLogger()

// exitFunc is used for Fatal-like exits; held in a variable so it can be
// replaced.
var exitFunc = func(code int) { os.Exit(code) }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx, log); err != nil {
		log.Error("lemon-server exited with error", "error", err)
		exitFunc(1)
		return
	}
	log.Info("lemon-server stopped")
}
