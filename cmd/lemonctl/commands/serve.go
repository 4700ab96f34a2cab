package commands

import (
	"os/signal"
	"syscall"

	"github.com/lemonade-sdk/lemon-server/pkg/envconfig"
	"github.com/lemonade-sdk/lemon-server/pkg/logging"
	"github.com/lemonade-sdk/lemon-server/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the lemon-server daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			log := logging.New(envconfig.LogLevel())
			return server.Run(ctx, log)
		},
	}
	return c
}
