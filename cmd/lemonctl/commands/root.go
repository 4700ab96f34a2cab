// Package commands implements the lemonctl command tree: a thin client
// for a running lemon-server daemon, plus a "serve" subcommand that runs
// the daemon in the foreground.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var addrFlag string

// osExit is os.Exit, held in a variable so it can be replaced.
var osExit = os.Exit

// Execute builds and runs the lemonctl root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lemonctl",
		Short:         "Control and inspect a lemon-server instance",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&addrFlag, "addr", "localhost:8000", "lemon-server address (host:port)")

	root.AddCommand(
		newStatusCmd(),
		newPSCmd(),
		newRecipesCmd(),
		newInstallCmd(),
		newPullCmd(),
		newServeCmd(),
	)
	return root
}
