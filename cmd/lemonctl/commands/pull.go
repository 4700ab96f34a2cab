package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPullCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "pull <model>",
		Short: "Download a model's weights and auxiliary files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient(addrFlag)
			model := args[0]
			if err := cl.Pull(cmd.Context(), model, progressPrinter(cmd, model)); err != nil {
				return fmt.Errorf("pull %s: %w", model, err)
			}
			cmd.Println()
			cmd.Printf("%s downloaded\n", model)
			return nil
		},
	}
	return c
}
