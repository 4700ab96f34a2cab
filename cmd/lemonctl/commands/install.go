package commands

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/lemonade-sdk/lemon-server/pkg/events"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "install <recipe> <backend>",
		Short: "Install a backend for a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient(addrFlag)
			recipeName, backend := args[0], args[1]
			err := cl.Install(cmd.Context(), recipeName, backend, progressPrinter(cmd, recipeName+"/"+backend))
			if err != nil {
				return fmt.Errorf("install %s/%s: %w", recipeName, backend, err)
			}
			cmd.Println()
			cmd.Printf("%s/%s installed\n", recipeName, backend)
			return nil
		},
	}
	return c
}

// progressPrinter renders each progress frame as an updated single line,
// matching the teacher's convention of reusing one terminal line for a
// streamed transfer rather than scrolling a line per frame.
func progressPrinter(cmd *cobra.Command, label string) eventSink {
	return func(kind events.Kind, p events.Progress) {
		if kind != events.KindProgress {
			return
		}
		if p.TotalBytes > 0 {
			cmd.Printf("\r%s: %s / %s (%.0f%%)", label, units.HumanSize(float64(p.BytesReceived)), units.HumanSize(float64(p.TotalBytes)), p.Percent)
		} else {
			cmd.Printf("\r%s: %s", label, units.HumanSize(float64(p.BytesReceived)))
		}
	}
}
