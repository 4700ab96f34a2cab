package commands

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "status",
		Short: "Check whether a lemon-server instance is reachable and report loaded engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient(addrFlag)
			health, err := cl.Health(cmd.Context())
			if err != nil {
				cmd.PrintErrln(color.RedString("lemon-server is not reachable at %s: %v", addrFlag, err))
				osExit(1)
				return nil
			}
			cmd.Println(color.GreenString("lemon-server is running") + fmt.Sprintf(" (%s)", addrFlag))
			cmd.Println()
			cmd.Print(engineStatusTable(health.Engines))

			if verbose {
				info, err := cl.SystemInfo(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetch system info: %w", err)
				}
				cmd.Println()
				cmd.Printf("backends: %+v\n", info["backends"])
			}
			return nil
		},
	}
	c.Flags().BoolVar(&verbose, "verbose", false, "also print installed-backend details from /system-info")
	return c
}

func engineStatusTable(engines []engineSummary) string {
	var buf bytes.Buffer
	table := newTable(&buf)
	table.Header([]string{"RECIPE", "BACKEND", "STATE"})

	sort.Slice(engines, func(i, j int) bool { return engines[i].Recipe < engines[j].Recipe })
	if len(engines) == 0 {
		table.Append([]string{"-", "-", "no engines loaded"})
	}
	for _, e := range engines {
		table.Append([]string{e.Recipe, e.Backend, colorizeState(e.State)})
	}

	table.Render()
	return buf.String()
}

func colorizeState(state string) string {
	switch state {
	case "ready":
		return color.GreenString(state)
	case "starting":
		return color.YellowString(state)
	case "failed":
		return color.RedString(state)
	default:
		return state
	}
}
