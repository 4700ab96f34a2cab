package commands

import (
	"bytes"

	"github.com/spf13/cobra"
)

func newPSCmd() *cobra.Command {
	var showAll bool
	c := &cobra.Command{
		Use:   "ps",
		Short: "List known models and whether they are downloaded and loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient(addrFlag)
			list, err := cl.Models(cmd.Context(), showAll)
			if err != nil {
				return err
			}
			cmd.Print(modelsTable(list))
			return nil
		},
	}
	c.Flags().BoolVar(&showAll, "all", false, "include models never downloaded")
	return c
}

func modelsTable(models []modelSummary) string {
	var buf bytes.Buffer
	table := newTable(&buf)
	table.Header([]string{"MODEL", "RECIPE", "DOWNLOADED", "LOADED"})

	for _, m := range models {
		table.Append([]string{m.ID, m.Recipe, boolMark(m.Downloaded), boolMark(m.Loaded)})
	}

	table.Render()
	return buf.String()
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
