package commands

import (
	"bytes"
	"strings"

	"github.com/spf13/cobra"
)

func newRecipesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "recipes",
		Short: "List the recipes a lemon-server instance knows how to serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient(addrFlag)
			list, err := cl.Recipes(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Print(recipesTable(list))
			return nil
		},
	}
	return c
}

func recipesTable(recipes []recipeSummary) string {
	var buf bytes.Buffer
	table := newTable(&buf)
	table.Header([]string{"RECIPE", "CAPABILITIES"})

	for _, r := range recipes {
		table.Append([]string{r.Name, strings.Join(r.Capabilities, ", ")})
	}

	table.Render()
	return buf.String()
}
