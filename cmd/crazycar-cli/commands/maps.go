package commands

import (
	"fmt"

	"crazycar-stats/internal/maporder"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mapsCmd)
}

var mapsCmd = &cobra.Command{
	Use:   "maps [name]",
	Short: "Lists the map catalogue or looks up the position of one map.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogue := maporder.Official()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			fmt.Fprintln(out, lookupMap(catalogue, args[0]))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"#", "Map"})
		for i, name := range catalogue.Names() {
			t.AppendRow(table.Row{i, name})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func lookupMap(catalogue maporder.Catalogue, name string) string {
	ordinal := catalogue.Ordinal(name)
	if ordinal != maporder.Unknown {
		return fmt.Sprintf("%s is map #%d", name, ordinal)
	}
	suggestion, _ := catalogue.Suggest(name)
	if suggestion == "" {
		return fmt.Sprintf("%s is not a known map", name)
	}
	return fmt.Sprintf("%s is not a known map, did you mean %s?", name, suggestion)
}
