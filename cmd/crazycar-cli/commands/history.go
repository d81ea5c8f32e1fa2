package commands

import (
	"fmt"

	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/history"

	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().IntP("limit", "n", 20, "How many runs to show.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [-n <limit>]",
	Short: "Lists the most recent crawls and imports.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.HistoryPath(), cfg.HistoryKeep, chrono.NewStandardImpl())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), *historyLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		renderHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}
