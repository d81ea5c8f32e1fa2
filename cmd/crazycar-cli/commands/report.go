package commands

import (
	"context"
	"fmt"

	"crazycar-stats/internal/components/captcha"
	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/history"
	"crazycar-stats/internal/pipeline"

	"github.com/spf13/cobra"
)

var reportNoHistory *bool

func init() {
	reportNoHistory = reportCmd.Flags().Bool("no-history", false, "Do not record the report in the history.")
	rootCmd.AddCommand(reportCmd)
}

var noCaptcha = captcha.RecognizerFunc(func(ctx context.Context, image []byte) (string, error) {
	return "", captcha.ErrEmptyAnswer
})

var reportCmd = &cobra.Command{
	Use:   "report <export.csv>",
	Short: "Builds a report from an existing export without crawling.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.SlogAPI{}
		clock := chrono.NewStandardImpl()

		var store pipeline.HistoryStore
		if !*reportNoHistory {
			opened, err := history.Open(cfg.HistoryPath(), cfg.HistoryKeep, clock)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer opened.Close()
			store = opened
		}

		p := pipeline.New(cfg, nil, noCaptcha, store, clock, tel)
		outcome, err := p.ReportFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}

		out := cmd.OutOrStdout()
		renderOutcome(out, outcome)
		fmt.Fprintf(out, "\nreport: %s\n", outcome.ReportPath)
		return nil
	},
}
