package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"crazycar-stats/internal/components/captcha"
	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/history"
	"crazycar-stats/internal/pipeline"
	"crazycar-stats/internal/report"
	"crazycar-stats/internal/scrapers/ckfksc"
	"crazycar-stats/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	crawlMode       *string
	crawlFromMap    *string
	crawlStopMaps   *[]string
	crawlWorkers    *int
	crawlPhone      *string
	crawlPassword   *string
	crawlDumpHttp   *bool
	crawlCloudflare *bool
)

func init() {
	crawlMode = crawlCmd.Flags().String("mode", "", "The game mode to crawl (overrides game_settings.mode).")
	crawlFromMap = crawlCmd.Flags().String("from-map", "", "Begin collecting at the newest match on this map (overrides game_settings.end_map).")
	crawlStopMaps = crawlCmd.Flags().StringSlice("stop-map", nil, "Stop after the first match on one of these maps, repeatable (overrides game_settings.start_maps).")
	crawlWorkers = crawlCmd.Flags().Int("workers", 0, "Maximum concurrent detail fetches.")
	crawlPhone = crawlCmd.Flags().String("phone", "", "The account phone number.")
	crawlPassword = crawlCmd.Flags().String("password", "", "The account password.")
	crawlDumpHttp = crawlCmd.Flags().Bool("dump-http", false, "Write every http exchange under <data-dir>/http.")
	crawlCloudflare = crawlCmd.Flags().Bool("cloudflare", false, "Use a transport that gets through cloudflare's bot checks.")
	rootCmd.AddCommand(crawlCmd)
}

func applyCrawlFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.GameSettings.Mode = *crawlMode
	}
	if flags.Changed("from-map") {
		cfg.GameSettings.EndMap = *crawlFromMap
	}
	if flags.Changed("stop-map") {
		cfg.GameSettings.StartMaps = *crawlStopMaps
	}
	if flags.Changed("workers") {
		cfg.Crawl.Workers = *crawlWorkers
	}
	if flags.Changed("phone") {
		cfg.Account.Phone = *crawlPhone
	}
	if flags.Changed("password") {
		cfg.Account.Password = *crawlPassword
	}
	if flags.Changed("cloudflare") {
		cfg.Crawl.CloudflareBypass = *crawlCloudflare
	}
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--mode <mode>] [--from-map <map>] [--stop-map <map>...]",
	Short: "Logs in, crawls a session of matches and writes its export, report and history entry.",
	Long: `Logs in, crawls a session of matches and writes its export, report and history entry.

Pressing Ctrl+C once stops the crawl after the current page and still builds
the report from what was collected, pressing it again aborts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCrawlFlags(cmd)
		if cfg.Account.Phone == "" || cfg.Account.Password == "" {
			return errors.New("missing credentials, set account.phone and account.password or pass --phone and --password")
		}

		tel := telemetry.SlogAPI{}
		opts := cfg.ClientOptions()
		if *crawlDumpHttp {
			output, err := telemetry.NewFilesystemOutput(filepath.Join(cfg.DataDir, "http"))
			if err != nil {
				return fmt.Errorf("create http dump directory: %w", err)
			}
			opts.Dump = output
		}
		client, err := ckfksc.NewClient(opts, tel)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}

		clock := chrono.NewStandardImpl()
		store, err := history.Open(cfg.HistoryPath(), cfg.HistoryKeep, clock)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()

		recognizer := captcha.PromptRecognizer{
			Dir: cfg.DataDir,
			In:  os.Stdin,
			Out: os.Stderr,
		}
		p := pipeline.New(cfg, client, recognizer, store, clock, tel)

		ctx, cancel := serviceutil.GracefulContext(cmd.Context(), p.Stop)
		defer cancel()

		slog.Info(
			"crawling",
			"mode", cfg.GameSettings.Mode,
			"from", cfg.GameSettings.EndMap,
			"stop", cfg.GameSettings.StartMaps,
		)
		outcome, err := p.Run(ctx)
		if errors.Is(err, report.ErrNoData) {
			slog.Warn("no matches were collected", "reason", outcome.Crawl.Reason.String())
			return nil
		}
		if err != nil {
			return fmt.Errorf("crawl: %w", err)
		}

		out := cmd.OutOrStdout()
		renderOutcome(out, outcome)
		fmt.Fprintf(out, "\nexport: %s\nreport: %s\n", outcome.CsvPath, outcome.ReportPath)
		return nil
	},
}
