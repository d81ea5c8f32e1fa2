package commands

import (
	"context"
	"fmt"
	"os"

	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dataDir    *string

	// cfg is loaded before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "crazycar-cli",
	Short:         "crazycar-cli crawls ckfksc.com race results and builds session reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if *dataDir != "" {
			loaded.DataDir = *dataDir
		}
		cfg = loaded
		return nil
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", config.DefaultPath, "The json5 config file, a .local.json5 next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Emit debug logs.")
	dataDir = rootCmd.PersistentFlags().String("data-dir", "", "Overrides the directory exports, reports and history are written to.")
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
