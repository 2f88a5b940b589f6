package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/refresh/cmd/refresh/commands"
	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
)

var rootCmd = &cobra.Command{
	Use:   "refresh",
	Short: "refresh - Dashboard data refresh pipeline",
	Long: `refresh - Dashboard data refresh pipeline.

refresh turns a statistical report into the dataset a static dashboard
loads, publishes it atomically, checks the dashboard still works and
rolls back to the previous dataset when anything fails.

Available commands:
  update  - Run the pipeline once for a source document
  watch   - Run the pipeline for every report dropped into an inbox
  check   - Run the integrity self-check against the current artifact
  backups - List pre-run backups
  restore - Put a backup back in place
  am      - Show and initialize configuration

Examples:
  refresh update reports/bulletin_2025.pdf          # Refresh the dashboard data
  refresh update bulletin_2025.pdf --commit         # Refresh and commit the change
  refresh update https://stats.example/q3-2025.pdf  # Fetch the report first
  refresh watch inbox/                              # Refresh for each dropped report
  refresh restore 20250101_120000                   # Restore a specific backup`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON (for cron and CI log collection)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ./am.toml, ~/.refresh/am.toml)")
	rootCmd.PersistentFlags().String("root", "", "Dashboard project root (overrides project.root)")

	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.BackupsCmd)
	rootCmd.AddCommand(commands.RestoreCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *commands.ExitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, err)
			for _, hint := range errors.GetAllHints(err) {
				fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
			}
			os.Exit(1)
		}
		os.Exit(exit.Code)
	}
}
