package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/refresh/display"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/pipeline"
)

// UpdateCmd runs the pipeline once
var UpdateCmd = &cobra.Command{
	Use:   "update <source>",
	Short: "Refresh the dashboard data from a source document",
	Long: `Run the refresh pipeline once for a source document.

The source is a local file or a URL (http, https, s3, gcs). The previous
artifact is backed up first and restored automatically if extraction,
publishing or the integrity check fails.

Exit status is 0 when the run succeeded and 1 when it failed.

Examples:
  refresh update reports/bulletin_2025.pdf
  refresh update reports/bulletin_2025.pdf --commit
  refresh update https://stats.example/bulletin_2025.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var updateCommit bool

func init() {
	UpdateCmd.Flags().BoolVar(&updateCommit, "commit", false, "Commit the published artifact to the project repository")
	UpdateCmd.Flags().BoolP("json", "j", false, "Print the run record as JSON")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := pipeline.FromConfig(cfg, logger.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := p.Run(ctx, args[0], pipeline.Options{Commit: updateCommit})
	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(summarize(run)); err != nil {
			return err
		}
	} else {
		printRun(run)
	}

	if code := run.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
