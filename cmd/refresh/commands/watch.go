package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/pipeline"
	"github.com/teranos/refresh/watch"
)

// WatchCmd runs the pipeline for every report dropped into a directory
var WatchCmd = &cobra.Command{
	Use:   "watch <inbox>",
	Short: "Refresh whenever a report lands in a directory",
	Long: `Watch a directory and run the pipeline for every report written into it.

A file is handled once it has been quiet for watch.debounce_ms, and runs
are spaced at least watch.min_interval_seconds apart. Files already in the
directory when watching starts are left alone. A failed run is reported
and watching continues.

Examples:
  refresh watch inbox/
  refresh watch inbox/ --commit`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchCommit bool

func init() {
	WatchCmd.Flags().BoolVar(&watchCommit, "commit", false, "Commit after each successful run (overrides watch.commit)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := pipeline.FromConfig(cfg, logger.Logger)
	if err != nil {
		return err
	}

	commit := cfg.Watch.Commit || watchCommit
	handle := func(ctx context.Context, path string) error {
		run := p.Run(ctx, path, pipeline.Options{Commit: commit})
		printRun(run)
		return run.Err
	}

	w, err := watch.New(args[0], watch.Options{
		Debounce:    time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		MinInterval: time.Duration(cfg.Watch.MinIntervalSeconds) * time.Second,
		Extensions:  cfg.Watch.Extensions,
	}, handle, logger.ComponentLogger("watch"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printf("Watching %s (Ctrl+C to stop)\n", pterm.LightCyan(args[0]))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	pterm.Info.Println("Stopped watching")
	return nil
}
