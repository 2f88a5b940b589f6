package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/integrity"
	"github.com/teranos/refresh/ledger"
	"github.com/teranos/refresh/logger"
)

// CheckCmd runs the integrity self-check without changing anything
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the integrity self-check",
	Long: `Run every configured integrity probe against the current project and
report each result. Unlike a pipeline run, all probes run even after one fails.

Examples:
  refresh check
  refresh check --root ../dashboard`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	checker, err := integrity.FromConfig(cfg, logger.ComponentLogger("integrity"))
	if err != nil {
		return err
	}

	if v, recorded := ledger.New(cfg.ArtifactVariable(), logger.ComponentLogger("ledger")).Current(cfg.ArtifactPath()); recorded {
		pterm.Info.Printf("Published version %s\n", pterm.LightCyan(v.String()))
	} else {
		pterm.Info.Printf("No recorded version in %s\n", cfg.ArtifactPath())
	}

	failed := 0
	for _, r := range checker.Report(context.Background()) {
		took := r.Duration.Round(time.Millisecond)
		if r.Err == nil {
			pterm.Success.Printf("%s %s\n", r.Probe, pterm.Gray(took.String()))
			continue
		}
		failed++
		pterm.Error.Printf("%s: %v\n", r.Probe, r.Err)
		for _, detail := range errors.GetAllDetails(r.Err) {
			fmt.Printf("  %s\n", pterm.Gray(indent(detail)))
		}
	}

	if failed > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}
