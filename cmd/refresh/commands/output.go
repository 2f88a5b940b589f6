package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/pipeline"
)

// printRun prints the outcome of a run for the operator
func printRun(run *pipeline.Run) {
	if run.Succeeded() {
		pterm.Success.Printf("Dashboard data updated to version %s\n", pterm.LightCyan(run.Version))
	} else {
		pterm.Error.Printf("Refresh failed at %s: %s\n", run.FailedStage, pterm.LightRed(run.Kind()))
		fmt.Printf("  %v\n", run.Err)
		for _, hint := range errors.GetAllHints(run.Err) {
			fmt.Printf("  %s %s\n", pterm.Gray("hint:"), hint)
		}
		for _, detail := range errors.GetAllDetails(run.Err) {
			fmt.Printf("  %s\n", pterm.Gray(indent(detail)))
		}
	}

	fmt.Printf("  Run:      %s\n", run.ID)
	fmt.Printf("  Source:   %s\n", run.Source)
	if run.Backup != nil {
		if run.Backup.Empty() {
			fmt.Printf("  Backup:   %s\n", pterm.Gray("none (no previous artifact)"))
		} else {
			fmt.Printf("  Backup:   %s\n", run.Backup.Path)
		}
	}
	if run.Commit != "" {
		fmt.Printf("  Commit:   %s\n", shortHash(run.Commit))
	}
	fmt.Printf("  Duration: %s\n", run.Duration().Round(time.Millisecond))

	switch {
	case run.RollbackErr != nil:
		pterm.Error.Printf("Rollback failed, the artifact may be inconsistent: %v\n", run.RollbackErr)
	case run.RolledBack:
		pterm.Info.Println("Previous artifact restored")
	}
	for _, w := range run.Warnings {
		pterm.Warning.Printf("%v\n", w)
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}

// runSummary is the JSON form of a run
type runSummary struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	State       string           `json:"state"`
	FailedStage string           `json:"failed_stage,omitempty"`
	Kind        string           `json:"kind,omitempty"`
	Error       string           `json:"error,omitempty"`
	Hints       []string         `json:"hints,omitempty"`
	Version     string           `json:"version,omitempty"`
	Backup      string           `json:"backup,omitempty"`
	RolledBack  bool             `json:"rolled_back"`
	Rollback    string           `json:"rollback_error,omitempty"`
	Commit      string           `json:"commit,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Started     time.Time        `json:"started"`
	DurationMS  int64            `json:"duration_ms"`
	Stages      map[string]int64 `json:"stage_duration_ms"`
}

func summarize(run *pipeline.Run) runSummary {
	out := runSummary{
		ID:         run.ID,
		Source:     run.Source,
		State:      string(run.State),
		Version:    run.Version,
		RolledBack: run.RolledBack,
		Commit:     run.Commit,
		Started:    run.Started,
		DurationMS: run.Duration().Milliseconds(),
		Stages:     make(map[string]int64),
	}
	if run.Err != nil {
		out.FailedStage = string(run.FailedStage)
		out.Kind = run.Kind()
		out.Error = run.Err.Error()
		out.Hints = errors.GetAllHints(run.Err)
	}
	if run.Backup != nil && !run.Backup.Empty() {
		out.Backup = run.Backup.Path
	}
	if run.RollbackErr != nil {
		out.Rollback = run.RollbackErr.Error()
	}
	for _, w := range run.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	for stage, d := range run.StageDurations() {
		out.Stages[string(stage)] = d.Milliseconds()
	}
	return out
}
