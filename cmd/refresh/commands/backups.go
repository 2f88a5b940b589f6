package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/refresh/am"
	"github.com/teranos/refresh/backup"
	"github.com/teranos/refresh/display"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/snapshot"
)

// BackupsCmd lists pre-run backups
var BackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List artifact backups",
	Long: `List the backups taken before each pipeline run, oldest first, with the
dataset version each one holds.

Examples:
  refresh backups
  refresh backups --json`,
	Args: cobra.NoArgs,
	RunE: runBackups,
}

func init() {
	BackupsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

type backupEntry struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Version   string `json:"version,omitempty"`
	Valid     bool   `json:"valid"`
}

func runBackups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	records, err := openStore(cfg).List()
	if err != nil {
		return err
	}

	entries := make([]backupEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, describeBackup(rec, cfg.ArtifactVariable()))
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(entries)
	}

	if len(entries) == 0 {
		pterm.Info.Printf("No backups in %s\n", cfg.BackupDir())
		return nil
	}

	table := pterm.TableData{{"Timestamp", "Version", "Size", "File"}}
	for _, e := range entries {
		version := e.Version
		if !e.Valid {
			version = pterm.Red("invalid")
		}
		table = append(table, []string{e.Timestamp, version, fmt.Sprintf("%d", e.Size), e.Path})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func openStore(cfg *am.Config) *backup.Store {
	return backup.NewStore(cfg.BackupDir(), cfg.Backup.Prefix, logger.ComponentLogger("backup"))
}

func describeBackup(rec *backup.Record, variable string) backupEntry {
	e := backupEntry{
		Timestamp: rec.CreatedAt.Format(backup.TimestampLayout),
		Path:      rec.Path,
		Size:      rec.Size,
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return e
	}
	s, err := snapshot.ValidateArtifact(data, variable)
	e.Valid = err == nil
	e.Version = s.Version()
	return e
}
