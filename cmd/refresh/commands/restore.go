package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/refresh/backup"
	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/pipeline"
	"github.com/teranos/refresh/snapshot"
)

// RestoreCmd puts a backup back in place
var RestoreCmd = &cobra.Command{
	Use:   "restore [timestamp]",
	Short: "Restore the artifact from a backup",
	Long: `Restore the artifact from a backup. Without a timestamp the latest backup
is used. The current artifact is backed up first, so a restore can itself
be undone.

Backups that do not contain a valid dataset are refused unless --force is given.

Examples:
  refresh restore                      # Latest backup
  refresh restore 20250101_120000      # Backup taken at that time
  refresh restore "2025-01-01 12:00:00"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

var restoreForce bool

func init() {
	RestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Restore even if the backup does not validate")
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	rec, err := pickBackup(store, args)
	if err != nil {
		return err
	}

	if !restoreForce {
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			return errors.Wrapf(err, "failed to read backup %s", rec.Name())
		}
		if _, err := snapshot.ValidateArtifact(data, cfg.ArtifactVariable()); err != nil {
			return errors.WithHint(
				errors.Wrapf(err, "backup %s does not contain a valid dataset", rec.Name()),
				"pass --force to restore it anyway",
			)
		}
	}

	// Never race a running update
	lock, err := pipeline.AcquireLock(pipeline.LockPathFor(cfg.ArtifactPath()))
	if err != nil {
		return err
	}
	defer lock.Release()

	artifact := cfg.ArtifactPath()
	current, err := store.Snapshot(artifact)
	if err != nil {
		return errors.Wrap(err, "failed to back up the current artifact")
	}
	if err := store.Restore(rec, artifact); err != nil {
		return err
	}

	pterm.Success.Printf("Restored %s from %s\n", artifact, pterm.LightCyan(rec.Name()))
	if !current.Empty() {
		pterm.Info.Printf("Previous artifact saved as %s\n", current.Name())
	}
	return nil
}

func pickBackup(store *backup.Store, args []string) (*backup.Record, error) {
	if len(args) == 0 {
		rec, err := store.Latest()
		if errors.Is(err, backup.ErrNoBackups) {
			return nil, errors.WithHintf(err, "no backups in %s", store.Dir())
		}
		return rec, err
	}

	t, err := backup.ParseTimestamp(args[0])
	if err != nil {
		return nil, err
	}
	return store.Find(t)
}
