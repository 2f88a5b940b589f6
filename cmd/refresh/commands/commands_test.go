package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/refresh/errors"
	testutil "github.com/teranos/refresh/internal/testing"
	"github.com/teranos/refresh/snapshot"
)

// testRoot mirrors the global flags of the refresh binary
var testRoot = func() *cobra.Command {
	root := &cobra.Command{Use: "refresh", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().CountP("verbose", "v", "")
	root.PersistentFlags().Bool("log-json", false, "")
	root.PersistentFlags().StringP("config", "c", "", "")
	root.PersistentFlags().String("root", "", "")
	root.AddCommand(UpdateCmd, BackupsCmd, RestoreCmd, CheckCmd, AmCmd)
	return root
}()

func execute(t *testing.T, args ...string) error {
	t.Helper()
	// Flag values outlive an Execute call
	updateCommit, restoreForce, configFormat = false, false, "toml"
	for _, name := range []string{"config", "root"} {
		require.NoError(t, testRoot.PersistentFlags().Set(name, ""))
	}
	testRoot.SetArgs(args)
	return testRoot.Execute()
}

// setupProject creates a dashboard project and a config file pointing at it
func setupProject(t *testing.T) (root, config string) {
	t.Helper()
	root = testutil.CreateTestProject(t)

	config = filepath.Join(t.TempDir(), "am.toml")
	body := fmt.Sprintf("[project]\nroot = %q\n\n[integrity]\nruntime_probe = false\n", root)
	require.NoError(t, os.WriteFile(config, []byte(body), 0o644))
	return root, config
}

func writeReport(t *testing.T, size int) string {
	t.Helper()
	return testutil.CreateTestReport(t, "bulletin_2025.pdf", size)
}

func artifactVersion(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "js", "data.js"))
	require.NoError(t, err)
	s, err := snapshot.ValidateArtifact(data, "dashboardData")
	require.NoError(t, err)
	return s.Version()
}

func TestUpdate_PublishesArtifact(t *testing.T) {
	root, config := setupProject(t)

	require.NoError(t, execute(t, "update", writeReport(t, 2048), "--config", config))
	assert.Equal(t, "1.1.0", artifactVersion(t, root))
}

func TestUpdate_FailedRunExitsNonZero(t *testing.T) {
	root, config := setupProject(t)

	err := execute(t, "update", writeReport(t, 10), "--config", config)

	var exit *ExitError
	require.True(t, errors.As(err, &exit), "want ExitError, got %v", err)
	assert.Equal(t, 1, exit.Code)
	assert.NoFileExists(t, filepath.Join(root, "js", "data.js"))
}

func TestUpdate_RootFlagOverridesConfig(t *testing.T) {
	_, config := setupProject(t)
	other, _ := setupProject(t)

	require.NoError(t, execute(t, "update", writeReport(t, 2048), "--config", config, "--root", other))
	assert.Equal(t, "1.1.0", artifactVersion(t, other))
}

func TestRestore_LatestBackup(t *testing.T) {
	root, config := setupProject(t)
	report := writeReport(t, 2048)

	require.NoError(t, execute(t, "update", report, "--config", config))
	require.NoError(t, execute(t, "update", report, "--config", config))
	require.Equal(t, "1.2.0", artifactVersion(t, root))

	require.NoError(t, execute(t, "restore", "--config", config))
	assert.Equal(t, "1.1.0", artifactVersion(t, root))

	// The replaced artifact was kept, so the restore can be undone
	entries, err := os.ReadDir(filepath.Join(root, "backups"))
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "data_backup_") {
			backups++
		}
	}
	assert.Equal(t, 2, backups)
}

func TestRestore_RefusesInvalidBackup(t *testing.T) {
	root, config := setupProject(t)
	dir := filepath.Join(root, "backups")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data_backup_20250101_120000.js"), []byte("const dashboardData = {};"), 0o644))

	err := execute(t, "restore", "20250101_120000", "--config", config)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "--force")
	assert.NoFileExists(t, filepath.Join(root, "js", "data.js"))

	require.NoError(t, execute(t, "restore", "20250101_120000", "--force", "--config", config))
	assert.FileExists(t, filepath.Join(root, "js", "data.js"))
}

func TestRestore_NoBackups(t *testing.T) {
	_, config := setupProject(t)

	err := execute(t, "restore", "--config", config)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	_, config := setupProject(t)

	// No artifact yet, the presence probe fails
	err := execute(t, "check", "--config", config)
	var exit *ExitError
	require.True(t, errors.As(err, &exit), "want ExitError, got %v", err)

	require.NoError(t, execute(t, "update", writeReport(t, 2048), "--config", config))
	assert.NoError(t, execute(t, "check", "--config", config))
}

func TestAmInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")

	require.NoError(t, execute(t, "am", "init", path))
	assert.FileExists(t, path)
	assert.NoError(t, execute(t, "am", "validate", "--config", path))
}

func TestAmShow_RejectsUnknownFormat(t *testing.T) {
	_, config := setupProject(t)

	err := execute(t, "am", "show", "--format", "xml", "--config", config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
