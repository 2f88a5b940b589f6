package testing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DashboardFiles are created by CreateTestProject. The artifact is left out
// so each test decides whether a prior dataset exists.
var DashboardFiles = map[string]string{
	"index.html":    "<html><script src=\"js/data.js\"></script></html>",
	"js/main.js":    "render(dashboardData);",
	"css/style.css": "body {}",
}

// CreateTestProject creates a dashboard project in a temp dir.
// Removed automatically via t.Cleanup().
func CreateTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range DashboardFiles {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return root
}

// CreateTestReport writes a source report of size bytes under a fresh temp dir
func CreateTestReport(t *testing.T, name string, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Repeat("r", size)), 0o644); err != nil {
		t.Fatalf("Failed to write report %s: %v", name, err)
	}
	return path
}
