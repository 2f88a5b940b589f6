package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Artifact.Path != DefaultArtifactPath {
		t.Errorf("expected default artifact path %q, got %q", DefaultArtifactPath, cfg.Artifact.Path)
	}
	if cfg.Artifact.Variable != "dashboardData" {
		t.Errorf("expected default variable dashboardData, got %q", cfg.Artifact.Variable)
	}
	if cfg.Backup.Dir != "backups" {
		t.Errorf("expected default backup dir 'backups', got %q", cfg.Backup.Dir)
	}
	if cfg.Source.MinBytes != 1000 {
		t.Errorf("expected default min_bytes 1000, got %d", cfg.Source.MinBytes)
	}
	if len(cfg.Integrity.RequiredFiles) != 4 {
		t.Errorf("expected 4 required files, got %v", cfg.Integrity.RequiredFiles)
	}
	if !cfg.Integrity.RuntimeProbe {
		t.Error("expected runtime probe enabled by default")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config { return *Defaults() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "zero min_bytes is invalid (gate cannot be disabled)", mutate: func(c *Config) { c.Source.MinBytes = 0 }, wantErr: true},
		{name: "negative min_bytes is invalid", mutate: func(c *Config) { c.Source.MinBytes = -1 }, wantErr: true},
		{name: "empty artifact path is invalid", mutate: func(c *Config) { c.Artifact.Path = "" }, wantErr: true},
		{name: "variable with spaces is invalid", mutate: func(c *Config) { c.Artifact.Variable = "dashboard data" }, wantErr: true},
		{name: "empty backup dir is invalid", mutate: func(c *Config) { c.Backup.Dir = "" }, wantErr: true},
		{name: "unknown format is invalid", mutate: func(c *Config) { c.Extract.Format = "pdf" }, wantErr: true},
		{name: "zero integrity timeout is invalid", mutate: func(c *Config) { c.Integrity.TimeoutSeconds = 0 }, wantErr: true},
		{name: "zero vcs timeout is invalid", mutate: func(c *Config) { c.VCS.TimeoutSeconds = 0 }, wantErr: true},
		{name: "zero fetch timeout is invalid", mutate: func(c *Config) { c.Source.FetchTimeoutSeconds = 0 }, wantErr: true},
		{name: "zero debounce is valid", mutate: func(c *Config) { c.Watch.DebounceMS = 0 }, wantErr: false},
		{name: "negative watch interval is invalid", mutate: func(c *Config) { c.Watch.MinIntervalSeconds = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Defaults()
	cfg.Project.Root = root

	if got, want := cfg.ArtifactPath(), filepath.Join(root, "js", "data.js"); got != want {
		t.Errorf("ArtifactPath() = %q, want %q", got, want)
	}
	if got, want := cfg.BackupDir(), filepath.Join(root, "backups"); got != want {
		t.Errorf("BackupDir() = %q, want %q", got, want)
	}

	abs := filepath.Join(t.TempDir(), "elsewhere.js")
	cfg.Artifact.Path = abs
	if got := cfg.ArtifactPath(); got != abs {
		t.Errorf("absolute artifact path should be kept, got %q", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	content := `
[artifact]
path = "data/dataset.js"
variable = "reportData"

[source]
min_bytes = 2048

[integrity]
required_files = ["index.html"]
command = "python3 server.py --check-only"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Artifact.Path != "data/dataset.js" || cfg.Artifact.Variable != "reportData" {
		t.Errorf("artifact settings not loaded: %+v", cfg.Artifact)
	}
	if cfg.Source.MinBytes != 2048 {
		t.Errorf("expected min_bytes 2048, got %d", cfg.Source.MinBytes)
	}
	if cfg.Integrity.Command != "python3 server.py --check-only" {
		t.Errorf("unexpected integrity command %q", cfg.Integrity.Command)
	}
	// Unset values keep their defaults
	if cfg.Backup.Prefix != DefaultBackupPrefix {
		t.Errorf("expected default backup prefix, got %q", cfg.Backup.Prefix)
	}
}

func TestNewViper_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh.toml")
	if err := os.WriteFile(path, []byte("[source]\nmin_bytes = 2048\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REFRESH_SOURCE_MIN_BYTES", "4096")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Source.MinBytes != 4096 {
		t.Errorf("expected env override 4096, got %d", cfg.Source.MinBytes)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("prefers am.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, 0o755)

		os.WriteFile(filepath.Join(tmpDir, "test1", "am.toml"), []byte(""), 0o644)
		os.WriteFile(filepath.Join(tmpDir, "test1", "refresh.toml"), []byte(""), 0o644)

		t.Chdir(subDir)

		result := findProjectConfig()
		if filepath.Base(result) != "am.toml" {
			t.Errorf("expected am.toml, got %q", result)
		}
	})

	t.Run("falls back to refresh.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, 0o755)
		os.WriteFile(filepath.Join(tmpDir, "test2", "refresh.toml"), []byte(""), 0o644)

		t.Chdir(subDir)

		result := findProjectConfig()
		if filepath.Base(result) != "refresh.toml" {
			t.Errorf("expected refresh.toml, got %q", result)
		}
	})
}

func TestWriteConfig_RoundTripAndRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")

	cfg := Defaults()
	cfg.Integrity.Command = "python3 server.py --check-only"
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig() failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if loaded.Integrity.Command != cfg.Integrity.Command {
		t.Errorf("command not round-tripped: %q", loaded.Integrity.Command)
	}

	// Second and third writes rotate the previous file
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	for _, suffix := range []string{".back1", ".back2"} {
		if _, err := os.Stat(path + suffix); err != nil {
			t.Errorf("expected %s to exist: %v", suffix, err)
		}
	}
}
