package am

import "path/filepath"

// Config represents the refresh configuration
type Config struct {
	Project   ProjectConfig   `mapstructure:"project" toml:"project"`
	Artifact  ArtifactConfig  `mapstructure:"artifact" toml:"artifact"`
	Backup    BackupConfig    `mapstructure:"backup" toml:"backup"`
	Source    SourceConfig    `mapstructure:"source" toml:"source"`
	Extract   ExtractConfig   `mapstructure:"extract" toml:"extract"`
	Integrity IntegrityConfig `mapstructure:"integrity" toml:"integrity"`
	VCS       VCSConfig       `mapstructure:"vcs" toml:"vcs"`
	Metrics   MetricsConfig   `mapstructure:"metrics" toml:"metrics"`
	Watch     WatchConfig     `mapstructure:"watch" toml:"watch"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
}

// ProjectConfig locates the dashboard project every relative path is resolved against
type ProjectConfig struct {
	Root string `mapstructure:"root" toml:"root"` // Dashboard project root (default: ".")
}

// ArtifactConfig describes the published dataset file
type ArtifactConfig struct {
	Path     string `mapstructure:"path" toml:"path"`         // Relative to project root (default: js/data.js)
	Variable string `mapstructure:"variable" toml:"variable"` // JS constant holding the dataset (default: dashboardData)
}

// BackupConfig configures where pre-run snapshots go
type BackupConfig struct {
	Dir    string `mapstructure:"dir" toml:"dir"`       // Relative to project root (default: backups)
	Prefix string `mapstructure:"prefix" toml:"prefix"` // File name prefix (default: data_backup_)
}

// SourceConfig configures source document admission
type SourceConfig struct {
	MinBytes int64 `mapstructure:"min_bytes" toml:"min_bytes"` // Minimum accepted size (default: 1000)

	// Remote reports (http, s3, gcs URLs)
	DownloadDir         string `mapstructure:"download_dir" toml:"download_dir"`                   // Empty uses the system temp dir
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"` // Default: 300
	AllowPrivateHosts   bool   `mapstructure:"allow_private_hosts" toml:"allow_private_hosts"`     // Permit intranet report servers
}

// ExtractConfig selects the extraction adapter
type ExtractConfig struct {
	Format string `mapstructure:"format" toml:"format"` // auto, placeholder, toml, yaml, json
	Title  string `mapstructure:"title" toml:"title"`   // Title used by the placeholder adapter
}

// IntegrityConfig configures the post-publish self-check
type IntegrityConfig struct {
	RequiredFiles  []string `mapstructure:"required_files" toml:"required_files"`   // Presence check, relative to project root
	Command        string   `mapstructure:"command" toml:"command"`                 // External self-check, e.g. "python3 server.py --check-only"
	RuntimeProbe   bool     `mapstructure:"runtime_probe" toml:"runtime_probe"`     // Loopback bind + filesystem probe (default: true)
	TimeoutSeconds int      `mapstructure:"timeout_seconds" toml:"timeout_seconds"` // External command timeout (default: 30)
}

// VCSConfig configures the optional commit step
type VCSConfig struct {
	AuthorName     string `mapstructure:"author_name" toml:"author_name"`
	AuthorEmail    string `mapstructure:"author_email" toml:"author_email"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"` // Commit timeout (default: 60)
}

// MetricsConfig configures the Prometheus textfile written after each run
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" toml:"textfile"` // Empty disables metrics
}

// WatchConfig configures `refresh watch`
type WatchConfig struct {
	DebounceMS         int      `mapstructure:"debounce_ms" toml:"debounce_ms"`                   // Quiet period before a dropped file is processed (default: 500)
	MinIntervalSeconds int      `mapstructure:"min_interval_seconds" toml:"min_interval_seconds"` // Minimum spacing between runs (default: 5)
	Extensions         []string `mapstructure:"extensions" toml:"extensions"`                     // Empty accepts every file
	Commit             bool     `mapstructure:"commit" toml:"commit"`                             // Commit after each watched run
}

// LogConfig configures log output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Theme string `mapstructure:"theme" toml:"theme"` // everforest, gruvbox, none
}

// Default path constants
const (
	DefaultArtifactPath     = "js/data.js"
	DefaultArtifactVariable = "dashboardData"
	DefaultBackupDir        = "backups"
	DefaultBackupPrefix     = "data_backup_"
	DefaultMinSourceBytes   = 1000
)

// DefaultRequiredFiles is the set of files the dashboard needs to render
var DefaultRequiredFiles = []string{
	"index.html",
	"js/data.js",
	"js/main.js",
	"css/style.css",
}

// Resolve returns p joined to the project root unless p is absolute
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.RootDir(), p)
}

// RootDir returns the project root as an absolute path when possible
func (c *Config) RootDir() string {
	root := c.Project.Root
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// ArtifactPath returns the absolute artifact path
func (c *Config) ArtifactPath() string {
	if c.Artifact.Path == "" {
		return c.Resolve(DefaultArtifactPath)
	}
	return c.Resolve(c.Artifact.Path)
}

// BackupDir returns the absolute backup directory
func (c *Config) BackupDir() string {
	if c.Backup.Dir == "" {
		return c.Resolve(DefaultBackupDir)
	}
	return c.Resolve(c.Backup.Dir)
}

// ArtifactVariable returns the JS constant name, falling back to the default
func (c *Config) ArtifactVariable() string {
	if c.Artifact.Variable == "" {
		return DefaultArtifactVariable
	}
	return c.Artifact.Variable
}
