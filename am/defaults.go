package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.root", ".")

	// Published dataset
	v.SetDefault("artifact.path", DefaultArtifactPath)
	v.SetDefault("artifact.variable", DefaultArtifactVariable)

	// Backups are never deleted by the pipeline
	v.SetDefault("backup.dir", DefaultBackupDir)
	v.SetDefault("backup.prefix", DefaultBackupPrefix)

	// Reports smaller than 1KB are truncated downloads
	v.SetDefault("source.min_bytes", DefaultMinSourceBytes)
	v.SetDefault("source.download_dir", "")
	v.SetDefault("source.fetch_timeout_seconds", 300)
	v.SetDefault("source.allow_private_hosts", false)

	v.SetDefault("extract.format", "auto")
	v.SetDefault("extract.title", "Provincial Social Report")

	v.SetDefault("integrity.required_files", DefaultRequiredFiles)
	v.SetDefault("integrity.command", "")
	v.SetDefault("integrity.runtime_probe", true)
	v.SetDefault("integrity.timeout_seconds", 30)

	v.SetDefault("vcs.author_name", "refresh")
	v.SetDefault("vcs.author_email", "refresh@localhost")
	v.SetDefault("vcs.timeout_seconds", 60)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.min_interval_seconds", 5)
	v.SetDefault("watch.extensions", []string{})
	v.SetDefault("watch.commit", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindEnvVars explicitly binds the settings operators override most often
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("project.root", "REFRESH_ROOT")
	v.BindEnv("integrity.command", "REFRESH_INTEGRITY_COMMAND")
	v.BindEnv("metrics.textfile", "REFRESH_METRICS_TEXTFILE")
}
