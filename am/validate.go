package am

import (
	"strings"

	"github.com/teranos/refresh/errors"
)

var knownFormats = map[string]bool{
	"auto": true, "placeholder": true, "toml": true, "yaml": true, "json": true,
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Artifact.Path == "" {
		return errors.New("artifact.path cannot be empty")
	}
	if strings.ContainsAny(c.Artifact.Variable, " \t\n=;") {
		return errors.Newf("artifact.variable %q is not a valid identifier", c.Artifact.Variable)
	}
	if c.Backup.Dir == "" {
		return errors.New("backup.dir cannot be empty")
	}

	// The size gate cannot be switched off; truncated downloads must never publish
	if c.Source.MinBytes < 1 {
		return errors.Newf("source.min_bytes must be >= 1, got %d", c.Source.MinBytes)
	}

	if c.Source.FetchTimeoutSeconds <= 0 {
		return errors.Newf("source.fetch_timeout_seconds must be > 0, got %d", c.Source.FetchTimeoutSeconds)
	}

	if c.Extract.Format != "" && !knownFormats[c.Extract.Format] {
		return errors.Newf("extract.format must be one of auto, placeholder, toml, yaml, json, got %q", c.Extract.Format)
	}

	if c.Integrity.TimeoutSeconds <= 0 {
		return errors.Newf("integrity.timeout_seconds must be > 0, got %d", c.Integrity.TimeoutSeconds)
	}
	if c.VCS.TimeoutSeconds <= 0 {
		return errors.Newf("vcs.timeout_seconds must be > 0, got %d", c.VCS.TimeoutSeconds)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	if c.Watch.MinIntervalSeconds < 0 {
		return errors.Newf("watch.min_interval_seconds must be >= 0, got %d", c.Watch.MinIntervalSeconds)
	}

	return nil
}
