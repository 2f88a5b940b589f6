package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/refresh/am"
	"github.com/teranos/refresh/backup"
	"github.com/teranos/refresh/extract"
	"github.com/teranos/refresh/integrity"
	"github.com/teranos/refresh/ledger"
	"github.com/teranos/refresh/publish"
	"github.com/teranos/refresh/source"
	"github.com/teranos/refresh/vcs"
)

// FromConfig wires the production collaborators for cfg. Each component
// gets its own named logger.
func FromConfig(cfg *am.Config, log *zap.SugaredLogger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	registry, err := extract.NewRegistry(extract.Options{
		Format: cfg.Extract.Format,
		Title:  cfg.Extract.Title,
	}, log.Named("extract"))
	if err != nil {
		return nil, err
	}

	checker, err := integrity.FromConfig(cfg, log.Named("integrity"))
	if err != nil {
		return nil, err
	}

	variable := cfg.ArtifactVariable()
	deps := Deps{
		ArtifactPath: cfg.ArtifactPath(),
		Fetcher: source.NewFetcher(source.FetchOptions{
			Dir:               cfg.Source.DownloadDir,
			Timeout:           time.Duration(cfg.Source.FetchTimeoutSeconds) * time.Second,
			AllowPrivateHosts: cfg.Source.AllowPrivateHosts,
		}, log.Named("source")),
		Validator: source.NewValidator(cfg.Source.MinBytes, log.Named("source")),
		Backups:   backup.NewStore(cfg.BackupDir(), cfg.Backup.Prefix, log.Named("backup")),
		Extractor: registry,
		Ledger:    ledger.New(variable, log.Named("ledger")),
		Publisher: publish.New(variable, log.Named("publish")),
		Checker:   checker,
		Committer: vcs.New(cfg.RootDir(), vcs.Author{
			Name:  cfg.VCS.AuthorName,
			Email: cfg.VCS.AuthorEmail,
		}, time.Duration(cfg.VCS.TimeoutSeconds)*time.Second, log.Named("vcs")),
	}
	if cfg.Metrics.Textfile != "" {
		deps.Metrics = NewMetrics(cfg.Resolve(cfg.Metrics.Textfile))
	}

	return New(deps, log.Named("pipeline"))
}
