// Package ledger derives the version of the next published snapshot from the
// one currently published.
package ledger

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/snapshot"
)

// DefaultVersion is assumed when the published artifact has no usable version
const DefaultVersion = "1.0.0"

// Ledger reads versions from the published artifact
type Ledger struct {
	variable string
	logger   *zap.SugaredLogger
}

// New creates a ledger for artifacts declaring their dataset as variable
func New(variable string, log *zap.SugaredLogger) *Ledger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ledger{variable: variable, logger: log}
}

// Current returns the version recorded in the artifact's metadata.
// An absent or unreadable artifact, or an unparseable version, yields
// DefaultVersion with found == false.
func (l *Ledger) Current(artifactPath string) (v *semver.Version, found bool) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warnw("Cannot read artifact, assuming default version",
				logger.FieldArtifact, artifactPath,
				logger.FieldError, err,
			)
		}
		return semver.MustParse(DefaultVersion), false
	}

	s, err := snapshot.Decode(data, l.variable)
	if err != nil {
		l.logger.Debugw("Artifact is not decodable, assuming default version",
			logger.FieldArtifact, artifactPath,
			logger.FieldError, err,
		)
		return semver.MustParse(DefaultVersion), false
	}

	raw := s.Version()
	if raw == "" {
		return semver.MustParse(DefaultVersion), false
	}
	v, err = semver.NewVersion(raw)
	if err != nil {
		l.logger.Warnw("Artifact version is not semantic, assuming default",
			logger.FieldVersion, raw,
			logger.FieldError, err,
		)
		return semver.MustParse(DefaultVersion), false
	}
	return v, true
}

// Next returns the current version with minor incremented and patch reset.
// Major is never changed.
func (l *Ledger) Next(artifactPath string) *semver.Version {
	current, _ := l.Current(artifactPath)
	next := current.IncMinor()
	l.logger.Debugw("Next version",
		"current", current.String(),
		logger.FieldVersion, next.String(),
	)
	return &next
}
