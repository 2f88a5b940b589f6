// Package publish writes a validated snapshot to the artifact the dashboard
// reads. The artifact is replaced in one rename and is never partially written.
package publish

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/internal/util"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/snapshot"
)

// Publisher serializes snapshots into the artifact
type Publisher struct {
	variable string
	now      func() time.Time
	write    func(path string, data []byte) error
	logger   *zap.SugaredLogger
}

// Option configures a Publisher
type Option func(*Publisher)

// WithClock replaces time.Now for the generation header
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithWriter replaces the atomic file writer
func WithWriter(write func(path string, data []byte) error) Option {
	return func(p *Publisher) { p.write = write }
}

// New creates a publisher declaring the dataset as variable
func New(variable string, log *zap.SugaredLogger, opts ...Option) *Publisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &Publisher{
		variable: variable,
		now:      time.Now,
		write: func(path string, data []byte) error {
			return util.WriteFileAtomic(path, data, 0o644)
		},
		logger: log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render returns the artifact bytes for s
func (p *Publisher) Render(s *snapshot.Snapshot) ([]byte, error) {
	h := snapshot.Header{GeneratedAt: p.now()}
	if s.Metadata != nil {
		h.Title = s.Metadata.Title
		h.Period = s.Metadata.Period
	}
	return snapshot.Encode(s, p.variable, h)
}

// Publish replaces the artifact at path with s. On failure the previous
// artifact is left untouched and the error is marked errors.ErrWrite.
func (p *Publisher) Publish(s *snapshot.Snapshot, path string) error {
	data, err := p.Render(s)
	if err != nil {
		return errors.Mark(err, errors.ErrWrite)
	}
	if err := p.write(path, data); err != nil {
		return errors.WithHint(
			errors.Mark(errors.Wrapf(err, "failed to publish %s", path), errors.ErrWrite),
			"check permissions and free space in the artifact directory",
		)
	}

	p.logger.Infow("Published artifact",
		logger.FieldArtifact, path,
		logger.FieldVersion, s.Version(),
		logger.FieldSize, len(data),
	)
	return nil
}
