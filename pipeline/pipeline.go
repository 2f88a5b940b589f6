// Package pipeline runs one data refresh as an explicit state machine:
//
//	idle → validating_source → backing_up → extracting → versioning →
//	validating_structure → publishing → checking_integrity → (committing) →
//	succeeded
//
// Any stage failure after backing_up completed goes through rolling_back,
// which restores the artifact from the backup, before failed. Failures
// before that go straight to failed. A commit failure is a warning and the
// run still succeeds.
package pipeline

import (
	"context"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/refresh/backup"
	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/extract"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

// SourceValidator admits source documents
type SourceValidator interface {
	Validate(path string) (*source.Document, error)
}

// SourceFetcher resolves remote inputs to local files
type SourceFetcher interface {
	Fetch(ctx context.Context, input string) (*source.Fetched, error)
}

// BackupStore snapshots and restores the artifact
type BackupStore interface {
	Snapshot(artifactPath string) (*backup.Record, error)
	Restore(rec *backup.Record, artifactPath string) error
}

// VersionLedger derives the next version from the published artifact
type VersionLedger interface {
	Next(artifactPath string) *semver.Version
}

// Publisher replaces the artifact
type Publisher interface {
	Publish(s *snapshot.Snapshot, artifactPath string) error
}

// IntegrityChecker verifies the dashboard after a publish
type IntegrityChecker interface {
	Check(ctx context.Context) error
}

// ChangePublisher records a publish in version control
type ChangePublisher interface {
	Commit(ctx context.Context, version, sourceName string) (string, error)
}

// Deps are the collaborators of a pipeline. Fetcher, Committer and Metrics
// are optional.
type Deps struct {
	ArtifactPath string
	LockPath     string

	Fetcher   SourceFetcher
	Validator SourceValidator
	Backups   BackupStore
	Extractor extract.Extractor
	Ledger    VersionLedger
	Publisher Publisher
	Checker   IntegrityChecker
	Committer ChangePublisher
	Metrics   *Metrics
}

// Options configures a single run
type Options struct {
	// Commit enables the committing stage
	Commit bool
}

// Pipeline sequences the stages of a refresh
type Pipeline struct {
	deps   Deps
	now    func() time.Time
	newID  func() string
	logger *zap.SugaredLogger
}

// New creates a pipeline. Every dependency except Fetcher, Committer and
// Metrics is required.
func New(deps Deps, log *zap.SugaredLogger) (*Pipeline, error) {
	switch {
	case deps.ArtifactPath == "":
		return nil, errors.New("pipeline: artifact path is required")
	case deps.Validator == nil, deps.Backups == nil, deps.Extractor == nil,
		deps.Ledger == nil, deps.Publisher == nil, deps.Checker == nil:
		return nil, errors.New("pipeline: missing stage dependency")
	}
	if deps.LockPath == "" {
		deps.LockPath = LockPathFor(deps.ArtifactPath)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{
		deps:   deps,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log,
	}, nil
}

// stageError is a stage outcome that ends the run
type stageError struct {
	stage State
	err   error
}

// Run executes one refresh of input and returns its record. The record's
// State is always terminal.
func (p *Pipeline) Run(ctx context.Context, input string, opts Options) *Run {
	run := newRun(p.newID(), input, p.now())
	ctx = logger.WithRunID(ctx, run.ID)
	log := logger.FromContext(ctx, p.logger)

	log.Infow("Starting refresh", logger.FieldSource, input, "commit", opts.Commit)

	lock, err := AcquireLock(p.deps.LockPath)
	if err != nil {
		p.finish(ctx, run, &stageError{stage: StateIdle, err: err})
		return run
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warnw("Failed to release run lock", logger.FieldPath, p.deps.LockPath, logger.FieldError, err)
		}
	}()

	doc, cleanup, failure := p.admit(ctx, run, input)
	defer cleanup()
	if failure != nil {
		p.finish(ctx, run, failure)
		return run
	}

	// Nothing is mutated before this point
	if failure := p.mutate(ctx, run, doc); failure != nil {
		p.rollback(ctx, run)
		p.finish(ctx, run, failure)
		return run
	}

	if opts.Commit && p.deps.Committer != nil {
		p.commit(ctx, run, doc)
	}

	p.finish(ctx, run, nil)
	return run
}

// admit fetches and validates the source
func (p *Pipeline) admit(ctx context.Context, run *Run, input string) (*source.Document, func(), *stageError) {
	run.enter(StateValidatingSource, p.now())
	cleanup := func() {}

	path := input
	if p.deps.Fetcher != nil {
		fetched, err := p.deps.Fetcher.Fetch(ctx, input)
		if err != nil {
			return nil, cleanup, &stageError{stage: StateValidatingSource, err: err}
		}
		cleanup = fetched.Cleanup
		path = fetched.Path
	}

	doc, err := p.deps.Validator.Validate(path)
	if err != nil {
		return nil, cleanup, &stageError{stage: StateValidatingSource, err: err}
	}
	doc.Input = input
	return doc, cleanup, nil
}

// mutate runs every stage from backing_up to checking_integrity
func (p *Pipeline) mutate(ctx context.Context, run *Run, doc *source.Document) *stageError {
	log := logger.FromContext(ctx, p.logger)
	artifact := p.deps.ArtifactPath

	run.enter(StateBackingUp, p.now())
	rec, err := p.deps.Backups.Snapshot(artifact)
	if err != nil {
		return &stageError{stage: StateBackingUp, err: err}
	}
	run.Backup = rec

	run.enter(StateExtracting, p.now())
	snap, err := p.deps.Extractor.Extract(ctx, doc)
	if err != nil {
		return &stageError{stage: StateExtracting, err: errors.Mark(err, errors.ErrExtraction)}
	}
	if snap == nil {
		return &stageError{stage: StateExtracting, err: errors.Mark(errors.New("extractor returned no snapshot"), errors.ErrExtraction)}
	}
	snap = snap.Clone()

	run.enter(StateVersioning, p.now())
	next := p.deps.Ledger.Next(artifact)
	if snap.Metadata != nil {
		snap.Metadata.Version = next.String()
	}
	log.Infow("Versioned snapshot", logger.FieldVersion, next.String())

	run.enter(StateValidatingStructure, p.now())
	if err := snapshot.Validate(snap); err != nil {
		return &stageError{stage: StateValidatingStructure, err: err}
	}

	run.enter(StatePublishing, p.now())
	if err := p.deps.Publisher.Publish(snap, artifact); err != nil {
		return &stageError{stage: StatePublishing, err: errors.Mark(err, errors.ErrWrite)}
	}
	run.Version = next.String()

	run.enter(StateCheckingIntegrity, p.now())
	if err := p.deps.Checker.Check(ctx); err != nil {
		return &stageError{stage: StateCheckingIntegrity, err: errors.Mark(err, errors.ErrIntegrity)}
	}
	return nil
}

// rollback restores the artifact when backing_up completed
func (p *Pipeline) rollback(ctx context.Context, run *Run) {
	if run.Backup == nil {
		return
	}
	log := logger.FromContext(ctx, p.logger)
	run.enter(StateRollingBack, p.now())

	if err := p.deps.Backups.Restore(run.Backup, p.deps.ArtifactPath); err != nil {
		run.RollbackErr = err
		log.Errorw("Rollback failed, restore the artifact by hand",
			logger.FieldArtifact, p.deps.ArtifactPath,
			logger.FieldBackup, run.Backup.Path,
			logger.FieldError, err,
		)
		return
	}
	run.RolledBack = true
	// The new version never became visible
	run.Version = ""
	log.Warnw("Rolled back artifact",
		logger.FieldArtifact, p.deps.ArtifactPath,
		logger.FieldBackup, run.Backup.Name(),
	)
}

// commit records the publish; failures only add warnings
func (p *Pipeline) commit(ctx context.Context, run *Run, doc *source.Document) {
	run.enter(StateCommitting, p.now())
	hash, err := p.deps.Committer.Commit(ctx, run.Version, doc.Name())
	if err != nil {
		if !errors.IsWarning(err) {
			err = errors.Mark(err, errors.ErrVCSCommitFailed)
		}
		run.Warnings = append(run.Warnings, err)
		logger.FromContext(ctx, p.logger).Warnw("Commit skipped, data is published",
			logger.FieldKind, errors.KindOf(err),
			logger.FieldError, err,
		)
		return
	}
	run.Commit = hash
}

func (p *Pipeline) finish(ctx context.Context, run *Run, failure *stageError) {
	log := logger.FromContext(ctx, p.logger)

	if failure != nil {
		run.FailedStage = failure.stage
		run.Err = failure.err
		if run.RollbackErr != nil {
			run.Err = errors.WithSecondaryError(run.Err, run.RollbackErr)
		}
		run.enter(StateFailed, p.now())
	} else {
		run.enter(StateSucceeded, p.now())
	}
	run.Finished = p.now()

	if run.Succeeded() {
		log.Infow("Refresh succeeded",
			logger.FieldVersion, run.Version,
			logger.FieldDurationMS, run.Duration().Milliseconds(),
			"warnings", len(run.Warnings),
		)
	} else {
		fields := []interface{}{
			logger.FieldStage, run.FailedStage,
			logger.FieldKind, run.Kind(),
			"rolled_back", run.RolledBack,
			logger.FieldError, run.Err,
		}
		if hint := errors.FlattenHints(run.Err); hint != "" {
			fields = append(fields, logger.FieldHint, hint)
		}
		log.Errorw("Refresh failed", fields...)
	}

	if p.deps.Metrics != nil {
		if err := p.deps.Metrics.Observe(run); err != nil {
			log.Warnw("Failed to write run metrics", logger.FieldError, err)
		}
	}
}
