// Package errors provides error handling for refresh.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Error marks, so a wrapped failure keeps its pipeline kind
//   - Hints for the operator running the CLI
//
// Usage:
//
//	// Wrap with context
//	if err := os.Rename(tmp, path); err != nil {
//	    return errors.Mark(errors.Wrap(err, "failed to replace artifact"), errors.ErrWrite)
//	}
//
//	// Check kinds
//	if errors.Is(err, errors.ErrSourceTooSmall) {
//	    // rejected before any mutation
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Pipeline failure kinds. Stages mark their errors with one of these so the
// orchestrator and the CLI can classify a failure with errors.Is without
// parsing messages.
var (
	// ErrSourceNotFound: the source document does not exist or is not a regular file
	ErrSourceNotFound = New("source not found")

	// ErrSourceTooSmall: the source document is below the minimum size
	ErrSourceTooSmall = New("source too small")

	// ErrExtraction: the extraction adapter could not produce a snapshot
	ErrExtraction = New("extraction failed")

	// ErrMissingKey: a required snapshot key is absent
	ErrMissingKey = New("missing required key")

	// ErrWrite: the artifact (or a backup) could not be written
	ErrWrite = New("write failed")

	// ErrIntegrity: the post-publish self-check failed
	ErrIntegrity = New("integrity check failed")

	// ErrVCSUnavailable: no version-control repository at the project root
	ErrVCSUnavailable = New("version control unavailable")

	// ErrVCSCommitFailed: staging or committing was rejected
	ErrVCSCommitFailed = New("version control commit failed")

	// ErrRunInProgress: another run holds the artifact lock
	ErrRunInProgress = New("another run is in progress")
)

// kinds is ordered: the first matching mark names the failure. Stage marks
// that wrap other failures (an integrity probe rejecting a structurally
// invalid artifact) come before the marks they may wrap.
var kinds = []struct {
	err  error
	name string
}{
	{ErrRunInProgress, "RunInProgress"},
	{ErrSourceNotFound, "SourceNotFound"},
	{ErrSourceTooSmall, "SourceTooSmall"},
	{ErrIntegrity, "IntegrityFailure"},
	{ErrVCSUnavailable, "VersionControlUnavailable"},
	{ErrVCSCommitFailed, "VersionControlCommitFailed"},
	{ErrWrite, "WriteError"},
	{ErrExtraction, "ExtractionError"},
	{ErrMissingKey, "MissingKey"},
}

// KindOf returns the taxonomy name of a pipeline error, or "Unknown".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}

// IsWarning reports whether err is recovered locally (logged, run still succeeds).
func IsWarning(err error) bool {
	return err != nil && IsAny(err, ErrVCSUnavailable, ErrVCSCommitFailed)
}

// IsPreMutation reports whether err is raised before any state is touched.
func IsPreMutation(err error) bool {
	return err != nil && IsAny(err, ErrSourceNotFound, ErrSourceTooSmall, ErrRunInProgress)
}
