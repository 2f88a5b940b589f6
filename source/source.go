// Package source admits the report a run is fed with: it checks the document
// exists, is a regular file and is large enough to be a complete report.
package source

import (
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
)

// Document is a validated source report
type Document struct {
	// Path is the local file the run reads
	Path string
	// Size in bytes
	Size int64
	// Year is the first 4-digit group of the file name, "" when there is none
	Year string
	// Input is what the operator passed, differs from Path when fetched remotely
	Input string
}

// Name returns the document file name
func (d *Document) Name() string {
	return filepath.Base(d.Path)
}

// Validator checks source documents before any state is mutated
type Validator struct {
	minBytes int64
	logger   *zap.SugaredLogger
}

// NewValidator creates a validator rejecting documents under minBytes
func NewValidator(minBytes int64, log *zap.SugaredLogger) *Validator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Validator{minBytes: minBytes, logger: log}
}

// Validate returns the document at path or fails with ErrSourceNotFound or
// ErrSourceTooSmall. It has no side effects.
func (v *Validator) Validate(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				errors.Mark(errors.Newf("source %s does not exist", path), errors.ErrSourceNotFound),
				"pass the path of the downloaded report",
			)
		}
		return nil, errors.Mark(errors.Wrapf(err, "failed to stat source %s", path), errors.ErrSourceNotFound)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Mark(errors.Newf("source %s is not a regular file", path), errors.ErrSourceNotFound)
	}

	if info.Size() < v.minBytes {
		return nil, errors.WithHint(
			errors.Mark(errors.Newf("source %s is %d bytes, minimum is %d", path, info.Size(), v.minBytes), errors.ErrSourceTooSmall),
			"check that the report was fully downloaded",
		)
	}

	doc := &Document{
		Path:  path,
		Size:  info.Size(),
		Year:  YearFromName(filepath.Base(path)),
		Input: path,
	}
	v.logger.Debugw("Source accepted",
		logger.FieldSource, path,
		logger.FieldSize, doc.Size,
		"year", doc.Year,
	)
	return doc, nil
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearFromName returns the first run of four digits in a file name.
// "Report_2025_Q3.pdf" -> "2025"; "report.pdf" -> "".
func YearFromName(name string) string {
	return yearPattern.FindString(name)
}
