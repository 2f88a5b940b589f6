// Package extract turns a source document into a snapshot.
//
// Extraction is a capability boundary: the pipeline only sees the Extractor
// interface, and a Registry picks the implementation for each document.
package extract

import (
	"context"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

// Extractor converts a source document into a snapshot.
// Failures are marked with errors.ErrExtraction.
type Extractor interface {
	Extract(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error)

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error) {
	return f(ctx, doc)
}

// failed marks err as an extraction failure, keeping any existing marks
func failed(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), errors.ErrExtraction)
}
