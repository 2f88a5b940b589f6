package extract

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

// Format names accepted by extract.format
const (
	FormatAuto        = "auto"
	FormatPlaceholder = "placeholder"
	FormatTOML        = "toml"
	FormatYAML        = "yaml"
	FormatJSON        = "json"
)

// Registry selects an extractor by file extension, or uses a forced format.
// Documents with an unknown extension go to the fallback extractor.
type Registry struct {
	formats  map[string]Extractor
	byExt    map[string]string
	fallback string
	forced   string
	logger   *zap.SugaredLogger
}

// Options configures the default registry
type Options struct {
	Format string // auto or a format name
	Title  string
	Now    func() time.Time
}

// NewRegistry creates the default registry: .toml, .yaml/.yml and .json go
// to the structured extractors, everything else to the placeholder.
func NewRegistry(opts Options, log *zap.SugaredLogger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Registry{
		formats:  map[string]Extractor{},
		byExt:    map[string]string{},
		fallback: FormatPlaceholder,
		logger:   log,
	}

	tomlX, yamlX, jsonX := NewTOML(opts.Title), NewYAML(opts.Title), NewJSON(opts.Title)
	for _, s := range []*Structured{tomlX, yamlX, jsonX} {
		s.Now = opts.Now
	}
	r.Register(FormatPlaceholder, &Placeholder{Title: opts.Title, Now: opts.Now})
	r.Register(FormatTOML, tomlX, ".toml")
	r.Register(FormatYAML, yamlX, ".yaml", ".yml")
	r.Register(FormatJSON, jsonX, ".json")

	if err := r.Force(opts.Format); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds or replaces the extractor for a format and maps extensions to it
func (r *Registry) Register(format string, e Extractor, exts ...string) {
	r.formats[format] = e
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = format
	}
}

// Force makes every document use format. "" and "auto" restore selection by extension.
func (r *Registry) Force(format string) error {
	if format == "" || format == FormatAuto {
		r.forced = ""
		return nil
	}
	if _, ok := r.formats[format]; !ok {
		return errors.Newf("unknown extraction format %q (known: %s)", format, strings.Join(r.Formats(), ", "))
	}
	r.forced = format
	return nil
}

// Formats lists registered format names
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatFor returns the format that would handle doc
func (r *Registry) FormatFor(doc *source.Document) string {
	if r.forced != "" {
		return r.forced
	}
	if format, ok := r.byExt[strings.ToLower(filepath.Ext(doc.Path))]; ok {
		return format
	}
	return r.fallback
}

// Extract dispatches to the selected extractor
func (r *Registry) Extract(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error) {
	format := r.FormatFor(doc)
	r.logger.Debugw("Extracting",
		logger.FieldSource, doc.Path,
		"format", format,
	)
	s, err := r.formats[format].Extract(ctx, doc)
	if err != nil {
		if !errors.Is(err, errors.ErrExtraction) {
			err = failed(err, "%s extractor failed", format)
		}
		return nil, err
	}
	if s == nil {
		return nil, errors.Mark(errors.Newf("%s extractor returned no snapshot", format), errors.ErrExtraction)
	}
	if format == FormatPlaceholder {
		r.logger.Warnw("Published values are placeholders, not read from the report",
			logger.FieldSource, doc.Name(),
		)
	}
	return s, nil
}
