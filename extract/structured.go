package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

// decodeFunc reads a document into a generic tree
type decodeFunc func(data []byte) (map[string]interface{}, error)

// Structured extracts documents that already carry the snapshot layout
// (metadata, kpi and any extra sections) in a structured text format.
// Missing title, period and updatedOn are filled like the placeholder does.
type Structured struct {
	format string
	decode decodeFunc
	Title  string
	Now    func() time.Time
}

// NewTOML returns an extractor for TOML reports
func NewTOML(title string) *Structured {
	return &Structured{format: FormatTOML, decode: decodeTOML, Title: title}
}

// NewYAML returns an extractor for YAML reports
func NewYAML(title string) *Structured {
	return &Structured{format: FormatYAML, decode: decodeYAML, Title: title}
}

// NewJSON returns an extractor for JSON reports
func NewJSON(title string) *Structured {
	return &Structured{format: FormatJSON, decode: decodeJSON, Title: title}
}

// Format returns the format name
func (s *Structured) Format() string {
	return s.format
}

// Extract decodes the document and fills derived metadata
func (s *Structured) Extract(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, failed(err, "extraction cancelled")
	}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, failed(err, "failed to read %s", doc.Path)
	}

	tree, err := s.decode(data)
	if err != nil {
		return nil, errors.WithHintf(
			failed(err, "%s is not valid %s", doc.Name(), s.format),
			"set extract.format if %s is not a %s report", doc.Name(), s.format,
		)
	}

	// The generic tree goes through JSON so the snapshot keeps its own
	// section handling for metadata, kpi and extra sections.
	buf, err := json.Marshal(tree)
	if err != nil {
		return nil, failed(err, "%s has values that cannot be published", doc.Name())
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(buf, &snap); err != nil {
		return nil, failed(err, "%s does not have the snapshot layout", doc.Name())
	}

	if snap.Metadata == nil {
		snap.Metadata = &snapshot.Metadata{}
	}
	m := snap.Metadata
	if m.Title == "" {
		m.Title = titleFor(s.Title, doc)
	}
	if m.Period == "" {
		m.Period = PeriodFor(doc)
	}
	if m.UpdatedOn == "" {
		m.UpdatedOn = now(s.Now).Format("2006-01-02")
	}
	// The version belongs to the ledger
	m.Version = ""

	return &snap, nil
}

func decodeTOML(data []byte) (map[string]interface{}, error) {
	var tree map[string]interface{}
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func decodeYAML(data []byte) (map[string]interface{}, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("document is empty")
	}
	for k, v := range tree {
		tree[k] = stringKeys(v)
	}
	return tree, nil
}

// stringKeys rewrites the map[interface{}]interface{} yaml.v3 produces for
// non-string keys (year-keyed series such as `2023: 67.5`) so the tree can
// be encoded as JSON.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]interface{}:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

func decodeJSON(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree map[string]interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("document is null")
	}
	return tree, nil
}
