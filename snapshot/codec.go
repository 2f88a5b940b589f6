package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teranos/refresh/errors"
)

// Header is the comment block written above the dataset literal
type Header struct {
	GeneratedAt time.Time
	Title       string
	Period      string
}

// Encode renders the artifact file: a short comment header, the dataset as a
// JSON literal assigned to a JS constant, and a CommonJS export footer so the
// file loads both in the browser and under node.
func Encode(s *Snapshot, variable string, h Header) ([]byte, error) {
	body, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}

	var buf bytes.Buffer
	buf.WriteString("// Dashboard data - generated automatically, do not edit by hand\n")
	fmt.Fprintf(&buf, "// Generated on %s\n", h.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "// Source: %s\n", sourceLine(h))
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "const %s = ", variable)
	buf.Write(body)
	buf.WriteString(";\n\n")
	buf.WriteString("// CommonJS export\n")
	buf.WriteString("if (typeof module !== 'undefined' && module.exports) {\n")
	fmt.Fprintf(&buf, "    module.exports = %s;\n", variable)
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func sourceLine(h Header) string {
	// Comments must stay on one line
	clean := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	switch {
	case h.Title != "" && h.Period != "":
		return clean(h.Title) + " (" + clean(h.Period) + ")"
	case h.Period != "":
		return clean(h.Period)
	default:
		return clean(h.Title)
	}
}

// Decode locates the dataset literal in an artifact and parses it.
// Only the `<const|let|var> <variable> =` declaration anchors the search;
// comments, whitespace and trailing code around the literal are ignored.
func Decode(data []byte, variable string) (*Snapshot, error) {
	decl := regexp.MustCompile(`(?m)\b(?:const|let|var)\s+` + regexp.QuoteMeta(variable) + `\s*=\s*`)
	loc := decl.FindIndex(data)
	if loc == nil {
		return nil, errors.Newf("no %q declaration found in artifact", variable)
	}

	// The decoder stops after the first complete JSON value
	dec := json.NewDecoder(bytes.NewReader(data[loc[1]:]))
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "dataset literal of %q is not valid JSON", variable)
	}
	return &s, nil
}
