// Package snapshot defines the structured dataset read by the dashboard,
// its structural validation, and the artifact file format it is published in.
package snapshot

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/teranos/refresh/errors"
)

// Indicators the dashboard cannot render without
const (
	KPITotalPopulation = "totalPopulation"
	KPIEmploymentRate  = "employmentRate"
)

// RequiredKPIs lists the kpi keys every snapshot must carry
var RequiredKPIs = []string{KPITotalPopulation, KPIEmploymentRate}

// Metadata describes where a snapshot came from and which version it is
type Metadata struct {
	Title     string `json:"title" validate:"required"`
	Period    string `json:"period" validate:"required"`
	UpdatedOn string `json:"updatedOn" validate:"required"`
	Version   string `json:"version,omitempty"`
}

// KPI maps indicator names to numeric or text values
type KPI map[string]interface{}

// Snapshot is the dataset published to the dashboard.
//
// Metadata and KPI are the typed sections the pipeline reasons about.
// Any other top-level section produced by an extractor (demographics,
// employment series, ...) is carried verbatim in Sections.
type Snapshot struct {
	Metadata *Metadata `json:"metadata" validate:"required"`
	KPI      KPI       `json:"kpi" validate:"required"`
	Sections map[string]json.RawMessage `json:"-"`
}

// Version returns the recorded metadata version, or "" when there is none
func (s *Snapshot) Version() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	return s.Metadata.Version
}

// MarshalJSON writes metadata, then kpi, then extra sections in key order
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "failed to encode section %q", key)
		}
		buf.Write(v)
		return nil
	}

	if s.Metadata != nil {
		if err := write("metadata", s.Metadata); err != nil {
			return nil, err
		}
	}
	if s.KPI != nil {
		if err := write("kpi", s.KPI); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(s.Sections))
	for k := range s.Sections {
		if k == "metadata" || k == "kpi" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, s.Sections[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the typed sections and keeps everything else in Sections
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Snapshot{}
	if m, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(m, &s.Metadata); err != nil {
			return errors.Wrap(err, "metadata")
		}
		delete(raw, "metadata")
	}
	if k, ok := raw["kpi"]; ok {
		if err := json.Unmarshal(k, &s.KPI); err != nil {
			return errors.Wrap(err, "kpi")
		}
		delete(raw, "kpi")
	}
	if len(raw) > 0 {
		s.Sections = raw
	}
	return nil
}

// Clone returns a deep copy, so stages never mutate a caller's snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{}
	if s.Metadata != nil {
		m := *s.Metadata
		out.Metadata = &m
	}
	if s.KPI != nil {
		out.KPI = make(KPI, len(s.KPI))
		for k, v := range s.KPI {
			out.KPI[k] = v
		}
	}
	if s.Sections != nil {
		out.Sections = make(map[string]json.RawMessage, len(s.Sections))
		for k, v := range s.Sections {
			out.Sections[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
