package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

var fixedNow = func() time.Time { return time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC) }

func doc(t *testing.T, name, content string) *source.Document {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return &source.Document{Path: p, Size: int64(len(content)), Year: source.YearFromName(name), Input: p}
}

func TestPlaceholder(t *testing.T) {
	p := &Placeholder{Title: "Provincial Social Report", Now: fixedNow}

	s, err := p.Extract(context.Background(), doc(t, "Report_2025.pdf", "x"))
	require.NoError(t, err)
	require.NoError(t, snapshot.Validate(s))
	assert.Equal(t, "Provincial Social Report 2025", s.Metadata.Title)
	assert.Equal(t, "January-September 2025", s.Metadata.Period)
	assert.Equal(t, "2025-10-01", s.Metadata.UpdatedOn)
	assert.Empty(t, s.Metadata.Version)
	assert.Equal(t, 358397, s.KPI[snapshot.KPITotalPopulation])

	s, err = p.Extract(context.Background(), doc(t, "report.pdf", "x"))
	require.NoError(t, err)
	assert.Equal(t, UnspecifiedPeriod, s.Metadata.Period)
	assert.Equal(t, "Provincial Social Report", s.Metadata.Title)
}

func TestPlaceholder_DoesNotShareKPI(t *testing.T) {
	p := &Placeholder{Title: "t"}
	a, err := p.Extract(context.Background(), doc(t, "a.pdf", "x"))
	require.NoError(t, err)
	a.KPI["extra"] = 1

	b, err := p.Extract(context.Background(), doc(t, "b.pdf", "x"))
	require.NoError(t, err)
	assert.NotContains(t, b.KPI, "extra")
}

const tomlReport = `
[metadata]
title = "Social Report 2025"
version = "7.0.0"

[kpi]
totalPopulation = 349882
employmentRate = 67.4

[demographics]
births = 2100
deaths = 4200
`

const yamlReport = `
metadata:
  title: Social Report 2025
  period: Q1-Q3 2025
  updatedOn: "2025-09-30"
kpi:
  totalPopulation: 349882
  employmentRate: 67.4
employment:
  sectors: [agriculture, industry, services]
`

const jsonReport = `{
  "kpi": {"totalPopulation": 349882, "employmentRate": 67.4, "revenueGrowth": "+2.1%"},
  "pensions": {"total": 125718}
}`

func TestStructuredExtractors(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		x          *Structured
		wantTitle  string
		wantPeriod string
		wantUpdate string
		section    string
	}{
		{"toml", "report_2025.toml", tomlReport, NewTOML("Default"), "Social Report 2025", "January-September 2025", "2025-10-01", "demographics"},
		{"yaml", "report_2025.yaml", yamlReport, NewYAML("Default"), "Social Report 2025", "Q1-Q3 2025", "2025-09-30", "employment"},
		{"json", "report_2024.json", jsonReport, NewJSON("Default"), "Default 2024", "January-September 2024", "2025-10-01", "pensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.x.Now = fixedNow
			s, err := tt.x.Extract(context.Background(), doc(t, tt.file, tt.content))
			require.NoError(t, err)
			require.NoError(t, snapshot.Validate(s))

			assert.Equal(t, tt.wantTitle, s.Metadata.Title)
			assert.Equal(t, tt.wantPeriod, s.Metadata.Period)
			assert.Equal(t, tt.wantUpdate, s.Metadata.UpdatedOn)
			assert.Empty(t, s.Metadata.Version, "version is assigned by the ledger")
			assert.Contains(t, s.Sections, tt.section)
			assert.EqualValues(t, 349882, s.KPI[snapshot.KPITotalPopulation])
		})
	}
}

func TestStructured_YAMLYearKeyedSeries(t *testing.T) {
	report := yamlReport + `
  trend:
    2023: 67.5
    2024: {rate: 68.1, sectors: [{2024: 12}]}
`
	s, err := NewYAML("Default").Extract(context.Background(), doc(t, "report_2025.yaml", report))
	require.NoError(t, err)

	var employment struct {
		Trend map[string]json.RawMessage `json:"trend"`
	}
	require.NoError(t, json.Unmarshal(s.Sections["employment"], &employment))
	assert.JSONEq(t, `67.5`, string(employment.Trend["2023"]))
	assert.JSONEq(t, `{"rate": 68.1, "sectors": [{"2024": 12}]}`, string(employment.Trend["2024"]))
}

func TestStructured_MissingKPIIsCaughtByValidation(t *testing.T) {
	x := NewYAML("t")
	s, err := x.Extract(context.Background(), doc(t, "r.yaml", "metadata:\n  title: t\n"))
	require.NoError(t, err)

	key, ok := snapshot.MissingKey(snapshot.Validate(s))
	require.True(t, ok)
	assert.Equal(t, "kpi", key)
}

func TestStructured_InvalidDocument(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		x       *Structured
	}{
		{"toml", "r.toml", "[kpi\ntotal = ", NewTOML("t")},
		{"yaml", "r.yaml", "kpi: [unclosed", NewYAML("t")},
		{"json", "r.json", "{\"kpi\": ", NewJSON("t")},
		{"json array", "r.json", "[1, 2]", NewJSON("t")},
		{"empty yaml", "r.yaml", "", NewYAML("t")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.x.Extract(context.Background(), doc(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrExtraction))
		})
	}
}

func TestRegistry_SelectsByExtension(t *testing.T) {
	r, err := NewRegistry(Options{Title: "t", Now: fixedNow}, nil)
	require.NoError(t, err)

	tests := map[string]string{
		"r.toml": FormatTOML,
		"r.YAML": FormatYAML,
		"r.yml":  FormatYAML,
		"r.json": FormatJSON,
		"r.pdf":  FormatPlaceholder,
		"r_2025": FormatPlaceholder,
	}
	for name, want := range tests {
		assert.Equal(t, want, r.FormatFor(&source.Document{Path: name}), name)
	}

	s, err := r.Extract(context.Background(), doc(t, "report_2025.toml", tomlReport))
	require.NoError(t, err)
	assert.Equal(t, "Social Report 2025", s.Metadata.Title)
}

func TestRegistry_Force(t *testing.T) {
	r, err := NewRegistry(Options{Format: FormatPlaceholder, Title: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatPlaceholder, r.FormatFor(&source.Document{Path: "r.json"}))

	require.NoError(t, r.Force(FormatAuto))
	assert.Equal(t, FormatJSON, r.FormatFor(&source.Document{Path: "r.json"}))

	_, err = NewRegistry(Options{Format: "xlsx"}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "xlsx"))
}

func TestRegistry_MarksForeignFailures(t *testing.T) {
	r, err := NewRegistry(Options{}, nil)
	require.NoError(t, err)
	r.Register("broken", ExtractorFunc(func(ctx context.Context, d *source.Document) (*snapshot.Snapshot, error) {
		return nil, errors.New("parser crashed")
	}), ".rsp")

	_, err = r.Extract(context.Background(), doc(t, "r.rsp", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExtraction))

	r.Register("nil", ExtractorFunc(func(ctx context.Context, d *source.Document) (*snapshot.Snapshot, error) {
		return nil, nil
	}), ".nil")
	_, err = r.Extract(context.Background(), doc(t, "r.nil", "x"))
	assert.True(t, errors.Is(err, errors.ErrExtraction))
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Placeholder{}).Extract(ctx, doc(t, "r.pdf", "x"))
	assert.True(t, errors.Is(err, errors.ErrExtraction))
}
