package extract

import (
	"context"
	"strings"
	"time"

	"github.com/teranos/refresh/snapshot"
	"github.com/teranos/refresh/source"
)

// Placeholder values published until a real report parser is plugged in
var placeholderKPI = snapshot.KPI{
	snapshot.KPITotalPopulation: 358397,
	snapshot.KPIEmploymentRate:  68.1,
	"retiredTotal":              125718,
	"revenueGrowth":             "+3.5%",
}

// UnspecifiedPeriod is used when the file name carries no year
const UnspecifiedPeriod = "Unspecified period"

// PeriodFor returns the reporting period for a document:
// "January-September <year>" from the year in its name.
func PeriodFor(doc *source.Document) string {
	if doc.Year == "" {
		return UnspecifiedPeriod
	}
	return "January-September " + doc.Year
}

// Placeholder is a stub extractor: it derives the period from the file name
// and fills fixed example indicators. It never reads the document.
type Placeholder struct {
	Title string
	Now   func() time.Time
}

// Extract builds the placeholder snapshot
func (p *Placeholder) Extract(ctx context.Context, doc *source.Document) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, failed(err, "extraction cancelled")
	}

	kpi := make(snapshot.KPI, len(placeholderKPI))
	for k, v := range placeholderKPI {
		kpi[k] = v
	}

	return &snapshot.Snapshot{
		Metadata: &snapshot.Metadata{
			Title:     titleFor(p.Title, doc),
			Period:    PeriodFor(doc),
			UpdatedOn: now(p.Now).Format("2006-01-02"),
		},
		KPI: kpi,
	}, nil
}

func titleFor(base string, doc *source.Document) string {
	base = strings.TrimSpace(base)
	if doc.Year == "" || strings.Contains(base, doc.Year) {
		return base
	}
	if base == "" {
		return doc.Year
	}
	return base + " " + doc.Year
}

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}
