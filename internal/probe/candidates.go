// Package probe locates the published tab holding a given date's data.
// The publisher embeds an unpredictable publish timestamp in each tab
// name, so discovery is guess-and-check over a bounded candidate grid.
package probe

import (
	"time"
)

// Generator produces candidate tab names for a calendar date. The
// candidate list is built from configuration (date formats and a curated
// timestamp-suffix grid), deliberately bounded to tens of entries:
// responsiveness beats exhaustiveness, and ordering is only a hint since
// any matching candidate is acceptable.
type Generator struct {
	dateFormats []string
	suffixes    []string
}

// NewGenerator creates a Generator from the configured formats and grid.
func NewGenerator(dateFormats, timeSuffixes []string) *Generator {
	if len(dateFormats) == 0 {
		dateFormats = []string{"01-02-2006", "2006-01-02"}
	}
	return &Generator{dateFormats: dateFormats, suffixes: timeSuffixes}
}

// Candidates returns the ordered candidate tab names for date,
// most-likely-first: bare date variants, then the timestamp grid.
func (g *Generator) Candidates(date time.Time) []string {
	candidates := make([]string, 0, len(g.dateFormats)*(1+len(g.suffixes)))

	for _, format := range g.dateFormats {
		candidates = append(candidates, date.Format(format))
	}
	for _, format := range g.dateFormats {
		dateStr := date.Format(format)
		for _, suffix := range g.suffixes {
			candidates = append(candidates, dateStr+" "+suffix)
		}
	}

	return candidates
}

// DateStrings returns the bare date renderings used to recognize a
// date inside an arbitrary tab name.
func (g *Generator) DateStrings(date time.Time) []string {
	out := make([]string, 0, len(g.dateFormats))
	for _, format := range g.dateFormats {
		out = append(out, date.Format(format))
	}
	return out
}

// ParseCaptureTime extracts the publish timestamp embedded in a matched
// tab name. When no known layout parses, fallback is returned.
func (g *Generator) ParseCaptureTime(tab string, fallback time.Time) time.Time {
	for _, format := range g.dateFormats {
		if t, err := time.Parse(format+" 15:04:05", tab); err == nil {
			return t
		}
		if t, err := time.Parse(format+" 15:04", tab); err == nil {
			return t
		}
		if t, err := time.Parse(format, tab); err == nil {
			return t
		}
	}
	return fallback
}
