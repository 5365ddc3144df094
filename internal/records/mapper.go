// Package records turns parsed sheet rows into validated availability
// records. The published tab shares its workbook with dashboard artifacts,
// so validation is what distinguishes a genuine scraped row from summary
// content that happens to live in the same tab.
package records

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"availability-portal/internal/models"
)

var (
	// aggregateRowPattern matches dashboard summary rows that leak into
	// the data tab, e.g. "42 (88.5%)" in the name column.
	aggregateRowPattern = regexp.MustCompile(`^\s*\d+\s*\(\s*\d+(?:\.\d+)?\s*%\s*\)`)
	// digitRun extracts the first run of digits from a decorated wait
	// field, e.g. "⏳ 12 days" -> 12.
	digitRun = regexp.MustCompile(`\d+`)
)

// Options holds the acceptance rules applied to every row.
type Options struct {
	Categories            []string
	ExcludedNames         []string
	RequiredLinkSubstring string
}

// Mapper validates parsed rows and maps the survivors into records.
type Mapper struct {
	opts       Options
	categories map[string]struct{}
}

// NewMapper creates a Mapper with the given rules.
func NewMapper(opts Options) *Mapper {
	categories := make(map[string]struct{}, len(opts.Categories))
	for _, c := range opts.Categories {
		categories[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &Mapper{opts: opts, categories: categories}
}

// columns holds the resolved field indexes for one tab.
type columns struct {
	name, category, location, days, first, link, errTag int
}

// MapRows validates rows (row 0 is the header) and returns the records
// that pass every check. Malformed rows are excluded, never an error.
func (m *Mapper) MapRows(rows [][]string, capturedAt time.Time) []models.AvailabilityRecord {
	if len(rows) < 2 {
		return nil
	}

	cols := resolveColumns(rows[0])
	records := make([]models.AvailabilityRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		category := field(row, cols.category)
		if _, ok := m.categories[strings.ToLower(category)]; !ok {
			continue
		}

		name := field(row, cols.name)
		if name == "" {
			continue
		}
		if aggregateRowPattern.MatchString(name) {
			continue
		}
		if m.isExcluded(name) {
			continue
		}

		link := field(row, cols.link)
		if m.opts.RequiredLinkSubstring != "" &&
			!strings.Contains(strings.ToLower(link), strings.ToLower(m.opts.RequiredLinkSubstring)) {
			continue
		}

		records = append(records, models.AvailabilityRecord{
			Name:           name,
			Category:       category,
			Location:       field(row, cols.location),
			DaysOut:        parseDaysOut(field(row, cols.days)),
			FirstAvailable: field(row, cols.first),
			SignupURL:      link,
			CapturedAt:     capturedAt,
			ErrorTag:       field(row, cols.errTag),
		})
	}

	return records
}

func (m *Mapper) isExcluded(name string) bool {
	for _, excluded := range m.opts.ExcludedNames {
		if strings.EqualFold(strings.TrimSpace(excluded), name) {
			return true
		}
	}
	return false
}

// parseDaysOut pulls the first digit run out of a possibly decorated wait
// field. No digits means the unknown sentinel.
func parseDaysOut(raw string) int {
	match := digitRun.FindString(raw)
	if match == "" {
		return models.UnknownWait
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return models.UnknownWait
	}
	return n
}

// resolveColumns locates fields by header text, falling back to the
// positional layout the publisher has used historically.
func resolveColumns(header []string) columns {
	cols := columns{
		name:     headerIndex(header, 0, "name", "site", "provider"),
		category: headerIndex(header, 1, "category", "type"),
		location: headerIndex(header, 2, "location", "state", "region"),
		days:     headerIndex(header, 3, "days", "wait"),
		first:    headerIndex(header, 4, "first", "earliest"),
		link:     headerIndex(header, 5, "link", "url", "signup"),
		errTag:   headerIndex(header, 6, "error"),
	}
	return cols
}

func headerIndex(header []string, fallback int, aliases ...string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, alias := range aliases {
			if strings.Contains(h, alias) {
				return i
			}
		}
	}
	return fallback
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
