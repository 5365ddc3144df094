package records

import (
	"testing"
	"time"

	"availability-portal/internal/models"
)

var testOpts = Options{
	Categories:            []string{"Health System", "Pharmacy", "Provider"},
	ExcludedNames:         []string{"Jane Operator"},
	RequiredLinkSubstring: "vaccinefinder.org",
}

func sampleRows() [][]string {
	return [][]string{
		{"Name", "Category", "Location", "Days Until Available", "First Available", "Signup Link", "Error"},
		{"Mercy Hospital - Memphis TN", "Health System", "TN", "3", "2021-03-02", "https://vaccinefinder.org/site/100", ""},
		{"Corner Pharmacy", "Pharmacy", "KS", "⏳ 12", "", "https://vaccinefinder.org/site/101", ""},
		{"Dr. Lee", "Provider", "CA", "", "", "https://vaccinefinder.org/site/102", "stale"},
		{"County Dashboard", "Summary", "TN", "1", "", "https://vaccinefinder.org/site/103", ""},
		{"", "Pharmacy", "TX", "2", "", "https://vaccinefinder.org/site/104", ""},
		{"42 (88.5%)", "Pharmacy", "", "1", "", "https://vaccinefinder.org/site/105", ""},
		{"Jane Operator", "Pharmacy", "OK", "2", "", "https://vaccinefinder.org/site/106", ""},
		{"Rogue Row", "Pharmacy", "OR", "2", "", "https://elsewhere.example.com/x", ""},
	}
}

func TestMapRowsAcceptsOnlyValidRows(t *testing.T) {
	m := NewMapper(testOpts)
	capturedAt := time.Date(2021, 3, 1, 6, 0, 2, 0, time.UTC)

	got := m.MapRows(sampleRows(), capturedAt)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(got), got)
	}

	whitelist := map[string]bool{"Health System": true, "Pharmacy": true, "Provider": true}
	for _, r := range got {
		if !whitelist[r.Category] {
			t.Errorf("record %q has non-whitelisted category %q", r.Name, r.Category)
		}
		if !r.CapturedAt.Equal(capturedAt) {
			t.Errorf("record %q capturedAt = %v, want %v", r.Name, r.CapturedAt, capturedAt)
		}
	}
}

func TestMapRowsDigitExtraction(t *testing.T) {
	m := NewMapper(testOpts)
	got := m.MapRows(sampleRows(), time.Now())

	byName := map[string]models.AvailabilityRecord{}
	for _, r := range got {
		byName[r.Name] = r
	}

	if r := byName["Corner Pharmacy"]; r.DaysOut != 12 {
		t.Errorf("decorated wait field: got %d, want 12", r.DaysOut)
	}
	if r := byName["Dr. Lee"]; r.DaysOut != models.UnknownWait {
		t.Errorf("empty wait field: got %d, want %d", r.DaysOut, models.UnknownWait)
	}
	if r := byName["Dr. Lee"]; r.ErrorTag != "stale" {
		t.Errorf("error tag: got %q, want %q", r.ErrorTag, "stale")
	}
}

func TestMapRowsRejectsAggregateRows(t *testing.T) {
	m := NewMapper(testOpts)
	rows := [][]string{
		{"name", "category", "location", "days", "first", "link"},
		{"42 (88.5%)", "Pharmacy", "", "1", "", "https://vaccinefinder.org/a"},
		{"7 (100%)", "Pharmacy", "", "1", "", "https://vaccinefinder.org/b"},
	}
	if got := m.MapRows(rows, time.Now()); len(got) != 0 {
		t.Errorf("aggregate rows should be rejected, got %d records", len(got))
	}
}

func TestMapRowsRequiresLinkDomain(t *testing.T) {
	m := NewMapper(testOpts)
	rows := [][]string{
		{"name", "category", "location", "days", "first", "link"},
		{"Good Site", "Pharmacy", "TX", "2", "", "https://www.VACCINEFINDER.org/site/1"},
		{"Bad Site", "Pharmacy", "TX", "2", "", "https://other.example.com/site/2"},
	}
	got := m.MapRows(rows, time.Now())
	if len(got) != 1 || got[0].Name != "Good Site" {
		t.Fatalf("expected only the matching-domain row, got %+v", got)
	}
}

func TestMapRowsNeverExceedsInput(t *testing.T) {
	m := NewMapper(testOpts)
	rows := sampleRows()
	got := m.MapRows(rows, time.Now())
	if len(got) > len(rows)-1 {
		t.Errorf("validated count %d exceeds input rows %d", len(got), len(rows)-1)
	}
}

func TestMapRowsShortRows(t *testing.T) {
	m := NewMapper(testOpts)
	// Rows shorter than the header must not panic; missing link fails
	// validation.
	rows := [][]string{
		{"name", "category", "location", "days", "first", "link"},
		{"Lonely", "Pharmacy"},
	}
	if got := m.MapRows(rows, time.Now()); len(got) != 0 {
		t.Errorf("short row should be excluded, got %d records", len(got))
	}
}

func TestMapRowsHeaderOnly(t *testing.T) {
	m := NewMapper(testOpts)
	rows := [][]string{{"name", "category"}}
	if got := m.MapRows(rows, time.Now()); got != nil {
		t.Errorf("header-only input should yield nil, got %+v", got)
	}
}
