package models

import "time"

// DateLayout is the canonical calendar-date format used for snapshot keys,
// API parameters and archive rows.
const DateLayout = "2006-01-02"

// UnknownWait is the sentinel for a wait value that could not be parsed.
// It sorts after every known value and is excluded from averages and rankings.
const UnknownWait = -1

// AvailabilityRecord is one validated row of the published sheet.
// Records are immutable once constructed.
type AvailabilityRecord struct {
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Location       string    `json:"location,omitempty"`
	DaysOut        int       `json:"days_until_available"`
	FirstAvailable string    `json:"first_available,omitempty"`
	SignupURL      string    `json:"signup_url,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
	ErrorTag       string    `json:"error_tag,omitempty"`
}

// HasKnownWait reports whether the record carries a usable wait value.
func (r AvailabilityRecord) HasKnownWait() bool {
	return r.DaysOut >= 0
}

// DaySnapshot is the validated record set resolved for one calendar date.
// A snapshot always holds at least one record; a date with no resolvable
// tab has no snapshot at all, which is a distinct state from "empty".
type DaySnapshot struct {
	Date       time.Time            `json:"-"`
	DateKey    string               `json:"date"`
	Tab        string               `json:"tab"`
	CapturedAt time.Time            `json:"captured_at"`
	Records    []AvailabilityRecord `json:"records"`
}

// NewDaySnapshot builds a snapshot for the given date, normalizing the key.
func NewDaySnapshot(date time.Time, tab string, capturedAt time.Time, records []AvailabilityRecord) *DaySnapshot {
	return &DaySnapshot{
		Date:       date,
		DateKey:    date.Format(DateLayout),
		Tab:        tab,
		CapturedAt: capturedAt,
		Records:    records,
	}
}

// HistoricalSeries is an ordered-by-date sequence of day snapshots covering
// a trailing window, with unresolved days omitted entirely.
type HistoricalSeries struct {
	WindowDays int           `json:"window_days"`
	Snapshots  []DaySnapshot `json:"snapshots"`
}

// Latest returns the most recent snapshot, or nil for an empty series.
func (s HistoricalSeries) Latest() *DaySnapshot {
	if len(s.Snapshots) == 0 {
		return nil
	}
	return &s.Snapshots[len(s.Snapshots)-1]
}

// Oldest returns the earliest snapshot, or nil for an empty series.
func (s HistoricalSeries) Oldest() *DaySnapshot {
	if len(s.Snapshots) == 0 {
		return nil
	}
	return &s.Snapshots[0]
}
