package models

// CurrentStats are the aggregate numbers for the latest resolved day.
// TotalLinks counts every record, including unknown-wait ones; AverageWait
// and ImmediateCount only consider records with a known wait value.
type CurrentStats struct {
	Date           string  `json:"date"`
	TotalLinks     int     `json:"total_links"`
	KnownWaitCount int     `json:"known_wait_count"`
	AverageWait    float64 `json:"average_wait"`
	ImmediateCount int     `json:"immediate_count"`
}

// RankedEntry is one row of a best/worst ranking.
type RankedEntry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location,omitempty"`
	DaysOut  int    `json:"days_until_available"`
}

// RegionStat is the keyword-bucketed aggregate for one configured region.
// Regions with zero matches report AverageWait 0 with Count 0, never null.
type RegionStat struct {
	Region      string  `json:"region"`
	Count       int     `json:"count"`
	AverageWait float64 `json:"average_wait"`
}

// DeltaEntry is a per-entity change between two snapshots, matched by name.
type DeltaEntry struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Current  int    `json:"current"`
	Previous int    `json:"previous"`
	Change   int    `json:"change"`
}

// DeltaSection holds the deltas of the latest snapshot against one baseline.
type DeltaSection struct {
	BaselineDate string       `json:"baseline_date"`
	Significant  []DeltaEntry `json:"significant"`
	Improved     []DeltaEntry `json:"improved"`
	Worsened     []DeltaEntry `json:"worsened"`
}

// TrendPoint is one charting point per resolved day.
type TrendPoint struct {
	Date        string             `json:"date"`
	Records     int                `json:"records"`
	AverageWait float64            `json:"average_wait"`
	ByCategory  map[string]float64 `json:"by_category"`
}

// AnalyticsReport is derived from a HistoricalSeries on every request.
// DayOverDay is nil when only one day resolved; WeekOverWeek is nil when
// fewer than seven days resolved.
type AnalyticsReport struct {
	WindowDays   int           `json:"window_days"`
	ResolvedDays int           `json:"resolved_days"`
	Partial      bool          `json:"partial"`
	Current      CurrentStats  `json:"current"`
	Best         []RankedEntry `json:"best"`
	Worst        []RankedEntry `json:"worst"`
	Regions      []RegionStat  `json:"regions"`
	DayOverDay   *DeltaSection `json:"day_over_day,omitempty"`
	WeekOverWeek *DeltaSection `json:"week_over_week,omitempty"`
	Trend        []TrendPoint  `json:"trend"`
}
