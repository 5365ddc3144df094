// Package analytics derives the dashboard numbers from a historical
// series. A report is a pure function of its input: nothing here fetches,
// caches or mutates, so every call over the same series yields the same
// report.
package analytics

import (
	"errors"
	"sort"
	"strings"

	"availability-portal/internal/models"
)

// ErrNoData means the window resolved zero days. Deliberately distinct
// from a report full of zeros, which would read as "everything is
// immediately available".
var ErrNoData = errors.New("no data available")

// Region is a label with the location keywords that map records into it.
// First matching region wins, in configuration order.
type Region struct {
	Name     string
	Keywords []string
}

// Options carries the thresholds and category rules for one report.
type Options struct {
	TrackableCategories    []string
	ImmediateThresholdDays int
	RankSize               int
	WeekMinimumDelta       int
	Regions                []Region
}

// Build derives an AnalyticsReport from series. ErrNoData when the series
// holds no snapshots.
func Build(series models.HistoricalSeries, opts Options) (*models.AnalyticsReport, error) {
	if len(series.Snapshots) == 0 {
		return nil, ErrNoData
	}

	latest := series.Latest()
	trackable := toSet(opts.TrackableCategories)

	report := &models.AnalyticsReport{
		WindowDays:   series.WindowDays,
		ResolvedDays: len(series.Snapshots),
		Partial:      len(series.Snapshots) < series.WindowDays,
		Current:      currentStats(latest, opts.ImmediateThresholdDays),
		Regions:      regionStats(latest.Records, opts.Regions),
		Trend:        trendPoints(series.Snapshots),
	}
	report.Best, report.Worst = rankings(latest.Records, trackable, opts.RankSize)

	if len(series.Snapshots) >= 2 {
		previous := &series.Snapshots[len(series.Snapshots)-2]
		report.DayOverDay = deltaSection(latest, previous, 1)
	}
	if len(series.Snapshots) >= 7 {
		report.WeekOverWeek = deltaSection(latest, series.Oldest(), opts.WeekMinimumDelta)
	}

	return report, nil
}

// currentStats aggregates the latest day. Unknown-wait records count
// toward TotalLinks but never toward the mean or the immediate count.
func currentStats(snap *models.DaySnapshot, immediateThreshold int) models.CurrentStats {
	stats := models.CurrentStats{
		Date:       snap.DateKey,
		TotalLinks: len(snap.Records),
	}

	sum := 0
	for _, r := range snap.Records {
		if !r.HasKnownWait() {
			continue
		}
		stats.KnownWaitCount++
		sum += r.DaysOut
		if r.DaysOut <= immediateThreshold {
			stats.ImmediateCount++
		}
	}
	if stats.KnownWaitCount > 0 {
		stats.AverageWait = float64(sum) / float64(stats.KnownWaitCount)
	}
	return stats
}

// rankings returns the best (shortest wait) and worst (longest wait)
// entries among trackable categories with a known wait. Stable sorts
// keep ties in sheet order.
func rankings(records []models.AvailabilityRecord, trackable map[string]struct{}, size int) ([]models.RankedEntry, []models.RankedEntry) {
	var eligible []models.RankedEntry
	for _, r := range records {
		if !r.HasKnownWait() {
			continue
		}
		if _, ok := trackable[strings.ToLower(r.Category)]; !ok {
			continue
		}
		eligible = append(eligible, models.RankedEntry{
			Name:     r.Name,
			Category: r.Category,
			Location: r.Location,
			DaysOut:  r.DaysOut,
		})
	}

	best := make([]models.RankedEntry, len(eligible))
	copy(best, eligible)
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].DaysOut < best[j].DaysOut
	})

	worst := make([]models.RankedEntry, len(eligible))
	copy(worst, eligible)
	sort.SliceStable(worst, func(i, j int) bool {
		return worst[i].DaysOut > worst[j].DaysOut
	})

	return truncate(best, size), truncate(worst, size)
}

// regionStats buckets records by keyword lookup against location, then
// name. Every configured region appears in the output even with zero
// matches.
func regionStats(records []models.AvailabilityRecord, regions []Region) []models.RegionStat {
	stats := make([]models.RegionStat, len(regions))
	sums := make([]int, len(regions))
	knowns := make([]int, len(regions))
	for i, region := range regions {
		stats[i].Region = region.Name
	}

	for _, r := range records {
		idx := matchRegion(r, regions)
		if idx < 0 {
			continue
		}
		stats[idx].Count++
		if r.HasKnownWait() {
			knowns[idx]++
			sums[idx] += r.DaysOut
		}
	}

	for i := range stats {
		if knowns[i] > 0 {
			stats[i].AverageWait = float64(sums[i]) / float64(knowns[i])
		}
	}
	return stats
}

// matchRegion returns the index of the first region with a keyword found
// in the record's location or name, or -1.
func matchRegion(r models.AvailabilityRecord, regions []Region) int {
	for i, region := range regions {
		for _, kw := range region.Keywords {
			if strings.Contains(r.Location, kw) || strings.Contains(r.Name, kw) {
				return i
			}
		}
	}
	return -1
}

// deltaSection compares the latest snapshot against a baseline, matching
// records by name. Only pairs where both sides have a known wait
// participate; entries with |change| below minAbs are dropped.
func deltaSection(latest, baseline *models.DaySnapshot, minAbs int) *models.DeltaSection {
	if minAbs < 1 {
		minAbs = 1
	}

	previous := make(map[string]models.AvailabilityRecord, len(baseline.Records))
	for _, r := range baseline.Records {
		if _, dup := previous[r.Name]; !dup {
			previous[r.Name] = r
		}
	}

	section := &models.DeltaSection{BaselineDate: baseline.DateKey}
	for _, cur := range latest.Records {
		prev, ok := previous[cur.Name]
		if !ok || !cur.HasKnownWait() || !prev.HasKnownWait() {
			continue
		}
		change := cur.DaysOut - prev.DaysOut
		if abs(change) < minAbs {
			continue
		}
		entry := models.DeltaEntry{
			Name:     cur.Name,
			Category: cur.Category,
			Current:  cur.DaysOut,
			Previous: prev.DaysOut,
			Change:   change,
		}
		section.Significant = append(section.Significant, entry)
		if change < 0 {
			section.Improved = append(section.Improved, entry)
		} else {
			section.Worsened = append(section.Worsened, entry)
		}
	}

	sort.SliceStable(section.Significant, func(i, j int) bool {
		return abs(section.Significant[i].Change) > abs(section.Significant[j].Change)
	})
	// The separated lists sort by signed change, so the largest drop leads
	// the improved list.
	sort.SliceStable(section.Improved, func(i, j int) bool {
		return section.Improved[i].Change < section.Improved[j].Change
	})
	sort.SliceStable(section.Worsened, func(i, j int) bool {
		return section.Worsened[i].Change < section.Worsened[j].Change
	})

	return section
}

// trendPoints produces one charting point per resolved day, with the mean
// known wait overall and per category.
func trendPoints(snaps []models.DaySnapshot) []models.TrendPoint {
	points := make([]models.TrendPoint, 0, len(snaps))
	for _, snap := range snaps {
		point := models.TrendPoint{
			Date:       snap.DateKey,
			Records:    len(snap.Records),
			ByCategory: make(map[string]float64),
		}

		sum, known := 0, 0
		catSums := make(map[string]int)
		catKnowns := make(map[string]int)
		for _, r := range snap.Records {
			if !r.HasKnownWait() {
				continue
			}
			sum += r.DaysOut
			known++
			catSums[r.Category] += r.DaysOut
			catKnowns[r.Category]++
		}
		if known > 0 {
			point.AverageWait = float64(sum) / float64(known)
		}
		for cat, n := range catKnowns {
			point.ByCategory[cat] = float64(catSums[cat]) / float64(n)
		}

		points = append(points, point)
	}
	return points
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func truncate(entries []models.RankedEntry, size int) []models.RankedEntry {
	if size > 0 && len(entries) > size {
		return entries[:size]
	}
	return entries
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
