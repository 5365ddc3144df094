package series

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"availability-portal/internal/models"
	"availability-portal/internal/probe"
)

// DayResolver resolves one calendar date into a snapshot.
type DayResolver interface {
	ResolveDay(ctx context.Context, date time.Time) (*models.DaySnapshot, error)
}

// Archiver persists resolved snapshots and backfills dates the publisher
// has since removed. Optional; a nil Archiver disables both directions.
type Archiver interface {
	SaveSnapshot(snap *models.DaySnapshot) error
	LoadSnapshot(date time.Time) (*models.DaySnapshot, error)
}

// Assembler builds the trailing historical window. Days are resolved
// independently and concurrently; an unresolved day is omitted from the
// series rather than failing the whole window.
type Assembler struct {
	resolver    DayResolver
	cache       *Cache
	archive     Archiver
	concurrency int
	maxLookback int
}

// NewAssembler creates an Assembler. cache is required; archive may be nil.
func NewAssembler(resolver DayResolver, cache *Cache, archive Archiver, concurrency, maxLookback int) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxLookback < 0 {
		maxLookback = 0
	}
	return &Assembler{
		resolver:    resolver,
		cache:       cache,
		archive:     archive,
		concurrency: concurrency,
		maxLookback: maxLookback,
	}
}

// ResolveDate resolves one date, consulting the cache first, then the live
// probe, then the archive. Both hits and misses are memoized.
func (a *Assembler) ResolveDate(ctx context.Context, date time.Time) (*models.DaySnapshot, error) {
	date = midnightUTC(date)
	key := date.Format(models.DateLayout)

	if snap, found, ok := a.cache.Get(key); ok {
		if found {
			return snap, nil
		}
		return nil, probe.ErrTabNotFound
	}

	snap, err := a.resolver.ResolveDay(ctx, date)
	if err == nil {
		a.cache.Put(key, snap)
		if a.archive != nil {
			if archiveErr := a.archive.SaveSnapshot(snap); archiveErr != nil {
				log.Printf("[Series] Failed to archive %s: %v", key, archiveErr)
			}
		}
		return snap, nil
	}
	if !errors.Is(err, probe.ErrTabNotFound) {
		return nil, err
	}

	// Probe missed. Old tabs get pruned from the workbook, so the archive
	// may still hold the day.
	if a.archive != nil {
		if archived, archiveErr := a.archive.LoadSnapshot(date); archiveErr == nil && archived != nil {
			log.Printf("[Series] Backfilled %s from archive (%d records)", key, len(archived.Records))
			a.cache.Put(key, archived)
			return archived, nil
		}
	}

	a.cache.PutMiss(key)
	return nil, probe.ErrTabNotFound
}

// BuildSeries resolves the trailing windowDays ending at the given
// reference date and returns the resolved snapshots in ascending date
// order. The reference date is a parameter so that callers, not this
// layer, decide what "today" means.
func (a *Assembler) BuildSeries(ctx context.Context, today time.Time, windowDays int) (models.HistoricalSeries, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	today = midnightUTC(today)

	var (
		mu    sync.Mutex
		snaps []models.DaySnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := 0; i < windowDays; i++ {
		date := today.AddDate(0, 0, -i)
		g.Go(func() error {
			snap, err := a.ResolveDate(gctx, date)
			if err != nil {
				// An unresolved day is a gap, and a day that ran out of
				// time is the same gap: the window shrinks, the request
				// still serves whatever resolved.
				if errors.Is(err, probe.ErrTabNotFound) ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
			mu.Lock()
			snaps = append(snaps, *snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.HistoricalSeries{}, err
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Date.Before(snaps[j].Date)
	})

	log.Printf("[Series] Window of %d days resolved %d snapshots", windowDays, len(snaps))
	return models.HistoricalSeries{WindowDays: windowDays, Snapshots: snaps}, nil
}

// LatestAt returns the snapshot for date, walking back day by day when the
// date is unresolved. The publisher sometimes skips a day; a bounded
// walkback keeps "latest" meaningful without reaching into deep history.
func (a *Assembler) LatestAt(ctx context.Context, date time.Time) (*models.DaySnapshot, error) {
	date = midnightUTC(date)
	for i := 0; i <= a.maxLookback; i++ {
		snap, err := a.ResolveDate(ctx, date.AddDate(0, 0, -i))
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, probe.ErrTabNotFound) {
			return nil, err
		}
	}
	return nil, probe.ErrTabNotFound
}

// AvailableDates returns the date keys that resolve within the trailing
// window ending at the reference date, most recent first.
func (a *Assembler) AvailableDates(ctx context.Context, today time.Time, windowDays int) ([]string, error) {
	series, err := a.BuildSeries(ctx, today, windowDays)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(series.Snapshots))
	for i := len(series.Snapshots) - 1; i >= 0; i-- {
		dates = append(dates, series.Snapshots[i].DateKey)
	}
	return dates, nil
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
