package probe

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"availability-portal/internal/models"
	"availability-portal/internal/records"
	"availability-portal/internal/sheetcsv"
	"availability-portal/internal/sheets"
)

// ErrTabNotFound means every candidate (and the index fallback, when
// configured) missed for the requested date. The date is simply absent
// from the published workbook.
var ErrTabNotFound = errors.New("no tab found for date")

// errFound aborts remaining probes once any candidate hits.
var errFound = errors.New("tab found")

// TabLister lists the real tab names from the publisher's index page.
type TabLister interface {
	ListTabs(ctx context.Context) ([]string, error)
}

// Resolver turns a calendar date into a validated day snapshot by probing
// candidate tab names concurrently. First hit wins; a hit is only a hit
// when the body parses into at least one valid record, so error pages and
// aggregate-only tabs count as misses.
type Resolver struct {
	fetcher      sheets.Fetcher
	lister       TabLister
	gen          *Generator
	mapper       *records.Mapper
	concurrency  int
	minBodyBytes int
	now          func() time.Time
}

// NewResolver creates a Resolver over the given fetcher.
func NewResolver(fetcher sheets.Fetcher, gen *Generator, mapper *records.Mapper, concurrency, minBodyBytes int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		fetcher:      fetcher,
		gen:          gen,
		mapper:       mapper,
		concurrency:  concurrency,
		minBodyBytes: minBodyBytes,
		now:          time.Now,
	}
}

// WithTabLister enables the index-page fallback for dates whose tab name
// drifts outside the candidate grid.
func (r *Resolver) WithTabLister(lister TabLister) *Resolver {
	r.lister = lister
	return r
}

// ResolveDay probes candidates for date and returns the first snapshot
// that yields valid records. ErrTabNotFound when everything misses.
func (r *Resolver) ResolveDay(ctx context.Context, date time.Time) (*models.DaySnapshot, error) {
	candidates := r.gen.Candidates(date)

	var (
		mu    sync.Mutex
		found *models.DaySnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, tab := range candidates {
		tab := tab
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			snap := r.probeOne(gctx, date, tab)
			if snap == nil {
				return nil
			}
			mu.Lock()
			if found == nil {
				found = snap
			}
			mu.Unlock()
			return errFound
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errFound) {
		return nil, err
	}

	if found != nil {
		log.Printf("[Probe] Resolved %s via tab %q (%d records)",
			date.Format(models.DateLayout), found.Tab, len(found.Records))
		return found, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if r.lister != nil {
		if snap := r.resolveViaIndex(ctx, date, candidates); snap != nil {
			return snap, nil
		}
	}

	log.Printf("[Probe] No tab found for %s after %d candidates",
		date.Format(models.DateLayout), len(candidates))
	return nil, ErrTabNotFound
}

// resolveViaIndex scrapes the workbook index for tab names containing the
// date and probes any not already tried.
func (r *Resolver) resolveViaIndex(ctx context.Context, date time.Time, tried []string) *models.DaySnapshot {
	tabs, err := r.lister.ListTabs(ctx)
	if err != nil {
		log.Printf("[Probe] Index fallback failed for %s: %v", date.Format(models.DateLayout), err)
		return nil
	}

	probed := make(map[string]struct{}, len(tried))
	for _, t := range tried {
		probed[t] = struct{}{}
	}
	dateStrings := r.gen.DateStrings(date)

	for _, tab := range tabs {
		if _, done := probed[tab]; done {
			continue
		}
		matches := false
		for _, ds := range dateStrings {
			if strings.Contains(tab, ds) {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}
		if snap := r.probeOne(ctx, date, tab); snap != nil {
			log.Printf("[Probe] Resolved %s via index tab %q (%d records)",
				date.Format(models.DateLayout), tab, len(snap.Records))
			return snap
		}
	}
	return nil
}

// probeOne fetches one candidate tab and validates the body. Any failure
// is a miss, returning nil.
func (r *Resolver) probeOne(ctx context.Context, date time.Time, tab string) *models.DaySnapshot {
	body, err := r.fetcher.FetchTab(ctx, tab)
	if err != nil {
		return nil
	}
	if len(strings.TrimSpace(body)) < r.minBodyBytes {
		return nil
	}
	if sheets.LooksLikeErrorPage(body) {
		return nil
	}

	rows := sheetcsv.Parse(body)
	capturedAt := r.gen.ParseCaptureTime(tab, r.now())
	recs := r.mapper.MapRows(rows, capturedAt)
	if len(recs) == 0 {
		// Data-shaped response with zero usable rows. Aggregate-only or
		// header-only tabs land here; the candidate counts as a miss.
		return nil
	}

	return models.NewDaySnapshot(date, tab, capturedAt, recs)
}
