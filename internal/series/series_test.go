package series

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"availability-portal/internal/models"
	"availability-portal/internal/probe"
)

// fakeResolver resolves from a map keyed by date key and counts calls.
type fakeResolver struct {
	mu    sync.Mutex
	snaps map[string]*models.DaySnapshot
	calls map[string]int
}

func newFakeResolver(snaps ...*models.DaySnapshot) *fakeResolver {
	r := &fakeResolver{snaps: make(map[string]*models.DaySnapshot), calls: make(map[string]int)}
	for _, s := range snaps {
		r.snaps[s.DateKey] = s
	}
	return r
}

func (r *fakeResolver) ResolveDay(_ context.Context, date time.Time) (*models.DaySnapshot, error) {
	key := date.Format(models.DateLayout)
	r.mu.Lock()
	r.calls[key]++
	r.mu.Unlock()
	if snap, ok := r.snaps[key]; ok {
		return snap, nil
	}
	return nil, probe.ErrTabNotFound
}

func (r *fakeResolver) callCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

type fakeArchive struct {
	mu    sync.Mutex
	saved map[string]*models.DaySnapshot
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{saved: make(map[string]*models.DaySnapshot)}
}

func (a *fakeArchive) SaveSnapshot(snap *models.DaySnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[snap.DateKey] = snap
	return nil
}

func (a *fakeArchive) LoadSnapshot(date time.Time) (*models.DaySnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if snap, ok := a.saved[date.Format(models.DateLayout)]; ok {
		return snap, nil
	}
	return nil, errors.New("not archived")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapFor(date time.Time) *models.DaySnapshot {
	return models.NewDaySnapshot(date, date.Format("01-02-2006")+" 6:00:01", date, []models.AvailabilityRecord{
		{Name: "Alpha Health", Category: "Health System", DaysOut: 3, CapturedAt: date},
	})
}

func TestResolveDateMemoizesHit(t *testing.T) {
	date := day(2021, 2, 28)
	resolver := newFakeResolver(snapFor(date))
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 2, 3)

	for i := 0; i < 3; i++ {
		snap, err := a.ResolveDate(context.Background(), date)
		if err != nil {
			t.Fatalf("ResolveDate: %v", err)
		}
		if snap.DateKey != "2021-02-28" {
			t.Errorf("DateKey: got %q", snap.DateKey)
		}
	}
	if n := resolver.callCount("2021-02-28"); n != 1 {
		t.Errorf("resolver called %d times, want 1", n)
	}
}

func TestResolveDateMemoizesMiss(t *testing.T) {
	date := day(2021, 2, 28)
	resolver := newFakeResolver()
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 2, 3)

	for i := 0; i < 3; i++ {
		if _, err := a.ResolveDate(context.Background(), date); !errors.Is(err, probe.ErrTabNotFound) {
			t.Fatalf("want ErrTabNotFound, got %v", err)
		}
	}
	if n := resolver.callCount("2021-02-28"); n != 1 {
		t.Errorf("resolver called %d times for a cached miss, want 1", n)
	}
}

func TestResolveDateArchivesHits(t *testing.T) {
	date := day(2021, 2, 28)
	archive := newFakeArchive()
	a := NewAssembler(newFakeResolver(snapFor(date)), NewCache(time.Minute), archive, 2, 3)

	if _, err := a.ResolveDate(context.Background(), date); err != nil {
		t.Fatalf("ResolveDate: %v", err)
	}
	if _, ok := archive.saved["2021-02-28"]; !ok {
		t.Error("resolved snapshot should be archived")
	}
}

func TestResolveDateBackfillsFromArchive(t *testing.T) {
	// Publisher pruned the tab; the archive still has the day.
	date := day(2021, 2, 20)
	archive := newFakeArchive()
	if err := archive.SaveSnapshot(snapFor(date)); err != nil {
		t.Fatal(err)
	}
	a := NewAssembler(newFakeResolver(), NewCache(time.Minute), archive, 2, 3)

	snap, err := a.ResolveDate(context.Background(), date)
	if err != nil {
		t.Fatalf("ResolveDate: %v", err)
	}
	if snap.DateKey != "2021-02-20" {
		t.Errorf("DateKey: got %q", snap.DateKey)
	}
}

func TestBuildSeriesAscendingWithGaps(t *testing.T) {
	today := day(2021, 2, 28)
	resolver := newFakeResolver(
		snapFor(today),
		snapFor(day(2021, 2, 26)),
	)
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 4, 3)

	series, err := a.BuildSeries(context.Background(), today, 5)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if series.WindowDays != 5 {
		t.Errorf("WindowDays: got %d, want 5", series.WindowDays)
	}

	var keys []string
	for _, s := range series.Snapshots {
		keys = append(keys, s.DateKey)
	}
	want := []string{"2021-02-26", "2021-02-28"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("snapshot order mismatch (-want +got):\n%s", diff)
	}
}

// slowResolver resolves its known dates instantly and hangs on every
// other date until the context dies.
type slowResolver struct {
	known *fakeResolver
}

func (r *slowResolver) ResolveDay(ctx context.Context, date time.Time) (*models.DaySnapshot, error) {
	key := date.Format(models.DateLayout)
	if _, ok := r.known.snaps[key]; ok {
		return r.known.ResolveDay(ctx, date)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBuildSeriesPartialOnTimeout(t *testing.T) {
	// The window deadline expiring must shrink the window, not fail it.
	today := day(2021, 2, 28)
	resolver := &slowResolver{known: newFakeResolver(snapFor(today))}
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 4, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	series, err := a.BuildSeries(ctx, today, 3)
	if err != nil {
		t.Fatalf("BuildSeries should return partial results, got %v", err)
	}
	if len(series.Snapshots) != 1 {
		t.Fatalf("snapshots: got %d, want the 1 day that resolved in time", len(series.Snapshots))
	}
	if series.Snapshots[0].DateKey != "2021-02-28" {
		t.Errorf("DateKey: got %q", series.Snapshots[0].DateKey)
	}
}

func TestLatestAtWalksBack(t *testing.T) {
	target := day(2021, 2, 28)
	resolver := newFakeResolver(snapFor(day(2021, 2, 26)))
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 2, 3)

	snap, err := a.LatestAt(context.Background(), target)
	if err != nil {
		t.Fatalf("LatestAt: %v", err)
	}
	if snap.DateKey != "2021-02-26" {
		t.Errorf("DateKey: got %q, want 2021-02-26", snap.DateKey)
	}
}

func TestLatestAtBoundedWalkback(t *testing.T) {
	// The only snapshot is past the walkback horizon.
	resolver := newFakeResolver(snapFor(day(2021, 2, 20)))
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 2, 3)

	_, err := a.LatestAt(context.Background(), day(2021, 2, 28))
	if !errors.Is(err, probe.ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}

func TestAvailableDatesMostRecentFirst(t *testing.T) {
	today := day(2021, 2, 28)
	resolver := newFakeResolver(
		snapFor(today),
		snapFor(day(2021, 2, 27)),
		snapFor(day(2021, 2, 25)),
	)
	a := NewAssembler(resolver, NewCache(time.Minute), nil, 4, 3)

	dates, err := a.AvailableDates(context.Background(), today, 7)
	if err != nil {
		t.Fatalf("AvailableDates: %v", err)
	}
	want := []string{"2021-02-28", "2021-02-27", "2021-02-25"}
	if diff := cmp.Diff(want, dates); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestCachePurgeAndLen(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("2021-02-28", snapFor(day(2021, 2, 28)))
	c.PutMiss("2021-02-27")

	if got := c.Len(); got != 2 {
		t.Errorf("Len: got %d, want 2", got)
	}
	if got := c.Purge(); got != 2 {
		t.Errorf("Purge: got %d, want 2", got)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len after purge: got %d, want 0", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	base := day(2021, 2, 28)
	c.now = func() time.Time { return base }
	c.Put("2021-02-28", snapFor(base))

	if _, _, ok := c.Get("2021-02-28"); !ok {
		t.Fatal("fresh entry should be live")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, _, ok := c.Get("2021-02-28"); ok {
		t.Error("expired entry should be gone")
	}
}
