package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"availability-portal/internal/records"
	"availability-portal/internal/sheets"
)

// fakeFetcher serves tabs from a map; anything else is a miss.
type fakeFetcher struct {
	tabs map[string]string
}

func (f *fakeFetcher) FetchTab(_ context.Context, tab string) (string, error) {
	if body, ok := f.tabs[tab]; ok {
		return body, nil
	}
	return "", sheets.ErrTabUnavailable
}

type fakeLister struct {
	tabs []string
	err  error
}

func (l *fakeLister) ListTabs(context.Context) ([]string, error) {
	return l.tabs, l.err
}

const validBody = `Name,Category,Location,Days Until Available,First Available,Signup Link,Error
Alpha Health,Health System,"Seattle, WA",3,2021-03-03,https://vaccinefinder.org/alpha,
Beta Pharmacy,Pharmacy,Portland OR,0,2021-02-28,https://vaccinefinder.org/beta,
`

const aggregateOnlyBody = `Name,Category,Location,Days Until Available,First Available,Signup Link,Error
42 (88.5%),Health System,,,,https://vaccinefinder.org/summary,
`

func newTestMapper() *records.Mapper {
	return records.NewMapper(records.Options{
		Categories:            []string{"Health System", "Pharmacy", "Provider"},
		RequiredLinkSubstring: "vaccinefinder.org",
	})
}

func newTestResolver(fetcher sheets.Fetcher, suffixes []string) *Resolver {
	gen := NewGenerator([]string{"01-02-2006", "2006-01-02"}, suffixes)
	return NewResolver(fetcher, gen, newTestMapper(), 4, 10)
}

func TestCandidatesOrderAndBound(t *testing.T) {
	gen := NewGenerator([]string{"01-02-2006", "2006-01-02"}, []string{"5:00:01", "6:00:01"})
	date := time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)

	got := gen.Candidates(date)
	want := []string{
		"02-28-2021",
		"2021-02-28",
		"02-28-2021 5:00:01",
		"02-28-2021 6:00:01",
		"2021-02-28 5:00:01",
		"2021-02-28 6:00:01",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCaptureTime(t *testing.T) {
	gen := NewGenerator([]string{"01-02-2006", "2006-01-02"}, nil)
	fallback := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

	got := gen.ParseCaptureTime("02-28-2021 5:10:01", fallback)
	want := time.Date(2021, 2, 28, 5, 10, 1, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("timestamped tab: got %v, want %v", got, want)
	}

	got = gen.ParseCaptureTime("2021-02-28", fallback)
	want = time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("bare date tab: got %v, want %v", got, want)
	}

	if got := gen.ParseCaptureTime("Dashboard", fallback); !got.Equal(fallback) {
		t.Errorf("unparseable tab should return fallback, got %v", got)
	}
}

func TestResolveDayFindsTimestampedTab(t *testing.T) {
	fetcher := &fakeFetcher{tabs: map[string]string{
		"02-28-2021 6:00:01": validBody,
	}}
	r := newTestResolver(fetcher, []string{"5:00:01", "6:00:01"})

	snap, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if snap.Tab != "02-28-2021 6:00:01" {
		t.Errorf("Tab: got %q", snap.Tab)
	}
	if snap.DateKey != "2021-02-28" {
		t.Errorf("DateKey: got %q", snap.DateKey)
	}
	if len(snap.Records) != 2 {
		t.Fatalf("records: got %d, want 2", len(snap.Records))
	}
	wantCaptured := time.Date(2021, 2, 28, 6, 0, 1, 0, time.UTC)
	if !snap.CapturedAt.Equal(wantCaptured) {
		t.Errorf("CapturedAt: got %v, want %v", snap.CapturedAt, wantCaptured)
	}
}

func TestResolveDayAllMiss(t *testing.T) {
	fetcher := &fakeFetcher{tabs: map[string]string{}}
	r := newTestResolver(fetcher, []string{"5:00:01"})

	_, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}

func TestResolveDayAggregateOnlyTabIsMiss(t *testing.T) {
	// The tab exists and is data-shaped, but validation strips every row.
	fetcher := &fakeFetcher{tabs: map[string]string{
		"02-28-2021": aggregateOnlyBody,
	}}
	r := newTestResolver(fetcher, nil)

	_, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}

func TestResolveDayHTMLPlaceholderIsMiss(t *testing.T) {
	fetcher := &fakeFetcher{tabs: map[string]string{
		"02-28-2021": "<!DOCTYPE html><html><body>Sorry, unable to open the file.</body></html>",
	}}
	r := newTestResolver(fetcher, nil)

	_, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}

func TestResolveDayTinyBodyIsMiss(t *testing.T) {
	fetcher := &fakeFetcher{tabs: map[string]string{
		"02-28-2021": "x",
	}}
	r := newTestResolver(fetcher, nil)

	_, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}

func TestResolveDayIndexFallback(t *testing.T) {
	// Tab name drifted outside the candidate grid; only the index knows it.
	driftedTab := "Data 02-28-2021 late refresh"
	fetcher := &fakeFetcher{tabs: map[string]string{
		driftedTab: validBody,
	}}
	lister := &fakeLister{tabs: []string{"Dashboard", driftedTab, "03-01-2021 5:00:01"}}

	r := newTestResolver(fetcher, []string{"5:00:01"}).WithTabLister(lister)

	snap, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if snap.Tab != driftedTab {
		t.Errorf("Tab: got %q, want %q", snap.Tab, driftedTab)
	}
}

func TestResolveDayIndexFallbackSkipsUnrelatedTabs(t *testing.T) {
	fetcher := &fakeFetcher{tabs: map[string]string{}}
	lister := &fakeLister{tabs: []string{"Dashboard", "Notes"}}
	r := newTestResolver(fetcher, nil).WithTabLister(lister)

	_, err := r.ResolveDay(context.Background(), time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("want ErrTabNotFound, got %v", err)
	}
}
