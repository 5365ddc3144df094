package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"availability-portal/internal/config"
	"availability-portal/internal/models"
)

func TestRebuildSnapshotRoundTrip(t *testing.T) {
	date := time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)
	captured := time.Date(2021, 2, 28, 6, 0, 1, 0, time.UTC)
	snap := models.NewDaySnapshot(date, "02-28-2021 6:00:01", captured, []models.AvailabilityRecord{
		{Name: "Alpha Health", Category: "Health System", Location: "Seattle, WA", DaysOut: 3, CapturedAt: captured},
		{Name: "Beta Pharmacy", Category: "Pharmacy", DaysOut: models.UnknownWait, CapturedAt: captured, ErrorTag: "timeout"},
	})

	rebuilt, err := rebuildSnapshot(date, models.FromSnapshot(snap))
	if err != nil {
		t.Fatalf("rebuildSnapshot: %v", err)
	}
	if diff := cmp.Diff(snap, rebuilt); diff != "" {
		t.Errorf("round trip mismatch (-orig +rebuilt):\n%s", diff)
	}
}

func TestRebuildSnapshotEmpty(t *testing.T) {
	_, err := rebuildSnapshot(time.Now(), nil)
	if !errors.Is(err, ErrNotArchived) {
		t.Fatalf("want ErrNotArchived, got %v", err)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New(config.ArchiveConfig{Type: "sqlite"}); err == nil {
		t.Fatal("unknown backend type should error")
	}
}
