// Package archive persists resolved day snapshots. The publisher rotates
// old tabs out of the workbook, so without the archive the historical
// window silently shrinks to whatever is still published.
package archive

import (
	"errors"
	"fmt"
	"time"

	"availability-portal/internal/config"
	"availability-portal/internal/models"
)

// ErrNotArchived means no rows are stored for the requested date.
var ErrNotArchived = errors.New("date not archived")

// Store is the persistence contract shared by both backends.
type Store interface {
	// SaveSnapshot replaces the stored rows for the snapshot's date.
	SaveSnapshot(snap *models.DaySnapshot) error
	// LoadSnapshot rebuilds the snapshot for a date, ErrNotArchived when absent.
	LoadSnapshot(date time.Time) (*models.DaySnapshot, error)
	// Dates lists archived date keys, most recent first.
	Dates(limit int) ([]string, error)
	// DeleteOlderThan removes rows for dates more than days old and
	// returns the number of rows removed.
	DeleteOlderThan(days int) (int64, error)
	Close() error
}

// New creates the configured Store backend.
func New(cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Type {
	case "mysql":
		return NewGormStore(cfg.MySQL)
	case "postgres":
		return NewPQStore(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

// rebuildSnapshot assembles a DaySnapshot from archived rows. Tab and
// capture time come from the first row; every row of one date shares them.
func rebuildSnapshot(date time.Time, rows []models.ArchivedRecord) (*models.DaySnapshot, error) {
	if len(rows) == 0 {
		return nil, ErrNotArchived
	}
	records := make([]models.AvailabilityRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToRecord())
	}
	return models.NewDaySnapshot(date, rows[0].Tab, rows[0].CapturedAt, records), nil
}

func cutoffKey(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(models.DateLayout)
}
