package archive

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"availability-portal/internal/config"
	"availability-portal/internal/models"
)

// PQStore is the PostgreSQL backend.
type PQStore struct {
	conn *sql.DB
}

// NewPQStore connects to PostgreSQL and creates the archive schema.
func NewPQStore(cfg config.PostgresConfig) (*PQStore, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	store := &PQStore{conn: conn}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init archive schema: %w", err)
	}
	return store, nil
}

func (s *PQStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS archived_records (
		id SERIAL PRIMARY KEY,
		snapshot_date VARCHAR(10) NOT NULL,
		tab VARCHAR(100) NOT NULL,
		captured_at TIMESTAMP NOT NULL,

		name VARCHAR(255) NOT NULL,
		category VARCHAR(50) NOT NULL,
		location VARCHAR(100),
		days_out INTEGER NOT NULL,
		first_available VARCHAR(100),
		signup_url TEXT,
		error_tag VARCHAR(100),

		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_archived_records_snapshot_date ON archived_records(snapshot_date);
	CREATE INDEX IF NOT EXISTS idx_archived_records_category ON archived_records(category);
	`
	_, err := s.conn.Exec(query)
	return err
}

// SaveSnapshot replaces the stored rows for the snapshot's date.
func (s *PQStore) SaveSnapshot(snap *models.DaySnapshot) error {
	rows := models.FromSnapshot(snap)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM archived_records WHERE snapshot_date = $1`, snap.DateKey); err != nil {
		return err
	}

	insert := `
	INSERT INTO archived_records (
		snapshot_date, tab, captured_at,
		name, category, location, days_out, first_available, signup_url, error_tag,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	for _, r := range rows {
		if _, err := tx.Exec(insert,
			r.SnapshotDate, r.Tab, r.CapturedAt,
			r.Name, r.Category, r.Location, r.DaysOut, r.FirstAvailable, r.SignupURL, r.ErrorTag,
			now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot rebuilds the snapshot for a date.
func (s *PQStore) LoadSnapshot(date time.Time) (*models.DaySnapshot, error) {
	query := `
		SELECT snapshot_date, tab, captured_at,
			   name, category, location, days_out, first_available, signup_url, error_tag
		FROM archived_records
		WHERE snapshot_date = $1
		ORDER BY id ASC
	`
	rows, err := s.conn.Query(query, date.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archived []models.ArchivedRecord
	for rows.Next() {
		var r models.ArchivedRecord
		if err := rows.Scan(
			&r.SnapshotDate, &r.Tab, &r.CapturedAt,
			&r.Name, &r.Category, &r.Location, &r.DaysOut, &r.FirstAvailable, &r.SignupURL, &r.ErrorTag,
		); err != nil {
			return nil, err
		}
		archived = append(archived, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rebuildSnapshot(date, archived)
}

// Dates lists archived date keys, most recent first.
func (s *PQStore) Dates(limit int) ([]string, error) {
	query := `SELECT DISTINCT snapshot_date FROM archived_records ORDER BY snapshot_date DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DeleteOlderThan removes rows for dates more than days old.
func (s *PQStore) DeleteOlderThan(days int) (int64, error) {
	result, err := s.conn.Exec(`DELETE FROM archived_records WHERE snapshot_date < $1`, cutoffKey(days))
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("[Archive] Removed %d rows older than %d days", removed, days)
	}
	return removed, nil
}

func (s *PQStore) Close() error {
	return s.conn.Close()
}
