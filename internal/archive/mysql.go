package archive

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"availability-portal/internal/config"
	"availability-portal/internal/models"
)

// GormStore is the MySQL backend.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to MySQL and migrates the archive schema.
func NewGormStore(cfg config.MySQLConfig) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.ArchivedRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	return &GormStore{db: db}, nil
}

// SaveSnapshot replaces the stored rows for the snapshot's date. Delete
// plus insert in one transaction keeps a re-resolved day consistent.
func (s *GormStore) SaveSnapshot(snap *models.DaySnapshot) error {
	rows := models.FromSnapshot(snap)
	if len(rows) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_date = ?", snap.DateKey).Delete(&models.ArchivedRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
}

// LoadSnapshot rebuilds the snapshot for a date.
func (s *GormStore) LoadSnapshot(date time.Time) (*models.DaySnapshot, error) {
	var rows []models.ArchivedRecord
	key := date.Format(models.DateLayout)
	if err := s.db.Where("snapshot_date = ?", key).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rebuildSnapshot(date, rows)
}

// Dates lists archived date keys, most recent first.
func (s *GormStore) Dates(limit int) ([]string, error) {
	var dates []string
	q := s.db.Model(&models.ArchivedRecord{}).
		Distinct("snapshot_date").
		Order("snapshot_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("snapshot_date", &dates).Error
	return dates, err
}

// DeleteOlderThan removes rows for dates more than days old.
func (s *GormStore) DeleteOlderThan(days int) (int64, error) {
	result := s.db.Where("snapshot_date < ?", cutoffKey(days)).Delete(&models.ArchivedRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[Archive] Removed %d rows older than %d days", result.RowsAffected, days)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
