package models

import "time"

// ArchivedRecord is one availability record persisted for a resolved day.
// The archive lets the portal backfill window gaps after the publisher
// rotates old tabs out of the workbook.
type ArchivedRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotDate string    `gorm:"type:varchar(10);not null;index:idx_snapshot_date" json:"snapshot_date"`
	Tab          string    `gorm:"type:varchar(100);not null" json:"tab"`
	CapturedAt   time.Time `gorm:"type:datetime;not null" json:"captured_at"`

	Name           string `gorm:"type:varchar(255);not null" json:"name"`
	Category       string `gorm:"type:varchar(50);not null;index" json:"category"`
	Location       string `gorm:"type:varchar(100)" json:"location,omitempty"`
	DaysOut        int    `gorm:"type:int;not null" json:"days_until_available"`
	FirstAvailable string `gorm:"type:varchar(100)" json:"first_available,omitempty"`
	SignupURL      string `gorm:"type:text" json:"signup_url,omitempty"`
	ErrorTag       string `gorm:"type:varchar(100)" json:"error_tag,omitempty"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (ArchivedRecord) TableName() string {
	return "archived_records"
}

// ToRecord converts an archived row back into an in-memory record.
func (a *ArchivedRecord) ToRecord() AvailabilityRecord {
	return AvailabilityRecord{
		Name:           a.Name,
		Category:       a.Category,
		Location:       a.Location,
		DaysOut:        a.DaysOut,
		FirstAvailable: a.FirstAvailable,
		SignupURL:      a.SignupURL,
		CapturedAt:     a.CapturedAt,
		ErrorTag:       a.ErrorTag,
	}
}

// FromSnapshot flattens a day snapshot into archive rows.
func FromSnapshot(snap *DaySnapshot) []ArchivedRecord {
	rows := make([]ArchivedRecord, 0, len(snap.Records))
	for _, r := range snap.Records {
		rows = append(rows, ArchivedRecord{
			SnapshotDate:   snap.DateKey,
			Tab:            snap.Tab,
			CapturedAt:     snap.CapturedAt,
			Name:           r.Name,
			Category:       r.Category,
			Location:       r.Location,
			DaysOut:        r.DaysOut,
			FirstAvailable: r.FirstAvailable,
			SignupURL:      r.SignupURL,
			ErrorTag:       r.ErrorTag,
		})
	}
	return rows
}
