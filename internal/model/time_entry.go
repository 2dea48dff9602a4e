package model

import (
	"time"

	"gorm.io/gorm"
)

// ShiftTimeEntry records the hours a worker actually spent on a shift.
// At most one entry exists per (shift, uid).
type ShiftTimeEntry struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	TenantID        string    `gorm:"index;not null" json:"tenant_id"`
	ShiftID         string    `gorm:"uniqueIndex:uniq_shift_time_entry" json:"shift_id"`
	UID             string    `gorm:"uniqueIndex:uniq_shift_time_entry" json:"uid"`
	ClockIn         time.Time `json:"clock_in"`
	ClockOut        time.Time `json:"clock_out"`
	DurationMinutes int       `json:"duration_minutes"`
	EnteredByUID    string    `json:"entered_by_uid"`
	Note            *string   `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook will be called before creating a new ShiftTimeEntry record
func (e *ShiftTimeEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = NewID("tme_")
	}
	return nil
}

// ComputeDurationMinutes returns the whole minutes between clock-in and clock-out
func ComputeDurationMinutes(clockIn, clockOut time.Time) int {
	return int(clockOut.Sub(clockIn) / time.Minute)
}
