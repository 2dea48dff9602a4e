package model

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentStatus is the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentStatusConfirmed AssignmentStatus = "confirmed"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// Assignment represents a confirmed staffing of a worker on a shift.
// Cancelled assignments are kept as history rather than deleted.
type Assignment struct {
	ID          string           `gorm:"primaryKey" json:"id"`
	TenantID    string           `gorm:"index;not null" json:"tenant_id"`
	ShiftID     string           `gorm:"index" json:"shift_id"`
	UID         string           `gorm:"index" json:"uid"`
	Status      AssignmentStatus `gorm:"index" json:"status"`
	Version     int64            `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// BeforeCreate hook will be called before creating a new Assignment record
func (a *Assignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = NewID("asg_")
	}
	return nil
}

// IsConfirmed checks whether the assignment currently occupies a slot
func (a *Assignment) IsConfirmed() bool {
	return a.Status == AssignmentStatusConfirmed
}
