package model

import (
	"time"

	"gorm.io/gorm"
)

// ApplicationStatus is the lifecycle state of an application
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
)

// Valid checks whether the status is one of the known lifecycle states
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusAccepted,
		ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// Application represents a worker's request to be assigned to a shift
type Application struct {
	ID           string            `gorm:"primaryKey" json:"id"`
	TenantID     string            `gorm:"index;not null;uniqueIndex:uniq_active_application" json:"tenant_id"`
	ShiftID      string            `gorm:"index;uniqueIndex:uniq_active_application" json:"shift_id"`
	UID          string            `gorm:"index;uniqueIndex:uniq_active_application,where:status <> 'withdrawn'" json:"uid"`
	Email        string            `json:"email"`
	Note         *string           `json:"note,omitempty"`
	Status       ApplicationStatus `gorm:"index" json:"status"`
	IsFreelancer bool              `gorm:"default:false" json:"is_freelancer"`
	Version      int64             `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// BeforeCreate hook will be called before creating a new Application record
func (a *Application) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = NewID("app_")
	}
	return nil
}

// IsActive checks whether the application still occupies its per-shift slot
func (a *Application) IsActive() bool {
	return a.Status != ApplicationStatusWithdrawn
}
