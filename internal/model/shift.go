package model

import (
	"time"

	"gorm.io/gorm"
)

// ShiftStatus is the lifecycle state of a shift
type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "draft"
	ShiftStatusPublished ShiftStatus = "published"
	ShiftStatusClosed    ShiftStatus = "closed"
	ShiftStatusCancelled ShiftStatus = "cancelled"
	ShiftStatusCompleted ShiftStatus = "completed"
)

// Valid checks whether the status is one of the known lifecycle states
func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftStatusDraft, ShiftStatusPublished, ShiftStatusClosed,
		ShiftStatusCancelled, ShiftStatusCompleted:
		return true
	}
	return false
}

// Location is where a shift takes place
type Location struct {
	Name    string   `json:"name"`
	Address *string  `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Shift represents a unit of schedulable work within a tenant
type Shift struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	TenantID      string         `gorm:"index;not null" json:"tenant_id"`
	Title         string         `json:"title"`
	Location      Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	StartsAt      time.Time      `gorm:"index" json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	RequiredCount int            `json:"required_count"`
	FilledCount   int            `gorm:"default:0" json:"filled_count"`
	PayRate       *float64       `json:"pay_rate,omitempty"`
	Requirements  []string       `gorm:"serializer:json;type:jsonb" json:"requirements,omitempty"`
	ApplyDeadline *time.Time     `json:"apply_deadline,omitempty"`
	Status        ShiftStatus    `gorm:"index" json:"status"`
	CrewLeaderUID *string        `json:"crew_leader_uid,omitempty"`
	CreatedByUID  string         `json:"created_by_uid"`
	IsPublicPool  bool           `gorm:"default:false" json:"is_public_pool"`
	Version       int64          `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook will be called before creating a new Shift record
func (s *Shift) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = NewID("sft_")
	}
	return nil
}

// HasOpenSlots checks whether the shift can take another confirmed assignee
func (s *Shift) HasOpenSlots() bool {
	return s.FilledCount < s.RequiredCount
}

// DeadlineOver checks whether the application deadline has passed
func (s *Shift) DeadlineOver(now time.Time) bool {
	return s.ApplyDeadline != nil && now.After(*s.ApplyDeadline)
}
