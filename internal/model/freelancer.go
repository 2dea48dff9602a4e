package model

import "time"

// Freelancer is a cross-tenant pool worker. Only approved freelancers may
// apply to public pool shifts. HomeTenantID, when set, is the tenant whose
// context the freelancer's own notifications are delivered in.
type Freelancer struct {
	UID          string    `gorm:"primaryKey" json:"uid"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string    `json:"display_name"`
	Approved     bool      `gorm:"default:false" json:"approved"`
	HomeTenantID *string   `json:"home_tenant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
