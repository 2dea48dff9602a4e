package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles a member can hold within a tenant
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// IsManagerRole checks whether the role carries scheduling privileges
func IsManagerRole(role string) bool {
	return role == RoleAdmin || role == RoleManager
}

// Tenant represents an isolated workspace (a company account)
type Tenant struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description,omitempty"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook will be called before creating a new Tenant record
func (t *Tenant) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = NewID("tnt_")
	}
	return nil
}

// TenantMember links a user to a tenant with a role. Provisioned members
// were created automatically when a freelancer's pool application was
// accepted.
type TenantMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    string    `gorm:"uniqueIndex:idx_member_tenant_uid;not null" json:"tenant_id"`
	UID         string    `gorm:"uniqueIndex:idx_member_tenant_uid;not null" json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `gorm:"default:member" json:"role"`
	Active      bool      `gorm:"default:true" json:"active"`
	Provisioned bool      `gorm:"default:false" json:"provisioned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsManager checks whether the member can manage shifts in the tenant
func (m *TenantMember) IsManager() bool {
	return IsManagerRole(m.Role)
}
