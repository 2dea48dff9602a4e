package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditLogEntry is an append-only record of a scheduling event. Entries are
// never updated or deleted.
type AuditLogEntry struct {
	ID         string            `gorm:"primaryKey" json:"id"`
	TenantID   string            `gorm:"index;not null" json:"tenant_id"`
	ActorUID   string            `json:"actor_uid"`
	Action     string            `gorm:"index" json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `gorm:"index" json:"entity_id"`
	Details    map[string]string `gorm:"serializer:json;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// BeforeCreate hook will be called before creating a new AuditLogEntry record
func (e *AuditLogEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = NewID("aud_")
	}
	return nil
}
