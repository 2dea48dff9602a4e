package model

import (
	"time"

	"gorm.io/gorm"
)

// ShiftDocument is a file attached to a shift (briefings, floor plans,
// signed paperwork). The binary itself lives in the document store under
// StoragePath; this record is the metadata row.
type ShiftDocument struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	TenantID      string         `gorm:"index;not null" json:"tenant_id"`
	ShiftID       string         `gorm:"index" json:"shift_id"`
	FileName      string         `json:"file_name"`
	ContentType   string         `json:"content_type"`
	SizeBytes     int64          `json:"size_bytes"`
	StoragePath   string         `json:"-"`
	UploadedByUID string         `json:"uploaded_by_uid"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook will be called before creating a new ShiftDocument record
func (d *ShiftDocument) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = NewID("doc_")
	}
	return nil
}
