// Package gormstore implements store.SchedulingStore on PostgreSQL via
// GORM. Writes inside Atomic use optimistic version checks instead of row
// locks; conflicting transactions are rolled back and re-run.
package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

// Store implements store.SchedulingStore using a gorm database handle.
type Store struct {
	db         *gorm.DB
	maxRetries int
}

// New creates a gorm-backed scheduling store. maxRetries bounds how often
// an Atomic block is re-run on version conflicts.
func New(db *gorm.DB, maxRetries int) *Store {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Store{db: db, maxRetries: maxRetries}
}

// Models returns every model the store persists, for migration.
func Models() []interface{} {
	return []interface{}{
		&model.Tenant{},
		&model.TenantMember{},
		&model.Freelancer{},
		&model.Shift{},
		&model.Application{},
		&model.Assignment{},
		&model.ShiftTimeEntry{},
		&model.ShiftDocument{},
		&model.AuditLogEntry{},
	}
}

func translateErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

// CreateTenant creates a new tenant.
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	return translateErr(s.db.WithContext(ctx).Create(tenant).Error)
}

// ListTenants returns every tenant, ordered by name.
func (s *Store) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := s.db.WithContext(ctx).Order("name asc").Find(&tenants).Error
	return tenants, err
}

// GetMember retrieves a tenant member by uid.
func (s *Store) GetMember(ctx context.Context, tenantID, uid string) (*model.TenantMember, error) {
	var member model.TenantMember
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND uid = ?", tenantID, uid).
		First(&member).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &member, nil
}

// CreateMember adds a member to a tenant.
func (s *Store) CreateMember(ctx context.Context, member *model.TenantMember) error {
	return translateErr(s.db.WithContext(ctx).Create(member).Error)
}

// ListMembers returns all members of a tenant, ordered by uid.
func (s *Store) ListMembers(ctx context.Context, tenantID string) ([]model.TenantMember, error) {
	var members []model.TenantMember
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("uid asc").
		Find(&members).Error
	return members, err
}

// ListMembersByRoles returns the tenant members holding one of the roles.
func (s *Store) ListMembersByRoles(ctx context.Context, tenantID string, roles []string) ([]model.TenantMember, error) {
	var members []model.TenantMember
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND role IN ?", tenantID, roles).
		Order("uid asc").
		Find(&members).Error
	return members, err
}

// GetFreelancer retrieves a freelancer profile by uid.
func (s *Store) GetFreelancer(ctx context.Context, uid string) (*model.Freelancer, error) {
	var freelancer model.Freelancer
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&freelancer).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &freelancer, nil
}

// CreateFreelancer registers a freelancer profile.
func (s *Store) CreateFreelancer(ctx context.Context, freelancer *model.Freelancer) error {
	return translateErr(s.db.WithContext(ctx).Create(freelancer).Error)
}

// ListApprovedFreelancers returns every approved freelancer, ordered by uid.
func (s *Store) ListApprovedFreelancers(ctx context.Context) ([]model.Freelancer, error) {
	var freelancers []model.Freelancer
	err := s.db.WithContext(ctx).
		Where("approved = ?", true).
		Order("uid asc").
		Find(&freelancers).Error
	return freelancers, err
}

// CreateShift creates a new shift.
func (s *Store) CreateShift(ctx context.Context, shift *model.Shift) error {
	return translateErr(s.db.WithContext(ctx).Create(shift).Error)
}

// GetShift retrieves a shift by id within a tenant.
func (s *Store) GetShift(ctx context.Context, tenantID, id string) (*model.Shift, error) {
	var shift model.Shift
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&shift).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &shift, nil
}

// ListShifts returns a tenant's shifts matching the filter, ordered by
// start time.
func (s *Store) ListShifts(ctx context.Context, tenantID string, filter store.ShiftFilter) ([]model.Shift, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.PublicOnly {
		q = q.Where("is_public_pool = ?", true)
	}
	if filter.From != nil {
		q = q.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("starts_at < ?", *filter.To)
	}

	var shifts []model.Shift
	err := q.Order("starts_at asc, id asc").Find(&shifts).Error
	return shifts, err
}

// CountPendingApplications returns pending application counts per shift id.
func (s *Store) CountPendingApplications(ctx context.Context, tenantID string, shiftIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(shiftIDs))
	if len(shiftIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ShiftID string
		Total   int
	}
	err := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("shift_id, count(*) as total").
		Where("tenant_id = ? AND status = ? AND shift_id IN ?", tenantID, model.ApplicationStatusPending, shiftIDs).
		Group("shift_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ShiftID] = r.Total
	}
	return counts, nil
}

// ListApplicationsByShift returns a shift's applications in submission order.
func (s *Store) ListApplicationsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&apps).Error
	return apps, err
}

// ListApplicationsByUID returns a worker's applications in submission order.
func (s *Store) ListApplicationsByUID(ctx context.Context, tenantID, uid string) ([]model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND uid = ?", tenantID, uid).
		Order("created_at asc, id asc").
		Find(&apps).Error
	return apps, err
}

// ListAssignmentsByShift returns a shift's assignments, oldest first.
func (s *Store) ListAssignmentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&assignments).Error
	return assignments, err
}

// ListAssignmentsByUID returns a worker's assignments, oldest first.
func (s *Store) ListAssignmentsByUID(ctx context.Context, tenantID, uid string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND uid = ?", tenantID, uid).
		Order("created_at asc, id asc").
		Find(&assignments).Error
	return assignments, err
}

// GetTimeEntry retrieves a time entry by id within a tenant.
func (s *Store) GetTimeEntry(ctx context.Context, tenantID, id string) (*model.ShiftTimeEntry, error) {
	var entry model.ShiftTimeEntry
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&entry).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &entry, nil
}

// UpdateTimeEntry overwrites a time entry.
func (s *Store) UpdateTimeEntry(ctx context.Context, entry *model.ShiftTimeEntry) error {
	res := s.db.WithContext(ctx).
		Model(&model.ShiftTimeEntry{}).
		Where("id = ? AND tenant_id = ?", entry.ID, entry.TenantID).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(entry)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTimeEntriesByShift returns a shift's time entries, oldest first.
func (s *Store) ListTimeEntriesByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftTimeEntry, error) {
	var entries []model.ShiftTimeEntry
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}

// CreateDocument stores a document metadata row.
func (s *Store) CreateDocument(ctx context.Context, document *model.ShiftDocument) error {
	return translateErr(s.db.WithContext(ctx).Create(document).Error)
}

// GetDocument retrieves a document by id within a tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID, id string) (*model.ShiftDocument, error) {
	var document model.ShiftDocument
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&document).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &document, nil
}

// ListDocumentsByShift returns a shift's documents, oldest first.
func (s *Store) ListDocumentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftDocument, error) {
	var documents []model.ShiftDocument
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND shift_id = ?", tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&documents).Error
	return documents, err
}

// DeleteDocument removes a document metadata row.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&model.ShiftDocument{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendAuditEntry appends to the audit log.
func (s *Store) AppendAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	return translateErr(s.db.WithContext(ctx).Create(entry).Error)
}

// ListAuditEntries returns a tenant's audit entries for one entity,
// oldest first.
func (s *Store) ListAuditEntries(ctx context.Context, tenantID, entityID string) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}
