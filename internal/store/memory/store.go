// Package memory implements store.SchedulingStore with in-memory maps.
// Atomic blocks run under the store-wide write lock, so transactions are
// serialized. Intended for tests and single-node development; data is lost
// on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

// Store implements store.SchedulingStore using in-memory storage.
type Store struct {
	mu sync.RWMutex

	tenants     map[string]*model.Tenant        // tenant_id -> Tenant
	members     map[string]*model.TenantMember  // tenant_id + "/" + uid -> TenantMember
	memberSeq   uint
	freelancers map[string]*model.Freelancer       // uid -> Freelancer
	shifts      map[string]*model.Shift            // shift_id -> Shift
	apps        map[string]*model.Application      // application_id -> Application
	assignments map[string]*model.Assignment       // assignment_id -> Assignment
	timeEntries map[string]*model.ShiftTimeEntry   // entry_id -> ShiftTimeEntry
	documents   map[string]*model.ShiftDocument    // document_id -> ShiftDocument
	auditLog    []*model.AuditLogEntry
}

// New creates a new in-memory scheduling store.
func New() *Store {
	return &Store{
		tenants:     make(map[string]*model.Tenant),
		members:     make(map[string]*model.TenantMember),
		freelancers: make(map[string]*model.Freelancer),
		shifts:      make(map[string]*model.Shift),
		apps:        make(map[string]*model.Application),
		assignments: make(map[string]*model.Assignment),
		timeEntries: make(map[string]*model.ShiftTimeEntry),
		documents:   make(map[string]*model.ShiftDocument),
	}
}

func memberKey(tenantID, uid string) string {
	return tenantID + "/" + uid
}

// CreateTenant creates a new tenant.
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == "" {
		tenant.ID = model.NewID("tnt_")
	}
	if _, exists := s.tenants[tenant.ID]; exists {
		return store.ErrDuplicate
	}
	for _, t := range s.tenants {
		if t.Name == tenant.Name {
			return store.ErrDuplicate
		}
	}
	stampCreate(&tenant.CreatedAt, &tenant.UpdatedAt)

	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

// ListTenants returns every tenant, ordered by name.
func (s *Store) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetMember retrieves a tenant member by uid.
func (s *Store) GetMember(ctx context.Context, tenantID, uid string) (*model.TenantMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.members[memberKey(tenantID, uid)]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneMember(m), nil
}

// CreateMember adds a member to a tenant.
func (s *Store) CreateMember(ctx context.Context, member *model.TenantMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(member.TenantID, member.UID)
	if _, exists := s.members[key]; exists {
		return store.ErrDuplicate
	}
	s.memberSeq++
	member.ID = s.memberSeq
	stampCreate(&member.CreatedAt, &member.UpdatedAt)

	s.members[key] = cloneMember(member)
	return nil
}

// ListMembers returns all members of a tenant, ordered by uid.
func (s *Store) ListMembers(ctx context.Context, tenantID string) ([]model.TenantMember, error) {
	return s.listMembers(tenantID, nil)
}

// ListMembersByRoles returns the tenant members holding one of the roles.
func (s *Store) ListMembersByRoles(ctx context.Context, tenantID string, roles []string) ([]model.TenantMember, error) {
	return s.listMembers(tenantID, roles)
}

func (s *Store) listMembers(tenantID string, roles []string) ([]model.TenantMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TenantMember
	for _, m := range s.members {
		if m.TenantID != tenantID {
			continue
		}
		if len(roles) > 0 && !containsString(roles, m.Role) {
			continue
		}
		result = append(result, *cloneMember(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UID < result[j].UID })
	return result, nil
}

// GetFreelancer retrieves a freelancer profile by uid.
func (s *Store) GetFreelancer(ctx context.Context, uid string) (*model.Freelancer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.freelancers[uid]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneFreelancer(f), nil
}

// CreateFreelancer registers a freelancer profile.
func (s *Store) CreateFreelancer(ctx context.Context, freelancer *model.Freelancer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.freelancers[freelancer.UID]; exists {
		return store.ErrDuplicate
	}
	stampCreate(&freelancer.CreatedAt, &freelancer.UpdatedAt)

	s.freelancers[freelancer.UID] = cloneFreelancer(freelancer)
	return nil
}

// ListApprovedFreelancers returns every approved freelancer, ordered by uid.
func (s *Store) ListApprovedFreelancers(ctx context.Context) ([]model.Freelancer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Freelancer
	for _, f := range s.freelancers {
		if !f.Approved {
			continue
		}
		result = append(result, *cloneFreelancer(f))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UID < result[j].UID })
	return result, nil
}

// CreateShift creates a new shift.
func (s *Store) CreateShift(ctx context.Context, shift *model.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.ID == "" {
		shift.ID = model.NewID("sft_")
	}
	if _, exists := s.shifts[shift.ID]; exists {
		return store.ErrDuplicate
	}
	stampCreate(&shift.CreatedAt, &shift.UpdatedAt)

	s.shifts[shift.ID] = cloneShift(shift)
	return nil
}

// GetShift retrieves a shift by id within a tenant.
func (s *Store) GetShift(ctx context.Context, tenantID, id string) (*model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getShiftLocked(tenantID, id)
}

func (s *Store) getShiftLocked(tenantID, id string) (*model.Shift, error) {
	sh, exists := s.shifts[id]
	if !exists || sh.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return cloneShift(sh), nil
}

// ListShifts returns a tenant's shifts matching the filter, ordered by
// start time.
func (s *Store) ListShifts(ctx context.Context, tenantID string, filter store.ShiftFilter) ([]model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Shift
	for _, sh := range s.shifts {
		if sh.TenantID != tenantID {
			continue
		}
		if !filter.Match(sh) {
			continue
		}
		result = append(result, *cloneShift(sh))
	}
	sortShifts(result)
	return result, nil
}

func sortShifts(shifts []model.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].StartsAt.Equal(shifts[j].StartsAt) {
			return shifts[i].ID < shifts[j].ID
		}
		return shifts[i].StartsAt.Before(shifts[j].StartsAt)
	})
}

// CountPendingApplications returns pending application counts per shift id.
func (s *Store) CountPendingApplications(ctx context.Context, tenantID string, shiftIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(shiftIDs))
	for _, id := range shiftIDs {
		wanted[id] = true
	}

	counts := make(map[string]int, len(shiftIDs))
	for _, a := range s.apps {
		if a.TenantID != tenantID || a.Status != model.ApplicationStatusPending {
			continue
		}
		if wanted[a.ShiftID] {
			counts[a.ShiftID]++
		}
	}
	return counts, nil
}

// ListApplicationsByShift returns a shift's applications in submission order.
func (s *Store) ListApplicationsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Application
	for _, a := range s.apps {
		if a.TenantID != tenantID || a.ShiftID != shiftID {
			continue
		}
		result = append(result, *cloneApplication(a))
	}
	sortApplications(result)
	return result, nil
}

// ListApplicationsByUID returns a worker's applications in submission order.
func (s *Store) ListApplicationsByUID(ctx context.Context, tenantID, uid string) ([]model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Application
	for _, a := range s.apps {
		if a.TenantID != tenantID || a.UID != uid {
			continue
		}
		result = append(result, *cloneApplication(a))
	}
	sortApplications(result)
	return result, nil
}

func sortApplications(apps []model.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].ID < apps[j].ID
		}
		return apps[i].CreatedAt.Before(apps[j].CreatedAt)
	})
}

// ListAssignmentsByShift returns a shift's assignments, oldest first.
func (s *Store) ListAssignmentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Assignment
	for _, a := range s.assignments {
		if a.TenantID != tenantID || a.ShiftID != shiftID {
			continue
		}
		result = append(result, *cloneAssignment(a))
	}
	sortAssignments(result)
	return result, nil
}

// ListAssignmentsByUID returns a worker's assignments, oldest first.
func (s *Store) ListAssignmentsByUID(ctx context.Context, tenantID, uid string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Assignment
	for _, a := range s.assignments {
		if a.TenantID != tenantID || a.UID != uid {
			continue
		}
		result = append(result, *cloneAssignment(a))
	}
	sortAssignments(result)
	return result, nil
}

func sortAssignments(assignments []model.Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CreatedAt.Equal(assignments[j].CreatedAt) {
			return assignments[i].ID < assignments[j].ID
		}
		return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
	})
}

// GetTimeEntry retrieves a time entry by id within a tenant.
func (s *Store) GetTimeEntry(ctx context.Context, tenantID, id string) (*model.ShiftTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.timeEntries[id]
	if !exists || e.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return cloneTimeEntry(e), nil
}

// UpdateTimeEntry overwrites a time entry.
func (s *Store) UpdateTimeEntry(ctx context.Context, entry *model.ShiftTimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.timeEntries[entry.ID]
	if !exists || existing.TenantID != entry.TenantID {
		return store.ErrNotFound
	}
	entry.UpdatedAt = time.Now()

	s.timeEntries[entry.ID] = cloneTimeEntry(entry)
	return nil
}

// ListTimeEntriesByShift returns a shift's time entries, oldest first.
func (s *Store) ListTimeEntriesByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ShiftTimeEntry
	for _, e := range s.timeEntries {
		if e.TenantID != tenantID || e.ShiftID != shiftID {
			continue
		}
		result = append(result, *cloneTimeEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CreateDocument stores a document metadata row.
func (s *Store) CreateDocument(ctx context.Context, document *model.ShiftDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if document.ID == "" {
		document.ID = model.NewID("doc_")
	}
	if _, exists := s.documents[document.ID]; exists {
		return store.ErrDuplicate
	}
	stampCreate(&document.CreatedAt, &document.UpdatedAt)

	s.documents[document.ID] = cloneDocument(document)
	return nil
}

// GetDocument retrieves a document by id within a tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID, id string) (*model.ShiftDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.documents[id]
	if !exists || d.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return cloneDocument(d), nil
}

// ListDocumentsByShift returns a shift's documents, oldest first.
func (s *Store) ListDocumentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ShiftDocument
	for _, d := range s.documents {
		if d.TenantID != tenantID || d.ShiftID != shiftID {
			continue
		}
		result = append(result, *cloneDocument(d))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteDocument removes a document metadata row.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.documents[id]
	if !exists || d.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

// AppendAuditEntry appends to the audit log.
func (s *Store) AppendAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = model.NewID("aud_")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	s.auditLog = append(s.auditLog, cloneAuditEntry(entry))
	return nil
}

// ListAuditEntries returns a tenant's audit entries for one entity,
// oldest first.
func (s *Store) ListAuditEntries(ctx context.Context, tenantID, entityID string) ([]model.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.AuditLogEntry
	for _, e := range s.auditLog {
		if e.TenantID != tenantID || e.EntityID != entityID {
			continue
		}
		result = append(result, *cloneAuditEntry(e))
	}
	return result, nil
}

func stampCreate(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = *createdAt
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
