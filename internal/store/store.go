// Package store defines the persistence contract of the scheduling core.
// Two implementations exist: gormstore (PostgreSQL) and memory (tests,
// single-node development). All reads and writes are tenant-scoped except
// the tenant and freelancer directories, which span the whole installation.
package store

import (
	"context"
	"strings"
	"time"

	"shiftpool-service/internal/model"
)

// ShiftFilter narrows tenant shift listings. Zero value means no filtering.
type ShiftFilter struct {
	Statuses   []model.ShiftStatus
	From       *time.Time // shifts starting at or after
	To         *time.Time // shifts starting before
	PublicOnly bool
}

// Match reports whether the shift passes the filter. The gorm store builds
// the equivalent SQL instead; this is for the in-memory paths.
func (f ShiftFilter) Match(sh *model.Shift) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if sh.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PublicOnly && !sh.IsPublicPool {
		return false
	}
	if f.From != nil && sh.StartsAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !sh.StartsAt.Before(*f.To) {
		return false
	}
	return true
}

// PoolFilter narrows public pool listings. Location and Query match
// case-insensitively as substrings.
type PoolFilter struct {
	From     *time.Time
	To       *time.Time
	Location string
	Query    string
}

// Match reports whether the shift passes the filter.
func (f PoolFilter) Match(sh *model.Shift) bool {
	if f.From != nil && sh.StartsAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !sh.StartsAt.Before(*f.To) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(sh.Location.Name), strings.ToLower(f.Location)) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(sh.Title), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// Tx is the view of the store inside an atomic block. Save methods are
// version-checked: they fail with ErrVersionConflict when the row moved
// since the enclosing Atomic read it, which aborts and re-runs the block.
// All operations are scoped to the tenant the Atomic was opened for.
type Tx interface {
	GetShift(id string) (*model.Shift, error)
	SaveShift(shift *model.Shift) error
	DeleteShift(id string) error

	GetApplication(id string) (*model.Application, error)
	SaveApplication(application *model.Application) error
	CreateApplication(application *model.Application) error
	// FindActiveApplication returns the non-withdrawn application of uid on
	// the shift, or nil when there is none.
	FindActiveApplication(shiftID, uid string) (*model.Application, error)
	// FindAcceptedApplication returns uid's accepted application on the
	// shift, or nil when there is none.
	FindAcceptedApplication(shiftID, uid string) (*model.Application, error)
	ListApplicationsByShift(shiftID string) ([]model.Application, error)

	GetAssignment(id string) (*model.Assignment, error)
	SaveAssignment(assignment *model.Assignment) error
	CreateAssignment(assignment *model.Assignment) error
	// FindConfirmedAssignment returns uid's confirmed assignment on the
	// shift, or nil when there is none.
	FindConfirmedAssignment(shiftID, uid string) (*model.Assignment, error)
	ListAssignmentsByShift(shiftID string) ([]model.Assignment, error)
	CountConfirmedAssignments(shiftID string) (int, error)

	CreateTimeEntry(entry *model.ShiftTimeEntry) error
	// FindTimeEntry returns the entry for (shift, uid), or nil when there
	// is none.
	FindTimeEntry(shiftID, uid string) (*model.ShiftTimeEntry, error)
}

// SchedulingStore is the full persistence surface. Get methods return
// ErrNotFound for missing rows. Every state mutation of shifts,
// applications and assignments goes through Atomic; plain methods cover
// creation, lookups and the secondary records.
type SchedulingStore interface {
	// Atomic runs fn in a transaction scoped to one tenant. When fn fails
	// with ErrVersionConflict the transaction is rolled back and fn is
	// re-run from scratch, a bounded number of times; exhaustion surfaces
	// as ErrConflict. Any other error aborts immediately and is returned
	// as-is. Side effects must be deferred until Atomic returns nil.
	Atomic(ctx context.Context, tenantID string, fn func(tx Tx) error) error

	// Tenants
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	ListTenants(ctx context.Context) ([]model.Tenant, error)

	// Members
	GetMember(ctx context.Context, tenantID, uid string) (*model.TenantMember, error)
	CreateMember(ctx context.Context, member *model.TenantMember) error
	ListMembers(ctx context.Context, tenantID string) ([]model.TenantMember, error)
	ListMembersByRoles(ctx context.Context, tenantID string, roles []string) ([]model.TenantMember, error)

	// Freelancers
	GetFreelancer(ctx context.Context, uid string) (*model.Freelancer, error)
	CreateFreelancer(ctx context.Context, freelancer *model.Freelancer) error
	ListApprovedFreelancers(ctx context.Context) ([]model.Freelancer, error)

	// Shifts
	CreateShift(ctx context.Context, shift *model.Shift) error
	GetShift(ctx context.Context, tenantID, id string) (*model.Shift, error)
	ListShifts(ctx context.Context, tenantID string, filter ShiftFilter) ([]model.Shift, error)
	CountPendingApplications(ctx context.Context, tenantID string, shiftIDs []string) (map[string]int, error)

	// Applications
	ListApplicationsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Application, error)
	ListApplicationsByUID(ctx context.Context, tenantID, uid string) ([]model.Application, error)

	// Assignments
	ListAssignmentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.Assignment, error)
	ListAssignmentsByUID(ctx context.Context, tenantID, uid string) ([]model.Assignment, error)

	// Time entries
	GetTimeEntry(ctx context.Context, tenantID, id string) (*model.ShiftTimeEntry, error)
	UpdateTimeEntry(ctx context.Context, entry *model.ShiftTimeEntry) error
	ListTimeEntriesByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftTimeEntry, error)

	// Documents
	CreateDocument(ctx context.Context, document *model.ShiftDocument) error
	GetDocument(ctx context.Context, tenantID, id string) (*model.ShiftDocument, error)
	ListDocumentsByShift(ctx context.Context, tenantID, shiftID string) ([]model.ShiftDocument, error)
	DeleteDocument(ctx context.Context, tenantID, id string) error

	// Audit
	AppendAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error
	ListAuditEntries(ctx context.Context, tenantID, entityID string) ([]model.AuditLogEntry, error)
}
