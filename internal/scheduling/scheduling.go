// Package scheduling implements the shift pool lifecycle: shift state
// transitions, applications, capacity-bounded assignments, the cross-tenant
// public pool, and the secondary time entry and document records. All
// mutations of shift, application and assignment state run through the
// store's Atomic primitive; audit entries and notifications are buffered in
// an outbox and dispatched only after the transaction committed.
package scheduling

import (
	"context"
	"errors"
	"time"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/prometheus"
)

// Notifier delivers messages to users. Delivery is best-effort: errors are
// logged by the outbox and never fail the operation that queued them.
type Notifier interface {
	NotifyOne(ctx context.Context, tenantID, recipientUID, message string) error
	NotifyMany(ctx context.Context, tenantID string, recipientUIDs []string, message string) error
}

// AuditSink records state-changing actions. Append failures are logged and
// never fail the operation that queued them.
type AuditSink interface {
	Append(ctx context.Context, tenantID, actorUID, action, entityType, entityID string, details map[string]string) error
}

// MemberDirectory resolves tenant membership. The scheduling store
// satisfies it; tests may substitute fakes.
type MemberDirectory interface {
	GetMember(ctx context.Context, tenantID, uid string) (*model.TenantMember, error)
	CreateMember(ctx context.Context, member *model.TenantMember) error
	ListMembers(ctx context.Context, tenantID string) ([]model.TenantMember, error)
	ListMembersByRoles(ctx context.Context, tenantID string, roles []string) ([]model.TenantMember, error)
}

// FreelancerDirectory resolves cross-tenant pool workers.
type FreelancerDirectory interface {
	GetFreelancer(ctx context.Context, uid string) (*model.Freelancer, error)
	ListApprovedFreelancers(ctx context.Context) ([]model.Freelancer, error)
}

// PublicShiftIndex answers public pool queries. The scan implementation
// walks every tenant on each read; the redis implementation is a
// write-through cache maintained by the shift lifecycle. Index maintenance
// is best-effort and must never fail the primary operation.
type PublicShiftIndex interface {
	ListPublic(ctx context.Context, filter store.PoolFilter) ([]model.PublicShift, error)
	FindPublic(ctx context.Context, shiftID string) (*model.PublicShift, error)
	Upsert(ctx context.Context, shift *model.PublicShift) error
	Remove(ctx context.Context, shiftID string) error
}

// DocumentStore holds shift document binaries.
type DocumentStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	SignedURL(path string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
}

// Actor identifies who performs an operation, taken from the verified
// request claims.
type Actor struct {
	UID        string
	Email      string
	TenantID   string
	TenantName string
	Role       string
	Freelancer bool
}

// IsManager checks whether the actor may manage shifts in their tenant
func (a Actor) IsManager() bool {
	return model.IsManagerRole(a.Role)
}

// Config carries the collaborators the scheduling services are built from.
// Members and Freelancers default to Store when nil.
type Config struct {
	Store       store.SchedulingStore
	Members     MemberDirectory
	Freelancers FreelancerDirectory
	Audit       AuditSink
	Notifier    Notifier
	PoolIndex   PublicShiftIndex
	Documents   DocumentStore

	// MaxUploadBytes bounds document uploads; zero means 20 MiB.
	MaxUploadBytes int64
	// DocumentURLTTL is the lifetime of signed download URLs; zero means 15m.
	DocumentURLTTL time.Duration
	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

const (
	defaultMaxUploadBytes = 20 << 20
	defaultDocumentURLTTL = 15 * time.Minute
)

// core is the dependency set shared by every service.
type core struct {
	store       store.SchedulingStore
	members     MemberDirectory
	freelancers FreelancerDirectory
	audit       AuditSink
	notify      Notifier
	index       PublicShiftIndex
	docs        DocumentStore

	maxUploadBytes int64
	docURLTTL      time.Duration
	now            func() time.Time
}

// Services bundles the lifecycle managers behind one constructor.
type Services struct {
	Shifts       *ShiftService
	Applications *ApplicationService
	Assignments  *AssignmentService
	Pool         *PoolService
	TimeEntries  *TimeEntryService
	Documents    *DocumentService
}

// New wires the scheduling services.
func New(cfg Config) *Services {
	c := &core{
		store:          cfg.Store,
		members:        cfg.Members,
		freelancers:    cfg.Freelancers,
		audit:          cfg.Audit,
		notify:         cfg.Notifier,
		index:          cfg.PoolIndex,
		docs:           cfg.Documents,
		maxUploadBytes: cfg.MaxUploadBytes,
		docURLTTL:      cfg.DocumentURLTTL,
		now:            cfg.Now,
	}
	if c.members == nil {
		c.members = cfg.Store
	}
	if c.freelancers == nil {
		c.freelancers = cfg.Store
	}
	if c.maxUploadBytes <= 0 {
		c.maxUploadBytes = defaultMaxUploadBytes
	}
	if c.docURLTTL <= 0 {
		c.docURLTTL = defaultDocumentURLTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return &Services{
		Shifts:       &ShiftService{core: c},
		Applications: &ApplicationService{core: c},
		Assignments:  &AssignmentService{core: c},
		Pool:         &PoolService{core: c},
		TimeEntries:  &TimeEntryService{core: c},
		Documents:    &DocumentService{core: c},
	}
}

// atomic runs fn through the store and translates exhausted retries into
// the caller-visible conflict error.
func (c *core) atomic(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	err := c.store.Atomic(ctx, tenantID, fn)
	if errors.Is(err, store.ErrConflict) {
		prometheus.RecordTxConflict()
		return apperr.Conflict("conflict", "operation could not complete, please retry")
	}
	return err
}

// notFoundErr maps the store's not-found sentinel onto a business error
// and passes everything else through.
func notFoundErr(err error, code, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(code, message)
	}
	return err
}

// shiftLabel names a shift in notification messages. Falls back to the id
// when the shift row is gone.
func shiftLabel(tx store.Tx, shiftID string) string {
	if sh, err := tx.GetShift(shiftID); err == nil {
		return sh.Title
	}
	return shiftID
}
