package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shiftpool-service/internal/audit"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/internal/store/memory"
)

// The arena clock starts here; tests advance it to cross shift windows.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

const (
	testTenant     = "tnt_acme"
	testTenantName = "Acme Crewing"
)

// deliveredNotice is one captured notification dispatch.
type deliveredNotice struct {
	TenantID   string
	Recipients []string
	Message    string
}

// fakeNotifier captures dispatches instead of delivering them.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []deliveredNotice
	fail bool
}

func (f *fakeNotifier) NotifyOne(ctx context.Context, tenantID, recipientUID, message string) error {
	return f.NotifyMany(ctx, tenantID, []string{recipientUID}, message)
}

func (f *fakeNotifier) NotifyMany(ctx context.Context, tenantID string, recipientUIDs []string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("notifier down")
	}
	f.sent = append(f.sent, deliveredNotice{TenantID: tenantID, Recipients: recipientUIDs, Message: message})
	return nil
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *fakeNotifier) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeNotifier) all() []deliveredNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deliveredNotice(nil), f.sent...)
}

// find returns the notices whose message contains substr.
func (f *fakeNotifier) find(substr string) []deliveredNotice {
	var result []deliveredNotice
	for _, n := range f.all() {
		if strings.Contains(n.Message, substr) {
			result = append(result, n)
		}
	}
	return result
}

// recordingAudit captures action names while persisting entries the way
// production does.
type recordingAudit struct {
	next *audit.StoreSink

	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) Append(ctx context.Context, tenantID, actorUID, action, entityType, entityID string, details map[string]string) error {
	r.mu.Lock()
	r.actions = append(r.actions, action)
	r.mu.Unlock()
	return r.next.Append(ctx, tenantID, actorUID, action, entityType, entityID, details)
}

func (r *recordingAudit) countAction(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.actions {
		if a == action {
			count++
		}
	}
	return count
}

func (r *recordingAudit) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}

// fakeIndex is an in-memory write-through pool index, maintained by the
// shift lifecycle the same way the redis index is.
type fakeIndex struct {
	mu      sync.Mutex
	entries map[string]model.PublicShift
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]model.PublicShift)}
}

func (f *fakeIndex) ListPublic(ctx context.Context, filter store.PoolFilter) ([]model.PublicShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.PublicShift
	for _, ps := range f.entries {
		if filter.Match(&ps.Shift) {
			result = append(result, ps)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

func (f *fakeIndex) FindPublic(ctx context.Context, shiftID string) (*model.PublicShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps, ok := f.entries[shiftID]
	if !ok {
		return nil, nil
	}
	return &ps, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, shift *model.PublicShift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[shift.ID] = *shift
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, shiftID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, shiftID)
	return nil
}

func (f *fakeIndex) get(shiftID string) (model.PublicShift, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps, ok := f.entries[shiftID]
	return ps, ok
}

// put seeds an index entry directly, to simulate a stale index.
func (f *fakeIndex) put(ps model.PublicShift) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[ps.ID] = ps
}

// fakeDocs keeps document blobs in a map.
type fakeDocs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	types   map[string]string
	failPut bool
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeDocs) Put(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("blob store down")
	}
	f.blobs[path] = append([]byte(nil), data...)
	f.types[path] = contentType
	return nil
}

func (f *fakeDocs) SignedURL(path string, ttl time.Duration) (string, error) {
	return "https://files.test/" + path + "?ttl=" + ttl.String(), nil
}

func (f *fakeDocs) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	delete(f.types, path)
	return nil
}

func (f *fakeDocs) blob(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[path]
	return b, ok
}

// arena wires the services over the in-memory store with capturing side
// effect collaborators and a pinned clock.
type arena struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	notify *fakeNotifier
	audit  *recordingAudit
	index  *fakeIndex
	docs   *fakeDocs
	svc    *Services
	now    time.Time
}

func newArena(t *testing.T, opts ...func(*Config)) *arena {
	st := memory.New()
	a := &arena{
		t:      t,
		ctx:    context.Background(),
		store:  st,
		notify: &fakeNotifier{},
		audit:  &recordingAudit{next: audit.NewStoreSink(st)},
		index:  newFakeIndex(),
		docs:   newFakeDocs(),
		now:    testNow,
	}
	cfg := Config{
		Store:     st,
		Audit:     a.audit,
		Notifier:  a.notify,
		PoolIndex: a.index,
		Documents: a.docs,
		Now:       func() time.Time { return a.now },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	a.svc = New(cfg)
	return a
}

func (a *arena) seedTenant(id, name string) {
	a.t.Helper()
	require.NoError(a.t, a.store.CreateTenant(a.ctx, &model.Tenant{ID: id, Name: name, Active: true}))
}

func (a *arena) seedMember(tenantID, uid, role string) {
	a.t.Helper()
	require.NoError(a.t, a.store.CreateMember(a.ctx, &model.TenantMember{
		TenantID:    tenantID,
		UID:         uid,
		Email:       uid + "@acme.test",
		DisplayName: uid,
		Role:        role,
		Active:      true,
	}))
}

// seedCompany creates the default tenant with a small crew.
func (a *arena) seedCompany() {
	a.t.Helper()
	a.seedTenant(testTenant, testTenantName)
	a.seedMember(testTenant, "usr_admin", model.RoleAdmin)
	a.seedMember(testTenant, "usr_manager", model.RoleManager)
	a.seedMember(testTenant, "usr_lead", model.RoleMember)
	a.seedMember(testTenant, "usr_worker", model.RoleMember)
	a.seedMember(testTenant, "usr_worker2", model.RoleMember)
}

func (a *arena) seedFreelancer(uid string, approved bool, homeTenantID *string) {
	a.t.Helper()
	require.NoError(a.t, a.store.CreateFreelancer(a.ctx, &model.Freelancer{
		UID:          uid,
		Email:        uid + "@pool.test",
		DisplayName:  uid,
		Approved:     approved,
		HomeTenantID: homeTenantID,
	}))
}

func (a *arena) manager() Actor {
	return Actor{UID: "usr_manager", Email: "usr_manager@acme.test", TenantID: testTenant, TenantName: testTenantName, Role: model.RoleManager}
}

func (a *arena) member(uid string) Actor {
	return Actor{UID: uid, Email: uid + "@acme.test", TenantID: testTenant, TenantName: testTenantName, Role: model.RoleMember}
}

func (a *arena) freelancer(uid string) Actor {
	return Actor{UID: uid, Email: uid + "@pool.test", Freelancer: true}
}

func validShiftInput() ShiftInput {
	starts := testNow.Add(24 * time.Hour)
	return ShiftInput{
		Title:         "Evening bar staff",
		Location:      model.Location{Name: "Festival Hall"},
		StartsAt:      starts,
		EndsAt:        starts.Add(6 * time.Hour),
		RequiredCount: 2,
	}
}

// draftShift creates a shift through the service.
func (a *arena) draftShift(mutate ...func(*ShiftInput)) *model.Shift {
	a.t.Helper()
	in := validShiftInput()
	for _, m := range mutate {
		m(&in)
	}
	sh, err := a.svc.Shifts.Create(a.ctx, a.manager(), in)
	require.NoError(a.t, err)
	return sh
}

// publishedShift creates and publishes a shift, then clears the side
// effects the setup produced.
func (a *arena) publishedShift(mutate ...func(*ShiftInput)) *model.Shift {
	return a.publishedShiftAs(a.manager(), mutate...)
}

// publishedShiftAs does the same acting as someone else, for shifts owned
// by another tenant.
func (a *arena) publishedShiftAs(actor Actor, mutate ...func(*ShiftInput)) *model.Shift {
	a.t.Helper()
	in := validShiftInput()
	for _, m := range mutate {
		m(&in)
	}
	sh, err := a.svc.Shifts.Create(a.ctx, actor, in)
	require.NoError(a.t, err)
	sh, err = a.svc.Shifts.Publish(a.ctx, actor, sh.ID)
	require.NoError(a.t, err)
	a.resetSideEffects()
	return sh
}

func (a *arena) resetSideEffects() {
	a.notify.reset()
	a.audit.reset()
}

// apply files an application as uid.
func (a *arena) apply(uid, shiftID string) *model.Application {
	a.t.Helper()
	app, err := a.svc.Applications.Apply(a.ctx, a.member(uid), shiftID, nil)
	require.NoError(a.t, err)
	return app
}

// acceptedWorker applies as uid and accepts the application.
func (a *arena) acceptedWorker(uid, shiftID string) *AcceptResult {
	a.t.Helper()
	app := a.apply(uid, shiftID)
	result, err := a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(a.t, err)
	return result
}

// getShift reads the shift back from the store.
func (a *arena) getShift(shiftID string) *model.Shift {
	a.t.Helper()
	sh, err := a.store.GetShift(a.ctx, testTenant, shiftID)
	require.NoError(a.t, err)
	return sh
}

// seedRaw runs writes inside one atomic block, for crafting states the
// public API would not produce.
func (a *arena) seedRaw(tenantID string, fn func(tx store.Tx) error) {
	a.t.Helper()
	require.NoError(a.t, a.store.Atomic(a.ctx, tenantID, fn))
}
