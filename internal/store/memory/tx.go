package memory

import (
	"context"
	"errors"
	"time"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

const maxTxAttempts = 3

// Atomic runs fn under the store-wide write lock. Writes are staged on the
// transaction and applied only when fn returns nil, so a failed block
// leaves no trace. Version conflicts re-run fn the same way the gorm store
// re-runs its transaction.
func (s *Store) Atomic(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx := newTx(s, tenantID)
		err = fn(tx)
		if err == nil {
			tx.commit()
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return store.ErrConflict
}

// memTx stages writes on top of the store until commit.
type memTx struct {
	s        *Store
	tenantID string

	shifts        map[string]*model.Shift
	deletedShifts map[string]bool
	apps          map[string]*model.Application
	assignments   map[string]*model.Assignment
	timeEntries   map[string]*model.ShiftTimeEntry
}

func newTx(s *Store, tenantID string) *memTx {
	return &memTx{
		s:             s,
		tenantID:      tenantID,
		shifts:        make(map[string]*model.Shift),
		deletedShifts: make(map[string]bool),
		apps:          make(map[string]*model.Application),
		assignments:   make(map[string]*model.Assignment),
		timeEntries:   make(map[string]*model.ShiftTimeEntry),
	}
}

func (t *memTx) commit() {
	for id, sh := range t.shifts {
		t.s.shifts[id] = sh
	}
	for id := range t.deletedShifts {
		delete(t.s.shifts, id)
	}
	for id, a := range t.apps {
		t.s.apps[id] = a
	}
	for id, a := range t.assignments {
		t.s.assignments[id] = a
	}
	for id, e := range t.timeEntries {
		t.s.timeEntries[id] = e
	}
}

// effectiveShift returns the staged or stored shift visible to this tx.
func (t *memTx) effectiveShift(id string) *model.Shift {
	if t.deletedShifts[id] {
		return nil
	}
	if sh, ok := t.shifts[id]; ok {
		return sh
	}
	sh, ok := t.s.shifts[id]
	if !ok || sh.TenantID != t.tenantID {
		return nil
	}
	return sh
}

func (t *memTx) GetShift(id string) (*model.Shift, error) {
	sh := t.effectiveShift(id)
	if sh == nil {
		return nil, store.ErrNotFound
	}
	return cloneShift(sh), nil
}

func (t *memTx) SaveShift(shift *model.Shift) error {
	current := t.effectiveShift(shift.ID)
	if current == nil {
		// Row vanished since it was read; treat as a conflict so the
		// block re-runs and observes the deletion.
		return store.ErrVersionConflict
	}
	if shift.Version != current.Version {
		return store.ErrVersionConflict
	}
	shift.Version++
	shift.UpdatedAt = time.Now()
	t.shifts[shift.ID] = cloneShift(shift)
	return nil
}

func (t *memTx) DeleteShift(id string) error {
	if t.effectiveShift(id) == nil {
		return store.ErrNotFound
	}
	delete(t.shifts, id)
	t.deletedShifts[id] = true
	return nil
}

// effectiveApplications iterates stored rows not shadowed by staged ones,
// then the staged rows.
func (t *memTx) effectiveApplications() []*model.Application {
	var result []*model.Application
	for id, a := range t.s.apps {
		if _, staged := t.apps[id]; staged {
			continue
		}
		if a.TenantID != t.tenantID {
			continue
		}
		result = append(result, a)
	}
	for _, a := range t.apps {
		result = append(result, a)
	}
	return result
}

func (t *memTx) effectiveApplication(id string) *model.Application {
	if a, ok := t.apps[id]; ok {
		return a
	}
	a, ok := t.s.apps[id]
	if !ok || a.TenantID != t.tenantID {
		return nil
	}
	return a
}

func (t *memTx) GetApplication(id string) (*model.Application, error) {
	a := t.effectiveApplication(id)
	if a == nil {
		return nil, store.ErrNotFound
	}
	return cloneApplication(a), nil
}

func (t *memTx) SaveApplication(application *model.Application) error {
	current := t.effectiveApplication(application.ID)
	if current == nil {
		return store.ErrVersionConflict
	}
	if application.Version != current.Version {
		return store.ErrVersionConflict
	}
	application.Version++
	application.UpdatedAt = time.Now()
	t.apps[application.ID] = cloneApplication(application)
	return nil
}

func (t *memTx) CreateApplication(application *model.Application) error {
	if application.ID == "" {
		application.ID = model.NewID("app_")
	}
	if application.TenantID == "" {
		application.TenantID = t.tenantID
	}
	for _, a := range t.effectiveApplications() {
		if a.ShiftID == application.ShiftID && a.UID == application.UID && a.IsActive() {
			return store.ErrDuplicate
		}
	}
	stampCreate(&application.CreatedAt, &application.UpdatedAt)
	t.apps[application.ID] = cloneApplication(application)
	return nil
}

func (t *memTx) FindActiveApplication(shiftID, uid string) (*model.Application, error) {
	for _, a := range t.effectiveApplications() {
		if a.ShiftID == shiftID && a.UID == uid && a.IsActive() {
			return cloneApplication(a), nil
		}
	}
	return nil, nil
}

func (t *memTx) FindAcceptedApplication(shiftID, uid string) (*model.Application, error) {
	for _, a := range t.effectiveApplications() {
		if a.ShiftID == shiftID && a.UID == uid && a.Status == model.ApplicationStatusAccepted {
			return cloneApplication(a), nil
		}
	}
	return nil, nil
}

func (t *memTx) ListApplicationsByShift(shiftID string) ([]model.Application, error) {
	var result []model.Application
	for _, a := range t.effectiveApplications() {
		if a.ShiftID == shiftID {
			result = append(result, *cloneApplication(a))
		}
	}
	sortApplications(result)
	return result, nil
}

func (t *memTx) effectiveAssignments() []*model.Assignment {
	var result []*model.Assignment
	for id, a := range t.s.assignments {
		if _, staged := t.assignments[id]; staged {
			continue
		}
		if a.TenantID != t.tenantID {
			continue
		}
		result = append(result, a)
	}
	for _, a := range t.assignments {
		result = append(result, a)
	}
	return result
}

func (t *memTx) effectiveAssignment(id string) *model.Assignment {
	if a, ok := t.assignments[id]; ok {
		return a
	}
	a, ok := t.s.assignments[id]
	if !ok || a.TenantID != t.tenantID {
		return nil
	}
	return a
}

func (t *memTx) GetAssignment(id string) (*model.Assignment, error) {
	a := t.effectiveAssignment(id)
	if a == nil {
		return nil, store.ErrNotFound
	}
	return cloneAssignment(a), nil
}

func (t *memTx) SaveAssignment(assignment *model.Assignment) error {
	current := t.effectiveAssignment(assignment.ID)
	if current == nil {
		return store.ErrVersionConflict
	}
	if assignment.Version != current.Version {
		return store.ErrVersionConflict
	}
	assignment.Version++
	t.assignments[assignment.ID] = cloneAssignment(assignment)
	return nil
}

func (t *memTx) CreateAssignment(assignment *model.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = model.NewID("asg_")
	}
	if assignment.TenantID == "" {
		assignment.TenantID = t.tenantID
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now()
	}
	t.assignments[assignment.ID] = cloneAssignment(assignment)
	return nil
}

func (t *memTx) FindConfirmedAssignment(shiftID, uid string) (*model.Assignment, error) {
	for _, a := range t.effectiveAssignments() {
		if a.ShiftID == shiftID && a.UID == uid && a.IsConfirmed() {
			return cloneAssignment(a), nil
		}
	}
	return nil, nil
}

func (t *memTx) ListAssignmentsByShift(shiftID string) ([]model.Assignment, error) {
	var result []model.Assignment
	for _, a := range t.effectiveAssignments() {
		if a.ShiftID == shiftID {
			result = append(result, *cloneAssignment(a))
		}
	}
	sortAssignments(result)
	return result, nil
}

func (t *memTx) CountConfirmedAssignments(shiftID string) (int, error) {
	count := 0
	for _, a := range t.effectiveAssignments() {
		if a.ShiftID == shiftID && a.IsConfirmed() {
			count++
		}
	}
	return count, nil
}

func (t *memTx) CreateTimeEntry(entry *model.ShiftTimeEntry) error {
	if entry.ID == "" {
		entry.ID = model.NewID("tme_")
	}
	if entry.TenantID == "" {
		entry.TenantID = t.tenantID
	}
	existing, err := t.FindTimeEntry(entry.ShiftID, entry.UID)
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrDuplicate
	}
	stampCreate(&entry.CreatedAt, &entry.UpdatedAt)
	t.timeEntries[entry.ID] = cloneTimeEntry(entry)
	return nil
}

func (t *memTx) FindTimeEntry(shiftID, uid string) (*model.ShiftTimeEntry, error) {
	for id, e := range t.s.timeEntries {
		if _, staged := t.timeEntries[id]; staged {
			continue
		}
		if e.TenantID == t.tenantID && e.ShiftID == shiftID && e.UID == uid {
			return cloneTimeEntry(e), nil
		}
	}
	for _, e := range t.timeEntries {
		if e.ShiftID == shiftID && e.UID == uid {
			return cloneTimeEntry(e), nil
		}
	}
	return nil, nil
}
