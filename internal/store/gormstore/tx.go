package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

// Atomic runs fn in a database transaction. Version conflicts roll the
// transaction back and re-run fn with a short exponential backoff; any
// other error aborts immediately.
func (s *Store) Atomic(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	operation := func() (struct{}, error) {
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(&gormTx{db: gtx, tenantID: tenantID})
		})
		if err != nil && !errors.Is(err, store.ErrVersionConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(s.maxRetries)),
	)
	if errors.Is(err, store.ErrVersionConflict) {
		return store.ErrConflict
	}
	return err
}

// gormTx scopes transaction operations to one tenant.
type gormTx struct {
	db       *gorm.DB
	tenantID string
}

func (t *gormTx) GetShift(id string) (*model.Shift, error) {
	var shift model.Shift
	err := t.db.Where("id = ? AND tenant_id = ?", id, t.tenantID).First(&shift).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &shift, nil
}

func (t *gormTx) SaveShift(shift *model.Shift) error {
	prev := shift.Version
	shift.Version = prev + 1

	res := t.db.Model(&model.Shift{}).
		Where("id = ? AND tenant_id = ? AND version = ?", shift.ID, t.tenantID, prev).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(shift)
	if res.Error != nil {
		shift.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		shift.Version = prev
		return store.ErrVersionConflict
	}
	return nil
}

func (t *gormTx) DeleteShift(id string) error {
	res := t.db.Where("id = ? AND tenant_id = ?", id, t.tenantID).Delete(&model.Shift{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) GetApplication(id string) (*model.Application, error) {
	var app model.Application
	err := t.db.Where("id = ? AND tenant_id = ?", id, t.tenantID).First(&app).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &app, nil
}

func (t *gormTx) SaveApplication(application *model.Application) error {
	prev := application.Version
	application.Version = prev + 1

	res := t.db.Model(&model.Application{}).
		Where("id = ? AND tenant_id = ? AND version = ?", application.ID, t.tenantID, prev).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(application)
	if res.Error != nil {
		application.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		application.Version = prev
		return store.ErrVersionConflict
	}
	return nil
}

func (t *gormTx) CreateApplication(application *model.Application) error {
	if application.TenantID == "" {
		application.TenantID = t.tenantID
	}
	return translateErr(t.db.Create(application).Error)
}

func (t *gormTx) FindActiveApplication(shiftID, uid string) (*model.Application, error) {
	var app model.Application
	err := t.db.
		Where("tenant_id = ? AND shift_id = ? AND uid = ? AND status <> ?",
			t.tenantID, shiftID, uid, model.ApplicationStatusWithdrawn).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (t *gormTx) FindAcceptedApplication(shiftID, uid string) (*model.Application, error) {
	var app model.Application
	err := t.db.
		Where("tenant_id = ? AND shift_id = ? AND uid = ? AND status = ?",
			t.tenantID, shiftID, uid, model.ApplicationStatusAccepted).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (t *gormTx) ListApplicationsByShift(shiftID string) ([]model.Application, error) {
	var apps []model.Application
	err := t.db.
		Where("tenant_id = ? AND shift_id = ?", t.tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&apps).Error
	return apps, err
}

func (t *gormTx) GetAssignment(id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := t.db.Where("id = ? AND tenant_id = ?", id, t.tenantID).First(&assignment).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &assignment, nil
}

func (t *gormTx) SaveAssignment(assignment *model.Assignment) error {
	prev := assignment.Version
	assignment.Version = prev + 1

	res := t.db.Model(&model.Assignment{}).
		Where("id = ? AND tenant_id = ? AND version = ?", assignment.ID, t.tenantID, prev).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(assignment)
	if res.Error != nil {
		assignment.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		assignment.Version = prev
		return store.ErrVersionConflict
	}
	return nil
}

func (t *gormTx) CreateAssignment(assignment *model.Assignment) error {
	if assignment.TenantID == "" {
		assignment.TenantID = t.tenantID
	}
	return translateErr(t.db.Create(assignment).Error)
}

func (t *gormTx) FindConfirmedAssignment(shiftID, uid string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := t.db.
		Where("tenant_id = ? AND shift_id = ? AND uid = ? AND status = ?",
			t.tenantID, shiftID, uid, model.AssignmentStatusConfirmed).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (t *gormTx) ListAssignmentsByShift(shiftID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := t.db.
		Where("tenant_id = ? AND shift_id = ?", t.tenantID, shiftID).
		Order("created_at asc, id asc").
		Find(&assignments).Error
	return assignments, err
}

func (t *gormTx) CountConfirmedAssignments(shiftID string) (int, error) {
	var count int64
	err := t.db.Model(&model.Assignment{}).
		Where("tenant_id = ? AND shift_id = ? AND status = ?",
			t.tenantID, shiftID, model.AssignmentStatusConfirmed).
		Count(&count).Error
	return int(count), err
}

func (t *gormTx) CreateTimeEntry(entry *model.ShiftTimeEntry) error {
	if entry.TenantID == "" {
		entry.TenantID = t.tenantID
	}
	return translateErr(t.db.Create(entry).Error)
}

func (t *gormTx) FindTimeEntry(shiftID, uid string) (*model.ShiftTimeEntry, error) {
	var entry model.ShiftTimeEntry
	err := t.db.
		Where("tenant_id = ? AND shift_id = ? AND uid = ?", t.tenantID, shiftID, uid).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
