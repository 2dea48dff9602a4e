// Package poolindex provides the lookup strategies behind the cross-tenant
// public shift pool. Scan walks the store on every read and needs no
// maintenance; Redis is a write-through cache kept current by the shift
// lifecycle. Both satisfy scheduling.PublicShiftIndex.
package poolindex

import (
	"context"
	"errors"
	"sort"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/prometheus"
)

// Scan answers pool queries straight from the store, visiting every tenant
// partition. Upsert and Remove are no-ops because the store itself is the
// source of truth.
type Scan struct {
	store store.SchedulingStore
}

func NewScan(st store.SchedulingStore) *Scan {
	return &Scan{store: st}
}

// ListPublic returns the published public pool shifts across all tenants
// matching the filter, ordered by start time.
func (s *Scan) ListPublic(ctx context.Context, filter store.PoolFilter) ([]model.PublicShift, error) {
	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var result []model.PublicShift
	for _, t := range tenants {
		shifts, err := s.store.ListShifts(ctx, t.ID, store.ShiftFilter{
			Statuses:   []model.ShiftStatus{model.ShiftStatusPublished},
			PublicOnly: true,
		})
		if err != nil {
			return nil, err
		}
		for i := range shifts {
			if !filter.Match(&shifts[i]) {
				continue
			}
			result = append(result, model.PublicShift{Shift: shifts[i], TenantName: t.Name})
		}
	}
	sortPublicShifts(result)

	prometheus.RecordPoolQuery("scan")
	return result, nil
}

// FindPublic locates one public pool shift by ID, or nil when the shift
// does not exist or is not publicly listed.
func (s *Scan) FindPublic(ctx context.Context, shiftID string) (*model.PublicShift, error) {
	prometheus.RecordPoolQuery("scan")
	return findInStore(ctx, s.store, shiftID)
}

// findInStore walks every tenant partition for one public pool shift.
// Shift IDs are globally unique, so the first hit settles the lookup.
func findInStore(ctx context.Context, st store.SchedulingStore, shiftID string) (*model.PublicShift, error) {
	tenants, err := st.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range tenants {
		shift, err := st.GetShift(ctx, t.ID, shiftID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if shift.Status != model.ShiftStatusPublished || !shift.IsPublicPool {
			return nil, nil
		}
		return &model.PublicShift{Shift: *shift, TenantName: t.Name}, nil
	}
	return nil, nil
}

func (s *Scan) Upsert(ctx context.Context, shift *model.PublicShift) error {
	return nil
}

func (s *Scan) Remove(ctx context.Context, shiftID string) error {
	return nil
}

func sortPublicShifts(shifts []model.PublicShift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].StartsAt.Equal(shifts[j].StartsAt) {
			return shifts[i].ID < shifts[j].ID
		}
		return shifts[i].StartsAt.Before(shifts[j].StartsAt)
	})
}
