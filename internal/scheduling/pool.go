package scheduling

import (
	"context"
	"errors"
	"sort"
	"time"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/prometheus"
)

// PoolService is the cross-tenant read path: the public marketplace view
// plus the freelancer's own applications and shifts, assembled by walking
// every tenant partition. Reads are not transactional; a shift may change
// state between the scan and the response.
type PoolService struct {
	*core
}

// ListPublicPool returns the published public pool shifts across all
// tenants matching the filter, ordered by start time.
func (s *PoolService) ListPublicPool(ctx context.Context, filter store.PoolFilter) ([]model.PublicShift, error) {
	return s.index.ListPublic(ctx, filter)
}

// FindPublicShift locates one public pool shift across all tenants.
func (s *PoolService) FindPublicShift(ctx context.Context, shiftID string) (*model.PublicShift, error) {
	public, err := s.index.FindPublic(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if public == nil {
		return nil, apperr.NotFound("shift_not_found", "public shift not found")
	}
	return public, nil
}

// ListFreelancerApplications walks every tenant for the freelancer's
// applications and joins each back to its shift, newest first.
func (s *PoolService) ListFreelancerApplications(ctx context.Context, actor Actor) ([]FreelancerApplication, error) {
	defer prometheus.TrackOperation("pool_freelancer_applications")(time.Now())

	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var result []FreelancerApplication
	for _, t := range tenants {
		applications, err := s.store.ListApplicationsByUID(ctx, t.ID, actor.UID)
		if err != nil {
			return nil, err
		}
		for _, a := range applications {
			shift, err := s.store.GetShift(ctx, t.ID, a.ShiftID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result = append(result, FreelancerApplication{
				Application: a,
				Shift:       *shift,
				TenantName:  t.Name,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Application.CreatedAt.After(result[j].Application.CreatedAt)
	})
	return result, nil
}

// ListFreelancerShifts walks every tenant for the shifts the freelancer is
// confirmed on, ordered by start time. Cancelled shifts are dropped;
// completed ones are included only when asked for.
func (s *PoolService) ListFreelancerShifts(ctx context.Context, actor Actor, includeCompleted bool) ([]model.PublicShift, error) {
	defer prometheus.TrackOperation("pool_freelancer_shifts")(time.Now())

	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var result []model.PublicShift
	for _, t := range tenants {
		assignments, err := s.store.ListAssignmentsByUID(ctx, t.ID, actor.UID)
		if err != nil {
			return nil, err
		}
		for _, a := range assignments {
			if !a.IsConfirmed() {
				continue
			}
			shift, err := s.store.GetShift(ctx, t.ID, a.ShiftID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if shift.Status == model.ShiftStatusCancelled {
				continue
			}
			if shift.Status == model.ShiftStatusCompleted && !includeCompleted {
				continue
			}
			result = append(result, model.PublicShift{Shift: *shift, TenantName: t.Name})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}
