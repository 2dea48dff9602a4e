package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

// ShiftService owns shift creation, editing and status transitions.
type ShiftService struct {
	*core
}

// Create persists a new draft shift.
func (s *ShiftService) Create(ctx context.Context, actor Actor, input ShiftInput) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_create")(time.Now())

	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCrewLeader(ctx, actor.TenantID, input.CrewLeaderUID); err != nil {
		return nil, err
	}

	shift := &model.Shift{
		TenantID:      actor.TenantID,
		Title:         input.Title,
		Location:      input.Location,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		RequiredCount: input.RequiredCount,
		FilledCount:   0,
		PayRate:       input.PayRate,
		Requirements:  input.Requirements,
		ApplyDeadline: input.ApplyDeadline,
		Status:        model.ShiftStatusDraft,
		CrewLeaderUID: input.CrewLeaderUID,
		CreatedByUID:  actor.UID,
		IsPublicPool:  input.IsPublicPool,
	}
	if err := s.store.CreateShift(ctx, shift); err != nil {
		return nil, err
	}

	ob := newOutbox()
	ob.Audit(actor.TenantID, actor.UID, "shift.created", "shift", shift.ID, map[string]string{"title": shift.Title})
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("create")
	return shift, nil
}

// Get fetches one shift within the actor's tenant.
func (s *ShiftService) Get(ctx context.Context, actor Actor, shiftID string) (*model.Shift, error) {
	shift, err := s.store.GetShift(ctx, actor.TenantID, shiftID)
	if err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	return shift, nil
}

// Update edits a draft or published shift. Updates to published shifts
// notify everyone currently attached to it.
func (s *ShiftService) Update(ctx context.Context, actor Actor, shiftID string, patch ShiftPatch) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_update")(time.Now())

	if err := s.checkCrewLeader(ctx, actor.TenantID, patch.CrewLeaderUID); err != nil {
		return nil, err
	}

	var (
		updated *model.Shift
		ob      *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status != model.ShiftStatusDraft && shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("not_editable", "only draft or published shifts can be edited")
		}
		if err := patch.apply(shift); err != nil {
			return err
		}
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		updated = shift

		if shift.Status == model.ShiftStatusPublished {
			recipients, err := attachedUIDs(tx, shiftID)
			if err != nil {
				return err
			}
			ob.NotifyMany(actor.TenantID, recipients, fmt.Sprintf("Shift %q was updated", shift.Title))
		}
		ob.Audit(actor.TenantID, actor.UID, "shift.updated", "shift", shift.ID, nil)
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("update")
	return updated, nil
}

// Publish makes a draft shift visible. Publishing an already published
// shift is a no-op returning the current state.
func (s *ShiftService) Publish(ctx context.Context, actor Actor, shiftID string) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_publish")(time.Now())

	var (
		published bool
		result    *model.Shift
		ob        *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()
		published = false

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status == model.ShiftStatusPublished {
			result = shift
			return nil
		}
		if shift.Status != model.ShiftStatusDraft {
			return apperr.InvalidState("not_draft", "only draft shifts can be published")
		}
		shift.Status = model.ShiftStatusPublished
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		result = shift
		published = true

		ob.Audit(actor.TenantID, actor.UID, "shift.published", "shift", shift.ID, nil)
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if published {
		s.queuePublishNotices(ctx, ob, actor, result)
		prometheus.RecordShiftOperation("publish")
	}
	ob.Flush(ctx, s.core)
	return result, nil
}

// queuePublishNotices fans the first publish out to the tenant's members
// and, for public pool shifts, to every approved freelancer. Directory
// failures degrade to a publish without notifications.
func (s *ShiftService) queuePublishNotices(ctx context.Context, ob *outbox, actor Actor, shift *model.Shift) {
	log := logger.FromContext(ctx)

	members, err := s.members.ListMembers(ctx, actor.TenantID)
	if err != nil {
		log.Warn("member listing failed for publish notification", zap.String("shift_id", shift.ID), zap.Error(err))
	} else {
		var uids []string
		for _, m := range members {
			if m.UID != actor.UID {
				uids = append(uids, m.UID)
			}
		}
		ob.NotifyMany(actor.TenantID, uids, fmt.Sprintf("New shift published: %q", shift.Title))
	}

	if !shift.IsPublicPool {
		return
	}
	freelancers, err := s.freelancers.ListApprovedFreelancers(ctx)
	if err != nil {
		log.Warn("freelancer listing failed for publish notification", zap.String("shift_id", shift.ID), zap.Error(err))
		return
	}
	var uids []string
	for _, f := range freelancers {
		uids = append(uids, f.UID)
	}
	ob.NotifyMany(actor.TenantID, uids, fmt.Sprintf("A new shift is open in the public pool: %q", shift.Title))
}

// Close ends the application phase of a published shift.
func (s *ShiftService) Close(ctx context.Context, actor Actor, shiftID string) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_close")(time.Now())

	var (
		result *model.Shift
		ob     *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("not_published", "only published shifts can be closed")
		}
		shift.Status = model.ShiftStatusClosed
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		result = shift

		assignees, err := confirmedUIDs(tx, shiftID)
		if err != nil {
			return err
		}
		ob.NotifyMany(actor.TenantID, assignees, fmt.Sprintf("Shift %q was closed", shift.Title))
		ob.Audit(actor.TenantID, actor.UID, "shift.closed", "shift", shift.ID, nil)
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("close")
	return result, nil
}

// Cancel aborts a draft or published shift. The assignee and freelancer
// applicant snapshot for notifications is taken before the status change.
func (s *ShiftService) Cancel(ctx context.Context, actor Actor, shiftID string) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_cancel")(time.Now())

	var (
		result *model.Shift
		ob     *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status == model.ShiftStatusCancelled {
			return apperr.InvalidState("already_cancelled", "shift is already cancelled")
		}
		if shift.Status != model.ShiftStatusDraft && shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("not_cancellable", "closed or completed shifts cannot be cancelled")
		}

		recipients, err := confirmedUIDs(tx, shiftID)
		if err != nil {
			return err
		}
		applications, err := tx.ListApplicationsByShift(shiftID)
		if err != nil {
			return err
		}
		for _, a := range applications {
			if a.IsFreelancer && a.IsActive() {
				recipients = append(recipients, a.UID)
			}
		}

		shift.Status = model.ShiftStatusCancelled
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		result = shift

		ob.NotifyMany(actor.TenantID, recipients, fmt.Sprintf("Shift %q was cancelled", shift.Title))
		ob.Audit(actor.TenantID, actor.UID, "shift.cancelled", "shift", shift.ID, nil)
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("cancel")
	return result, nil
}

// Complete marks a shift as worked, once it has started. Only the crew
// leader or a manager may complete it. Each confirmed assignee without a
// time entry gets one spanning the shift window.
func (s *ShiftService) Complete(ctx context.Context, actor Actor, shiftID string) (*model.Shift, error) {
	defer prometheus.TrackOperation("shift_complete")(time.Now())

	var (
		result *model.Shift
		ob     *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status == model.ShiftStatusCompleted || shift.Status == model.ShiftStatusCancelled {
			return apperr.InvalidState("not_completable", "completed or cancelled shifts cannot be completed")
		}
		if s.now().Before(shift.StartsAt) {
			return apperr.InvalidState("not_started", "shift has not started yet")
		}
		if !actor.IsManager() && (shift.CrewLeaderUID == nil || *shift.CrewLeaderUID != actor.UID) {
			return apperr.Forbidden("not_crew_leader", "only the crew leader or a manager can complete a shift")
		}

		assignees, err := confirmedUIDs(tx, shiftID)
		if err != nil {
			return err
		}

		shift.Status = model.ShiftStatusCompleted
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		result = shift

		completed := *shift
		ob.After(func(ctx context.Context) {
			s.generateTimeEntries(ctx, actor, completed, assignees)
		})
		ob.NotifyMany(actor.TenantID, assignees, fmt.Sprintf("Shift %q was completed", shift.Title))
		ob.Audit(actor.TenantID, actor.UID, "shift.completed", "shift", shift.ID, nil)
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("complete")
	return result, nil
}

// Delete removes a draft or cancelled shift, or a closed one that has no
// confirmed assignees left.
func (s *ShiftService) Delete(ctx context.Context, actor Actor, shiftID string) error {
	defer prometheus.TrackOperation("shift_delete")(time.Now())

	var ob *outbox
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		switch shift.Status {
		case model.ShiftStatusDraft, model.ShiftStatusCancelled:
		case model.ShiftStatusClosed:
			confirmed, err := tx.CountConfirmedAssignments(shiftID)
			if err != nil {
				return err
			}
			if confirmed > 0 {
				return apperr.InvalidState("has_confirmed_assignees", "closed shifts with confirmed assignees cannot be deleted")
			}
		default:
			return apperr.InvalidState("not_deletable", "the shift must be cancelled before it can be deleted")
		}
		if err := tx.DeleteShift(shiftID); err != nil {
			return err
		}

		ob.Audit(actor.TenantID, actor.UID, "shift.deleted", "shift", shift.ID, map[string]string{"title": shift.Title})
		s.queueIndexSync(ob, *shift, actor.TenantName)
		return nil
	})
	if err != nil {
		return err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordShiftOperation("delete")
	return nil
}

// ListWithCounts returns the tenant's shifts with their pending
// application counts, for the admin listing.
func (s *ShiftService) ListWithCounts(ctx context.Context, actor Actor, filter store.ShiftFilter) ([]ShiftWithCounts, error) {
	shifts, err := s.store.ListShifts(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(shifts))
	for _, sh := range shifts {
		ids = append(ids, sh.ID)
	}
	counts, err := s.store.CountPendingApplications(ctx, actor.TenantID, ids)
	if err != nil {
		return nil, err
	}

	result := make([]ShiftWithCounts, 0, len(shifts))
	for _, sh := range shifts {
		result = append(result, ShiftWithCounts{Shift: sh, PendingApplications: counts[sh.ID]})
	}
	return result, nil
}

// ListTenantPool returns the published shifts of the actor's own tenant,
// the in-house counterpart of the public pool.
func (s *ShiftService) ListTenantPool(ctx context.Context, actor Actor) ([]model.Shift, error) {
	return s.store.ListShifts(ctx, actor.TenantID, store.ShiftFilter{
		Statuses: []model.ShiftStatus{model.ShiftStatusPublished},
	})
}

// ListMine returns the non-cancelled shifts the actor is confirmed on,
// ordered by start time.
func (s *ShiftService) ListMine(ctx context.Context, actor Actor) ([]model.Shift, error) {
	assignments, err := s.store.ListAssignmentsByUID(ctx, actor.TenantID, actor.UID)
	if err != nil {
		return nil, err
	}

	var result []model.Shift
	for _, a := range assignments {
		if !a.IsConfirmed() {
			continue
		}
		shift, err := s.store.GetShift(ctx, actor.TenantID, a.ShiftID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if shift.Status == model.ShiftStatusCancelled {
			continue
		}
		result = append(result, *shift)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

// ListAssignees returns a shift's assignments joined with member profiles.
func (s *ShiftService) ListAssignees(ctx context.Context, actor Actor, shiftID string) ([]Assignee, error) {
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	assignments, err := s.store.ListAssignmentsByShift(ctx, actor.TenantID, shiftID)
	if err != nil {
		return nil, err
	}

	result := make([]Assignee, 0, len(assignments))
	for _, a := range assignments {
		if !a.IsConfirmed() {
			continue
		}
		entry := Assignee{Assignment: a}
		member, err := s.members.GetMember(ctx, actor.TenantID, a.UID)
		if err == nil {
			entry.DisplayName = member.DisplayName
			entry.Email = member.Email
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

// AuditTrail returns the audit entries recorded for one shift.
func (s *ShiftService) AuditTrail(ctx context.Context, actor Actor, shiftID string) ([]model.AuditLogEntry, error) {
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	return s.store.ListAuditEntries(ctx, actor.TenantID, shiftID)
}

// checkCrewLeader verifies the referenced crew leader is a tenant member.
func (s *ShiftService) checkCrewLeader(ctx context.Context, tenantID string, uid *string) error {
	if uid == nil {
		return nil
	}
	_, err := s.members.GetMember(ctx, tenantID, *uid)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation("crew_leader_not_member", "crew leader must be a tenant member")
	}
	return err
}

// queueIndexSync reconciles the public pool index with the shift's state
// after commit. Only published public shifts are indexed; everything else
// is removed.
func (s *core) queueIndexSync(ob *outbox, shift model.Shift, tenantName string) {
	ob.After(func(ctx context.Context) {
		var err error
		if shift.Status == model.ShiftStatusPublished && shift.IsPublicPool {
			err = s.index.Upsert(ctx, &model.PublicShift{Shift: shift, TenantName: tenantName})
		} else {
			err = s.index.Remove(ctx, shift.ID)
		}
		if err != nil {
			logger.FromContext(ctx).Warn("pool index update failed",
				zap.String("shift_id", shift.ID), zap.Error(err))
		}
	})
}

// confirmedUIDs snapshots the uids currently confirmed on a shift.
func confirmedUIDs(tx store.Tx, shiftID string) ([]string, error) {
	assignments, err := tx.ListAssignmentsByShift(shiftID)
	if err != nil {
		return nil, err
	}
	var uids []string
	for _, a := range assignments {
		if a.IsConfirmed() {
			uids = append(uids, a.UID)
		}
	}
	return uids, nil
}

// attachedUIDs snapshots everyone to tell about changes to a published
// shift: confirmed assignees plus pending applicants.
func attachedUIDs(tx store.Tx, shiftID string) ([]string, error) {
	uids, err := confirmedUIDs(tx, shiftID)
	if err != nil {
		return nil, err
	}
	applications, err := tx.ListApplicationsByShift(shiftID)
	if err != nil {
		return nil, err
	}
	for _, a := range applications {
		if a.Status == model.ApplicationStatusPending {
			uids = append(uids, a.UID)
		}
	}
	return uids, nil
}
