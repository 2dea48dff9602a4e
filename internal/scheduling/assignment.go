package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

// AssignmentService converts accepted applications into capacity-checked
// assignments and reverses that conversion. Everything touching
// Shift.FilledCount runs inside one atomic block: the capacity check and
// the count mutation commit together or not at all.
type AssignmentService struct {
	*core
}

// Accept turns a pending application into a confirmed assignment and
// consumes one slot. Re-accepting an already accepted application that
// still has its confirmed assignment returns the existing pair, so retried
// deliveries of the same accept are harmless.
func (s *AssignmentService) Accept(ctx context.Context, actor Actor, applicationID string) (*AcceptResult, error) {
	defer prometheus.TrackOperation("assignment_accept")(time.Now())

	var (
		result       *AcceptResult
		replay       bool
		title        string
		isFreelancer bool
		workerUID    string
		workerEmail  string
		ob           *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()
		replay = false

		app, err := tx.GetApplication(applicationID)
		if err != nil {
			return notFoundErr(err, "application_not_found", "application not found")
		}
		if app.Status == model.ApplicationStatusAccepted {
			existing, err := tx.FindConfirmedAssignment(app.ShiftID, app.UID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = &AcceptResult{Application: app, Assignment: existing}
				replay = true
				return nil
			}
		}
		if app.Status != model.ApplicationStatusPending {
			return apperr.InvalidState("not_pending", "only pending applications can be accepted")
		}

		shift, err := tx.GetShift(app.ShiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("shift_not_published", "applications can only be accepted on published shifts")
		}
		if !shift.HasOpenSlots() {
			return apperr.CapacityExceeded("shift_full", "the shift has no open slots left")
		}

		app.Status = model.ApplicationStatusAccepted
		if err := tx.SaveApplication(app); err != nil {
			return err
		}
		assignment := &model.Assignment{
			TenantID: actor.TenantID,
			ShiftID:  app.ShiftID,
			UID:      app.UID,
			Status:   model.AssignmentStatusConfirmed,
		}
		if err := tx.CreateAssignment(assignment); err != nil {
			return err
		}
		shift.FilledCount++
		if err := tx.SaveShift(shift); err != nil {
			return err
		}

		result = &AcceptResult{Application: app, Assignment: assignment}
		title = shift.Title
		isFreelancer = app.IsFreelancer
		workerUID = app.UID
		workerEmail = app.Email

		ob.Audit(actor.TenantID, actor.UID, "application.accepted", "application", app.ID, map[string]string{
			"shift_id":      app.ShiftID,
			"assignment_id": assignment.ID,
			"uid":           app.UID,
		})
		return nil
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindCapacityExceeded) {
			prometheus.RecordCapacityRejection()
		}
		return nil, err
	}
	if replay {
		return result, nil
	}

	notifyTenant := actor.TenantID
	if isFreelancer {
		if home := s.provisionFreelancer(ctx, actor.TenantID, workerUID, workerEmail); home != "" {
			notifyTenant = home
		}
	}
	ob.NotifyOne(notifyTenant, workerUID, fmt.Sprintf("You were assigned to shift %q", title))
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("accept")
	return result, nil
}

// Revoke undoes an accept: the application returns to pending, the
// confirmed assignment is cancelled and the slot is released. The count
// never drops below zero, even on drifted data.
func (s *AssignmentService) Revoke(ctx context.Context, actor Actor, applicationID string) (*model.Application, error) {
	defer prometheus.TrackOperation("assignment_revoke")(time.Now())

	var (
		application *model.Application
		ob          *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		app, err := tx.GetApplication(applicationID)
		if err != nil {
			return notFoundErr(err, "application_not_found", "application not found")
		}
		if app.Status != model.ApplicationStatusAccepted {
			return apperr.InvalidState("not_accepted", "only accepted applications can be revoked")
		}
		app.Status = model.ApplicationStatusPending
		if err := tx.SaveApplication(app); err != nil {
			return err
		}
		application = app

		details := map[string]string{"shift_id": app.ShiftID, "uid": app.UID}
		assignment, err := tx.FindConfirmedAssignment(app.ShiftID, app.UID)
		if err != nil {
			return err
		}
		if assignment != nil {
			now := s.now()
			assignment.Status = model.AssignmentStatusCancelled
			assignment.CancelledAt = &now
			if err := tx.SaveAssignment(assignment); err != nil {
				return err
			}
			details["assignment_id"] = assignment.ID
		}

		shift, err := tx.GetShift(app.ShiftID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err == nil && shift.FilledCount > 0 {
			shift.FilledCount--
			if err := tx.SaveShift(shift); err != nil {
				return err
			}
		}

		ob.Audit(actor.TenantID, actor.UID, "application.revoked", "application", app.ID, details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("revoke")
	return application, nil
}

// AssignDirect staffs a tenant member onto a shift without an application.
func (s *AssignmentService) AssignDirect(ctx context.Context, actor Actor, shiftID, memberUID string) (*model.Assignment, error) {
	defer prometheus.TrackOperation("assignment_assign_direct")(time.Now())

	if _, err := s.members.GetMember(ctx, actor.TenantID, memberUID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("member_not_found", "the worker is not a member of this tenant")
		}
		return nil, err
	}

	var (
		assignment *model.Assignment
		title      string
		ob         *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status != model.ShiftStatusDraft && shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("not_assignable", "workers can only be assigned to draft or published shifts")
		}
		if !shift.HasOpenSlots() {
			return apperr.CapacityExceeded("shift_full", "the shift has no open slots left")
		}
		existing, err := tx.FindConfirmedAssignment(shiftID, memberUID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.InvalidState("already_assigned", "the worker is already assigned to this shift")
		}

		assignment = &model.Assignment{
			TenantID: actor.TenantID,
			ShiftID:  shiftID,
			UID:      memberUID,
			Status:   model.AssignmentStatusConfirmed,
		}
		if err := tx.CreateAssignment(assignment); err != nil {
			return err
		}
		shift.FilledCount++
		if err := tx.SaveShift(shift); err != nil {
			return err
		}
		title = shift.Title

		ob.Audit(actor.TenantID, actor.UID, "assignment.created", "assignment", assignment.ID, map[string]string{
			"shift_id": shiftID,
			"uid":      memberUID,
		})
		return nil
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindCapacityExceeded) {
			prometheus.RecordCapacityRejection()
		}
		return nil, err
	}

	ob.NotifyOne(actor.TenantID, memberUID, fmt.Sprintf("You were assigned to shift %q", title))
	ob.Flush(ctx, s.core)

	prometheus.RecordAssignmentOperation("assign_direct")
	return assignment, nil
}

// Remove cancels a confirmed assignment and releases its slot. A matching
// accepted application, if any, returns to pending so it can be re-decided.
func (s *AssignmentService) Remove(ctx context.Context, actor Actor, assignmentID string) (*model.Assignment, error) {
	defer prometheus.TrackOperation("assignment_remove")(time.Now())

	var (
		removed *model.Assignment
		ob      *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		assignment, err := tx.GetAssignment(assignmentID)
		if err != nil {
			return notFoundErr(err, "assignment_not_found", "assignment not found")
		}
		if !assignment.IsConfirmed() {
			return apperr.InvalidState("not_confirmed", "only confirmed assignments can be removed")
		}

		app, err := tx.FindAcceptedApplication(assignment.ShiftID, assignment.UID)
		if err != nil {
			return err
		}
		if app != nil {
			app.Status = model.ApplicationStatusPending
			if err := tx.SaveApplication(app); err != nil {
				return err
			}
		}

		now := s.now()
		assignment.Status = model.AssignmentStatusCancelled
		assignment.CancelledAt = &now
		if err := tx.SaveAssignment(assignment); err != nil {
			return err
		}
		removed = assignment

		title := assignment.ShiftID
		shift, err := tx.GetShift(assignment.ShiftID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err == nil {
			title = shift.Title
			if shift.FilledCount > 0 {
				shift.FilledCount--
				if err := tx.SaveShift(shift); err != nil {
					return err
				}
			}
		}

		ob.NotifyOne(actor.TenantID, assignment.UID, fmt.Sprintf("You were removed from shift %q", title))
		ob.Audit(actor.TenantID, actor.UID, "assignment.removed", "assignment", assignment.ID, map[string]string{
			"shift_id": assignment.ShiftID,
			"uid":      assignment.UID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordAssignmentOperation("remove")
	return removed, nil
}

// provisionFreelancer makes an accepted freelancer a member of the
// granting tenant, so subsequent scheduling treats them like any other
// member. Returns the freelancer's home tenant for notification routing.
// The accept has already committed; failures here are logged only.
func (s *core) provisionFreelancer(ctx context.Context, tenantID, uid, email string) (homeTenant string) {
	log := logger.FromContext(ctx)

	freelancer, err := s.freelancers.GetFreelancer(ctx, uid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("freelancer lookup failed after accept", zap.String("uid", uid), zap.Error(err))
	}
	var displayName string
	if err == nil {
		displayName = freelancer.DisplayName
		if freelancer.HomeTenantID != nil {
			homeTenant = *freelancer.HomeTenantID
		}
		if email == "" {
			email = freelancer.Email
		}
	}

	_, err = s.members.GetMember(ctx, tenantID, uid)
	if err == nil {
		return homeTenant
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn("member lookup failed after accept", zap.String("uid", uid), zap.Error(err))
		return homeTenant
	}

	member := &model.TenantMember{
		TenantID:    tenantID,
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		Role:        model.RoleMember,
		Active:      true,
		Provisioned: true,
	}
	err = s.members.CreateMember(ctx, member)
	switch {
	case err == nil:
		log.Info("provisioned freelancer as tenant member",
			zap.String("tenant_id", tenantID), zap.String("uid", uid))
	case errors.Is(err, store.ErrDuplicate):
		// Lost a race against a concurrent accept; the member exists.
	default:
		log.Warn("freelancer provisioning failed",
			zap.String("tenant_id", tenantID), zap.String("uid", uid), zap.Error(err))
	}
	return homeTenant
}
