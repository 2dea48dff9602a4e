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

// ApplicationService owns application creation and its reversible state
// transitions. Accepting an application lives on AssignmentService because
// it mutates shift capacity.
type ApplicationService struct {
	*core
}

// Apply files a pending application for a published shift in the actor's
// own tenant.
func (s *ApplicationService) Apply(ctx context.Context, actor Actor, shiftID string, note *string) (*model.Application, error) {
	defer prometheus.TrackOperation("application_apply")(time.Now())

	var (
		application *model.Application
		title       string
		ob          *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if shift.Status != model.ShiftStatusPublished {
			return apperr.InvalidState("shift_not_published", "applications are only accepted on published shifts")
		}
		if shift.DeadlineOver(s.now()) {
			return apperr.DeadlinePassed("deadline_passed", "the application deadline has passed")
		}
		existing, err := tx.FindActiveApplication(shiftID, actor.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.DuplicateApplication("duplicate_application", "an active application for this shift already exists")
		}

		application = &model.Application{
			TenantID: actor.TenantID,
			ShiftID:  shiftID,
			UID:      actor.UID,
			Email:    actor.Email,
			Note:     note,
			Status:   model.ApplicationStatusPending,
		}
		if err := tx.CreateApplication(application); err != nil {
			return err
		}
		title = shift.Title

		ob.Audit(actor.TenantID, actor.UID, "application.created", "application", application.ID, map[string]string{"shift_id": shiftID})
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.DuplicateApplication("duplicate_application", "an active application for this shift already exists")
	}
	if err != nil {
		return nil, err
	}

	s.queueManagerNotice(ctx, ob, actor.TenantID, fmt.Sprintf("New application for %q", title))
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("apply")
	return application, nil
}

// ApplyPublic files a cross-tenant application: an approved freelancer
// applies to a public pool shift owned by some other tenant. The owning
// tenant is located through the public shift index and re-checked inside
// the transaction.
func (s *ApplicationService) ApplyPublic(ctx context.Context, actor Actor, shiftID string, note *string) (*model.Application, error) {
	defer prometheus.TrackOperation("application_apply_public")(time.Now())

	freelancer, err := s.freelancers.GetFreelancer(ctx, actor.UID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Forbidden("not_approved_freelancer", "only approved freelancers can apply to public pool shifts")
	}
	if err != nil {
		return nil, err
	}
	if !freelancer.Approved {
		return nil, apperr.Forbidden("not_approved_freelancer", "only approved freelancers can apply to public pool shifts")
	}

	public, err := s.index.FindPublic(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if public == nil {
		return nil, apperr.NotFound("shift_not_found", "public shift not found")
	}
	tenantID := public.TenantID

	email := actor.Email
	if email == "" {
		email = freelancer.Email
	}

	var (
		application *model.Application
		title       string
		ob          *outbox
	)
	err = s.atomic(ctx, tenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "public shift not found")
		}
		// The index may lag; re-check the pool conditions on live data.
		if !shift.IsPublicPool || shift.Status != model.ShiftStatusPublished {
			return apperr.NotFound("shift_not_found", "public shift not found")
		}
		if shift.DeadlineOver(s.now()) {
			return apperr.DeadlinePassed("deadline_passed", "the application deadline has passed")
		}
		existing, err := tx.FindActiveApplication(shiftID, actor.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.DuplicateApplication("duplicate_application", "an active application for this shift already exists")
		}

		application = &model.Application{
			TenantID:     tenantID,
			ShiftID:      shiftID,
			UID:          actor.UID,
			Email:        email,
			Note:         note,
			Status:       model.ApplicationStatusPending,
			IsFreelancer: true,
		}
		if err := tx.CreateApplication(application); err != nil {
			return err
		}
		title = shift.Title

		ob.Audit(tenantID, actor.UID, "application.created", "application", application.ID, map[string]string{"shift_id": shiftID, "freelancer": "true"})
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.DuplicateApplication("duplicate_application", "an active application for this shift already exists")
	}
	if err != nil {
		return nil, err
	}

	s.queueManagerNotice(ctx, ob, tenantID, fmt.Sprintf("New freelancer application for %q", title))
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("apply_public")
	return application, nil
}

// Reject declines a pending application.
func (s *ApplicationService) Reject(ctx context.Context, actor Actor, applicationID string) (*model.Application, error) {
	defer prometheus.TrackOperation("application_reject")(time.Now())

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
		if app.Status != model.ApplicationStatusPending {
			return apperr.InvalidState("not_pending", "only pending applications can be rejected")
		}
		app.Status = model.ApplicationStatusRejected
		if err := tx.SaveApplication(app); err != nil {
			return err
		}
		application = app

		ob.NotifyOne(actor.TenantID, app.UID, fmt.Sprintf("Your application for %q was rejected", shiftLabel(tx, app.ShiftID)))
		ob.Audit(actor.TenantID, actor.UID, "application.rejected", "application", app.ID, map[string]string{"shift_id": app.ShiftID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("reject")
	return application, nil
}

// Unreject restores a rejected application to pending.
func (s *ApplicationService) Unreject(ctx context.Context, actor Actor, applicationID string) (*model.Application, error) {
	defer prometheus.TrackOperation("application_unreject")(time.Now())

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
		if app.Status != model.ApplicationStatusRejected {
			return apperr.InvalidState("not_rejected", "only rejected applications can be restored")
		}
		app.Status = model.ApplicationStatusPending
		if err := tx.SaveApplication(app); err != nil {
			return err
		}
		application = app

		ob.NotifyOne(actor.TenantID, app.UID, fmt.Sprintf("Your application for %q is pending again", shiftLabel(tx, app.ShiftID)))
		ob.Audit(actor.TenantID, actor.UID, "application.unrejected", "application", app.ID, map[string]string{"shift_id": app.ShiftID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("unreject")
	return application, nil
}

// Withdraw retires the actor's own pending application. Withdrawn
// applications are terminal and do not block re-application.
func (s *ApplicationService) Withdraw(ctx context.Context, actor Actor, applicationID string) (*model.Application, error) {
	return s.withdraw(ctx, actor, func(tx store.Tx) (*model.Application, error) {
		app, err := tx.GetApplication(applicationID)
		if err != nil {
			return nil, notFoundErr(err, "application_not_found", "application not found")
		}
		return app, nil
	})
}

// WithdrawByShift finds the actor's active application for a shift and
// withdraws it.
func (s *ApplicationService) WithdrawByShift(ctx context.Context, actor Actor, shiftID string) (*model.Application, error) {
	return s.withdraw(ctx, actor, func(tx store.Tx) (*model.Application, error) {
		app, err := tx.FindActiveApplication(shiftID, actor.UID)
		if err != nil {
			return nil, err
		}
		if app == nil {
			return nil, apperr.NotFound("application_not_found", "no application for this shift")
		}
		return app, nil
	})
}

func (s *ApplicationService) withdraw(ctx context.Context, actor Actor, locate func(tx store.Tx) (*model.Application, error)) (*model.Application, error) {
	defer prometheus.TrackOperation("application_withdraw")(time.Now())

	var (
		application *model.Application
		title       string
		ob          *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		app, err := locate(tx)
		if err != nil {
			return err
		}
		if app.UID != actor.UID {
			return apperr.Forbidden("not_applicant", "only the applicant can withdraw an application")
		}
		if app.Status != model.ApplicationStatusPending {
			return apperr.InvalidState("not_pending", "only pending applications can be withdrawn")
		}
		app.Status = model.ApplicationStatusWithdrawn
		if err := tx.SaveApplication(app); err != nil {
			return err
		}
		application = app
		title = shiftLabel(tx, app.ShiftID)

		ob.Audit(actor.TenantID, actor.UID, "application.withdrawn", "application", app.ID, map[string]string{"shift_id": app.ShiftID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.queueManagerNotice(ctx, ob, actor.TenantID, fmt.Sprintf("An application for %q was withdrawn", title))
	ob.Flush(ctx, s.core)

	prometheus.RecordApplicationOperation("withdraw")
	return application, nil
}

// ListByShift returns a shift's applications for review.
func (s *ApplicationService) ListByShift(ctx context.Context, actor Actor, shiftID string) ([]model.Application, error) {
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	return s.store.ListApplicationsByShift(ctx, actor.TenantID, shiftID)
}

// queueManagerNotice queues a notification to the tenant's admins and
// managers. Directory failures degrade to no notification.
func (s *core) queueManagerNotice(ctx context.Context, ob *outbox, tenantID, message string) {
	managers, err := s.members.ListMembersByRoles(ctx, tenantID, []string{model.RoleAdmin, model.RoleManager})
	if err != nil {
		logger.FromContext(ctx).Warn("manager listing failed for notification",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	var uids []string
	for _, m := range managers {
		uids = append(uids, m.UID)
	}
	ob.NotifyMany(tenantID, uids, message)
}
