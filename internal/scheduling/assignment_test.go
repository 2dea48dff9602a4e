package scheduling

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

func TestAcceptApplication(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	app := a.apply("usr_worker", sh.ID)
	a.resetSideEffects()

	result, err := a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusAccepted, result.Application.Status)
	assert.Equal(t, model.AssignmentStatusConfirmed, result.Assignment.Status)
	assert.True(t, strings.HasPrefix(result.Assignment.ID, "asg_"))
	assert.Equal(t, "usr_worker", result.Assignment.UID)
	assert.Equal(t, 1, a.getShift(sh.ID).FilledCount)
	assert.Equal(t, 1, a.audit.countAction("application.accepted"))

	notices := a.notify.find("You were assigned")
	require.Len(t, notices, 1)
	assert.Equal(t, testTenant, notices[0].TenantID)
	assert.Equal(t, []string{"usr_worker"}, notices[0].Recipients)
}

func TestAcceptReplay(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	app := a.apply("usr_worker", sh.ID)
	a.resetSideEffects()

	first, err := a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	sentAfterFirst := len(a.notify.all())

	second, err := a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Assignment.ID, second.Assignment.ID)
	assert.Equal(t, 1, a.getShift(sh.ID).FilledCount)
	assert.Equal(t, 1, a.audit.countAction("application.accepted"))
	assert.Len(t, a.notify.all(), sentAfterFirst)
}

func TestAcceptGuards(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	_, err := a.svc.Assignments.Accept(a.ctx, a.manager(), "app_missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	rejected := a.apply("usr_worker", sh.ID)
	_, err = a.svc.Applications.Reject(a.ctx, a.manager(), rejected.ID)
	require.NoError(t, err)
	_, err = a.svc.Assignments.Accept(a.ctx, a.manager(), rejected.ID)
	assert.Equal(t, "not_pending", apperr.CodeOf(err))

	pending := a.apply("usr_worker2", sh.ID)
	_, err = a.svc.Shifts.Close(a.ctx, a.manager(), sh.ID)
	require.NoError(t, err)
	_, err = a.svc.Assignments.Accept(a.ctx, a.manager(), pending.ID)
	assert.Equal(t, "shift_not_published", apperr.CodeOf(err))
}

func TestAcceptDriftedAcceptedApplication(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	// An accepted application whose assignment is gone is data drift, not
	// a replay; it must not mint a new assignment.
	var appID string
	a.seedRaw(testTenant, func(tx store.Tx) error {
		app := &model.Application{ShiftID: sh.ID, UID: "usr_worker", Status: model.ApplicationStatusAccepted}
		if err := tx.CreateApplication(app); err != nil {
			return err
		}
		appID = app.ID
		return nil
	})

	_, err := a.svc.Assignments.Accept(a.ctx, a.manager(), appID)
	assert.Equal(t, "not_pending", apperr.CodeOf(err))
}

func TestAcceptCapacity(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift(func(in *ShiftInput) { in.RequiredCount = 1 })
	first := a.apply("usr_worker", sh.ID)
	second := a.apply("usr_worker2", sh.ID)

	_, err := a.svc.Assignments.Accept(a.ctx, a.manager(), first.ID)
	require.NoError(t, err)

	_, err = a.svc.Assignments.Accept(a.ctx, a.manager(), second.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCapacityExceeded))
	assert.Equal(t, "shift_full", apperr.CodeOf(err))
	assert.Equal(t, 1, a.getShift(sh.ID).FilledCount)

	apps, err := a.store.ListApplicationsByShift(a.ctx, testTenant, sh.ID)
	require.NoError(t, err)
	for _, app := range apps {
		if app.ID == second.ID {
			assert.Equal(t, model.ApplicationStatusPending, app.Status)
		}
	}
}

func TestAcceptCapacityRace(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift(func(in *ShiftInput) { in.RequiredCount = 1 })
	appA := a.apply("usr_worker", sh.ID)
	appB := a.apply("usr_worker2", sh.ID)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []string{appA.ID, appB.ID} {
		wg.Add(1)
		go func(applicationID string) {
			defer wg.Done()
			_, err := a.svc.Assignments.Accept(a.ctx, a.manager(), applicationID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var won, full int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case apperr.IsKind(err, apperr.KindCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, a.getShift(sh.ID).FilledCount)
}

func TestRevoke(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	result := a.acceptedWorker("usr_worker", sh.ID)
	a.resetSideEffects()

	app, err := a.svc.Assignments.Revoke(a.ctx, a.manager(), result.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)
	assert.Equal(t, 0, a.getShift(sh.ID).FilledCount)
	assert.Equal(t, 1, a.audit.countAction("application.revoked"))

	assignments, err := a.store.ListAssignmentsByShift(a.ctx, testTenant, sh.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, model.AssignmentStatusCancelled, assignments[0].Status)
	require.NotNil(t, assignments[0].CancelledAt)
	assert.True(t, assignments[0].CancelledAt.Equal(testNow))

	// Revoke is a silent correction; the worker is not notified.
	assert.Empty(t, a.notify.all())
}

func TestRevokeGuards(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	pending := a.apply("usr_worker", sh.ID)

	_, err := a.svc.Assignments.Revoke(a.ctx, a.manager(), pending.ID)
	assert.Equal(t, "not_accepted", apperr.CodeOf(err))

	_, err = a.svc.Assignments.Revoke(a.ctx, a.manager(), "app_missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRevokeDriftedCount(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	// Accepted application, no assignment, count already at zero: the
	// revoke must not push the count negative.
	var appID string
	a.seedRaw(testTenant, func(tx store.Tx) error {
		app := &model.Application{ShiftID: sh.ID, UID: "usr_worker", Status: model.ApplicationStatusAccepted}
		if err := tx.CreateApplication(app); err != nil {
			return err
		}
		appID = app.ID
		return nil
	})

	app, err := a.svc.Assignments.Revoke(a.ctx, a.manager(), appID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)
	assert.Equal(t, 0, a.getShift(sh.ID).FilledCount)
}

func TestAssignDirect(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	assignment, err := a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusConfirmed, assignment.Status)
	assert.Equal(t, 1, a.getShift(sh.ID).FilledCount)
	assert.Equal(t, 1, a.audit.countAction("assignment.created"))

	notices := a.notify.find("You were assigned")
	require.Len(t, notices, 1)
	assert.Equal(t, []string{"usr_worker"}, notices[0].Recipients)
}

func TestAssignDirectToDraft(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.draftShift()

	assignment, err := a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusConfirmed, assignment.Status)
}

func TestAssignDirectGuards(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	_, err := a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_ghost")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "member_not_found", apperr.CodeOf(err))

	closed := a.shiftInState(model.ShiftStatusClosed)
	_, err = a.svc.Assignments.AssignDirect(a.ctx, a.manager(), closed.ID, "usr_worker")
	assert.Equal(t, "not_assignable", apperr.CodeOf(err))

	_, err = a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	require.NoError(t, err)
	_, err = a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	assert.Equal(t, "already_assigned", apperr.CodeOf(err))
}

func TestAssignDirectCapacityCheckedFirst(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift(func(in *ShiftInput) { in.RequiredCount = 1 })
	_, err := a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	require.NoError(t, err)

	// The shift is both full and already staffed with usr_worker; the
	// capacity answer wins.
	_, err = a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	assert.True(t, apperr.IsKind(err, apperr.KindCapacityExceeded))

	_, err = a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker2")
	assert.True(t, apperr.IsKind(err, apperr.KindCapacityExceeded))
}

func TestRemoveAssignment(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	result := a.acceptedWorker("usr_worker", sh.ID)
	a.resetSideEffects()

	removed, err := a.svc.Assignments.Remove(a.ctx, a.manager(), result.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusCancelled, removed.Status)
	require.NotNil(t, removed.CancelledAt)
	assert.Equal(t, 0, a.getShift(sh.ID).FilledCount)
	assert.Equal(t, 1, a.audit.countAction("assignment.removed"))

	// The accepted application returns to pending for re-decision.
	apps, err := a.store.ListApplicationsByShift(a.ctx, testTenant, sh.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, model.ApplicationStatusPending, apps[0].Status)

	notices := a.notify.find("You were removed")
	require.Len(t, notices, 1)
	assert.Equal(t, []string{"usr_worker"}, notices[0].Recipients)

	_, err = a.svc.Assignments.Remove(a.ctx, a.manager(), result.Assignment.ID)
	assert.Equal(t, "not_confirmed", apperr.CodeOf(err))

	_, err = a.svc.Assignments.Remove(a.ctx, a.manager(), "asg_missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRemoveDirectAssignmentWithoutApplication(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	assignment, err := a.svc.Assignments.AssignDirect(a.ctx, a.manager(), sh.ID, "usr_worker")
	require.NoError(t, err)

	_, err = a.svc.Assignments.Remove(a.ctx, a.manager(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.getShift(sh.ID).FilledCount)
}

func TestAcceptFreelancerProvisionsMember(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	a.seedTenant("tnt_home", "Freelancer Home")
	a.seedFreelancer("usr_free", true, strPtr("tnt_home"))
	sh := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })

	app, err := a.svc.Applications.ApplyPublic(a.ctx, a.freelancer("usr_free"), sh.ID, nil)
	require.NoError(t, err)
	a.resetSideEffects()

	result, err := a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusConfirmed, result.Assignment.Status)

	member, err := a.store.GetMember(a.ctx, testTenant, "usr_free")
	require.NoError(t, err)
	assert.True(t, member.Provisioned)
	assert.Equal(t, model.RoleMember, member.Role)
	assert.Equal(t, "usr_free@pool.test", member.Email)

	// The freelancer is notified in their home tenant's context.
	notices := a.notify.find("You were assigned")
	require.Len(t, notices, 1)
	assert.Equal(t, "tnt_home", notices[0].TenantID)
	assert.Equal(t, []string{"usr_free"}, notices[0].Recipients)
}

func TestAcceptFreelancerProvisionIdempotent(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	a.seedFreelancer("usr_free", true, nil)
	sh := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })

	app, err := a.svc.Applications.ApplyPublic(a.ctx, a.freelancer("usr_free"), sh.ID, nil)
	require.NoError(t, err)

	_, err = a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	_, err = a.svc.Assignments.Revoke(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)
	a.resetSideEffects()

	_, err = a.svc.Assignments.Accept(a.ctx, a.manager(), app.ID)
	require.NoError(t, err)

	members, err := a.store.ListMembers(a.ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, members, 6)

	// No home tenant configured, so the notice stays in the granting tenant.
	notices := a.notify.find("You were assigned")
	require.Len(t, notices, 1)
	assert.Equal(t, testTenant, notices[0].TenantID)
}
