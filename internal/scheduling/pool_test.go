package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

func (a *arena) seedBetaCompany() Actor {
	a.t.Helper()
	a.seedTenant("tnt_beta", "Beta Staffing")
	a.seedMember("tnt_beta", "usr_beta_mgr", model.RoleManager)
	return Actor{UID: "usr_beta_mgr", Email: "usr_beta_mgr@beta.test", TenantID: "tnt_beta", TenantName: "Beta Staffing", Role: model.RoleManager}
}

func TestListPublicPool(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	beta := a.seedBetaCompany()

	bar := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })
	stage := a.publishedShiftAs(beta, func(in *ShiftInput) {
		in.Title = "Stage crew"
		in.Location = model.Location{Name: "River Arena"}
		in.StartsAt = testNow.Add(48 * time.Hour)
		in.EndsAt = testNow.Add(54 * time.Hour)
		in.IsPublicPool = true
	})
	a.publishedShift() // private shift, never listed

	pool, err := a.svc.Pool.ListPublicPool(a.ctx, store.PoolFilter{})
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, bar.ID, pool[0].ID)
	assert.Equal(t, testTenantName, pool[0].TenantName)
	assert.Equal(t, stage.ID, pool[1].ID)
	assert.Equal(t, "Beta Staffing", pool[1].TenantName)

	pool, err = a.svc.Pool.ListPublicPool(a.ctx, store.PoolFilter{Location: "river"})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, stage.ID, pool[0].ID)

	pool, err = a.svc.Pool.ListPublicPool(a.ctx, store.PoolFilter{Query: "BAR"})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, bar.ID, pool[0].ID)

	from := testNow.Add(36 * time.Hour)
	pool, err = a.svc.Pool.ListPublicPool(a.ctx, store.PoolFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, stage.ID, pool[0].ID)

	to := testNow.Add(36 * time.Hour)
	pool, err = a.svc.Pool.ListPublicPool(a.ctx, store.PoolFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, bar.ID, pool[0].ID)
}

func TestFindPublicShift(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })

	found, err := a.svc.Pool.FindPublicShift(a.ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, sh.ID, found.ID)
	assert.Equal(t, testTenantName, found.TenantName)

	_, err = a.svc.Pool.FindPublicShift(a.ctx, "sft_missing")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListFreelancerApplications(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	beta := a.seedBetaCompany()
	a.seedFreelancer("usr_free", true, nil)

	acmeShift := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })
	betaShift := a.publishedShiftAs(beta, func(in *ShiftInput) { in.IsPublicPool = true })

	// Preset creation times pin the newest-first order.
	a.seedRaw(testTenant, func(tx store.Tx) error {
		return tx.CreateApplication(&model.Application{
			ShiftID:      acmeShift.ID,
			UID:          "usr_free",
			Email:        "usr_free@pool.test",
			Status:       model.ApplicationStatusPending,
			IsFreelancer: true,
			CreatedAt:    testNow.Add(-2 * time.Hour),
		})
	})
	a.seedRaw("tnt_beta", func(tx store.Tx) error {
		return tx.CreateApplication(&model.Application{
			ShiftID:      betaShift.ID,
			UID:          "usr_free",
			Email:        "usr_free@pool.test",
			Status:       model.ApplicationStatusPending,
			IsFreelancer: true,
			CreatedAt:    testNow.Add(-time.Hour),
		})
	})
	// An application whose shift row is gone is skipped, not fatal.
	a.seedRaw(testTenant, func(tx store.Tx) error {
		return tx.CreateApplication(&model.Application{
			ShiftID:      "sft_gone",
			UID:          "usr_free",
			Status:       model.ApplicationStatusPending,
			IsFreelancer: true,
			CreatedAt:    testNow.Add(-3 * time.Hour),
		})
	})

	apps, err := a.svc.Pool.ListFreelancerApplications(a.ctx, a.freelancer("usr_free"))
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, betaShift.ID, apps[0].Shift.ID)
	assert.Equal(t, "Beta Staffing", apps[0].TenantName)
	assert.Equal(t, acmeShift.ID, apps[1].Shift.ID)
	assert.Equal(t, testTenantName, apps[1].TenantName)
}

func TestListFreelancerShifts(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	beta := a.seedBetaCompany()
	a.seedFreelancer("usr_free", true, nil)

	first := a.publishedShift(func(in *ShiftInput) { in.IsPublicPool = true })
	later := a.publishedShiftAs(beta, func(in *ShiftInput) {
		in.IsPublicPool = true
		in.StartsAt = testNow.Add(48 * time.Hour)
		in.EndsAt = testNow.Add(54 * time.Hour)
	})
	doomed := a.publishedShift(func(in *ShiftInput) {
		in.IsPublicPool = true
		in.StartsAt = testNow.Add(72 * time.Hour)
		in.EndsAt = testNow.Add(78 * time.Hour)
	})

	for _, target := range []struct {
		shift   *model.Shift
		manager Actor
	}{
		{first, a.manager()},
		{later, beta},
		{doomed, a.manager()},
	} {
		app, err := a.svc.Applications.ApplyPublic(a.ctx, a.freelancer("usr_free"), target.shift.ID, nil)
		require.NoError(t, err)
		_, err = a.svc.Assignments.Accept(a.ctx, target.manager, app.ID)
		require.NoError(t, err)
	}
	_, err := a.svc.Shifts.Cancel(a.ctx, a.manager(), doomed.ID)
	require.NoError(t, err)

	shifts, err := a.svc.Pool.ListFreelancerShifts(a.ctx, a.freelancer("usr_free"), false)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, first.ID, shifts[0].ID)
	assert.Equal(t, testTenantName, shifts[0].TenantName)
	assert.Equal(t, later.ID, shifts[1].ID)
	assert.Equal(t, "Beta Staffing", shifts[1].TenantName)

	// Completed shifts drop out of the default view.
	a.now = first.EndsAt.Add(time.Hour)
	_, err = a.svc.Shifts.Complete(a.ctx, a.manager(), first.ID)
	require.NoError(t, err)
	a.now = testNow

	shifts, err = a.svc.Pool.ListFreelancerShifts(a.ctx, a.freelancer("usr_free"), false)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, later.ID, shifts[0].ID)

	shifts, err = a.svc.Pool.ListFreelancerShifts(a.ctx, a.freelancer("usr_free"), true)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, first.ID, shifts[0].ID)

	// A removed assignment takes its shift out of the list.
	assignments, err := a.store.ListAssignmentsByShift(a.ctx, "tnt_beta", later.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	_, err = a.svc.Assignments.Remove(a.ctx, beta, assignments[0].ID)
	require.NoError(t, err)

	shifts, err = a.svc.Pool.ListFreelancerShifts(a.ctx, a.freelancer("usr_free"), true)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, first.ID, shifts[0].ID)
}
