package poolindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/internal/store/memory"
)

var scanNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedShift(t *testing.T, st *memory.Store, tenantID, title string, status model.ShiftStatus, public bool, startsIn time.Duration) *model.Shift {
	t.Helper()
	sh := &model.Shift{
		TenantID:      tenantID,
		Title:         title,
		Location:      model.Location{Name: "Festival Hall"},
		Status:        status,
		StartsAt:      scanNow.Add(startsIn),
		EndsAt:        scanNow.Add(startsIn + 6*time.Hour),
		RequiredCount: 2,
		IsPublicPool:  public,
	}
	require.NoError(t, st.CreateShift(context.Background(), sh))
	return sh
}

func newScanFixture(t *testing.T) (*Scan, *memory.Store) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.CreateTenant(ctx, &model.Tenant{ID: "tnt_acme", Name: "Acme Crewing", Active: true}))
	require.NoError(t, st.CreateTenant(ctx, &model.Tenant{ID: "tnt_beta", Name: "Beta Staffing", Active: true}))
	return NewScan(st), st
}

func TestScanListPublic(t *testing.T) {
	index, st := newScanFixture(t)
	ctx := context.Background()

	early := seedShift(t, st, "tnt_beta", "Stage crew", model.ShiftStatusPublished, true, 24*time.Hour)
	late := seedShift(t, st, "tnt_acme", "Bar staff", model.ShiftStatusPublished, true, 48*time.Hour)
	seedShift(t, st, "tnt_acme", "Private gig", model.ShiftStatusPublished, false, 24*time.Hour)
	seedShift(t, st, "tnt_acme", "Unpublished", model.ShiftStatusDraft, true, 24*time.Hour)

	pool, err := index.ListPublic(ctx, store.PoolFilter{})
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, early.ID, pool[0].ID)
	assert.Equal(t, "Beta Staffing", pool[0].TenantName)
	assert.Equal(t, late.ID, pool[1].ID)
	assert.Equal(t, "Acme Crewing", pool[1].TenantName)

	pool, err = index.ListPublic(ctx, store.PoolFilter{Query: "stage"})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, early.ID, pool[0].ID)

	from := scanNow.Add(36 * time.Hour)
	pool, err = index.ListPublic(ctx, store.PoolFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, late.ID, pool[0].ID)
}

func TestScanFindPublic(t *testing.T) {
	index, st := newScanFixture(t)
	ctx := context.Background()

	listed := seedShift(t, st, "tnt_beta", "Stage crew", model.ShiftStatusPublished, true, 24*time.Hour)
	private := seedShift(t, st, "tnt_acme", "Private gig", model.ShiftStatusPublished, false, 24*time.Hour)

	found, err := index.FindPublic(ctx, listed.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, listed.ID, found.ID)
	assert.Equal(t, "Beta Staffing", found.TenantName)

	found, err = index.FindPublic(ctx, private.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = index.FindPublic(ctx, "sft_missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestScanMaintenanceIsNoOp(t *testing.T) {
	index, st := newScanFixture(t)
	ctx := context.Background()

	sh := seedShift(t, st, "tnt_acme", "Bar staff", model.ShiftStatusPublished, true, 24*time.Hour)
	require.NoError(t, index.Remove(ctx, sh.ID))

	// The shift is still listed: reads go to the store, not a cache.
	pool, err := index.ListPublic(ctx, store.PoolFilter{})
	require.NoError(t, err)
	require.Len(t, pool, 1)

	require.NoError(t, index.Upsert(ctx, &model.PublicShift{Shift: *sh, TenantName: "Acme Crewing"}))
}
