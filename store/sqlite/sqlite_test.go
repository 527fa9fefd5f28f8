package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/factory"
	"github.com/groundside/shift-engine/store/sqlite"
	"github.com/groundside/shift-engine/tariff"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func savePreset(t *testing.T, store *sqlite.Store, p *billing.RatePolicy) {
	t.Helper()
	pj := factory.NewPolicyFactory().ToJSON(p)
	data, err := json.Marshal(pj)
	require.NoError(t, err)
	require.NoError(t, store.SavePolicy(context.Background(), p, string(data)))
}

// =============================================================================
// POLICY STORE
// =============================================================================

func TestStore_SaveAndGetPolicy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: A stored tariff
	orig := tariff.StandardSeasonPolicy("season", "Season", "OP", 75, 15, 18)
	savePreset(t, store, orig)

	// WHEN: Reading it back
	got, err := store.GetPolicy(ctx, "season")
	require.NoError(t, err)
	require.NotNil(t, got)

	// THEN: It round-trips through its JSON definition
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Operator, got.Operator)
	assert.Equal(t, orig.Base.MinimumBandMin, got.Base.MinimumBandMin)
	assert.True(t, got.Base.MinimumBandPrice().Equal(orig.Base.MinimumBandPrice()))

	// AND: An absent ID is nil, not an error
	missing, err := store.GetPolicy(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_SavePolicyBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := tariff.StandardSeasonPolicy("season", "Season", "OP", 75, 15, 18)
	savePreset(t, store, p)

	// WHEN: Saving the same ID again with a changed name
	p.Name = "Season v2"
	savePreset(t, store, p)

	records, err := store.ListPolicyRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Season v2", records[0].Name)
	assert.Equal(t, 2, records[0].Version)
}

func TestStore_DeletePolicy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	savePreset(t, store, tariff.StandardSeasonPolicy("season", "Season", "OP", 75, 15, 18))
	require.NoError(t, store.DeletePolicy(ctx, "season"))

	got, err := store.GetPolicy(ctx, "season")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LoadRegistry(t *testing.T) {
	store := newTestStore(t)

	savePreset(t, store, tariff.StandardSeasonPolicy("stored-a", "A", "OPA", 75, 15, 18))
	savePreset(t, store, tariff.CharterBlockPolicy("stored-b", "B", "OPB", 100, 18, 0.12))

	// WHEN: Layering the stored tariffs onto a registry
	reg := tariff.NewRegistry()
	require.NoError(t, store.LoadRegistry(context.Background(), reg.Register))

	assert.NotNil(t, reg.Get("stored-a"))
	assert.NotNil(t, reg.Get("stored-b"))
}

// =============================================================================
// HOLIDAY OVERRIDE STORE
// =============================================================================

func TestStore_Holidays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)

	// GIVEN: A stored override, saved twice with a rename
	require.NoError(t, store.SaveHoliday(ctx, sqlite.Holiday{Date: day, Name: "chiusura"}))
	require.NoError(t, store.SaveHoliday(ctx, sqlite.Holiday{Date: day, Name: "chiusura scalo"}))

	list, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, day, list[0].Date)
	assert.Equal(t, "chiusura scalo", list[0].Name)

	// AND: The set view feeds the override calendar
	set, err := store.HolidaySet(ctx)
	require.NoError(t, err)
	assert.True(t, set.Contains(day))

	// WHEN: Deleting the date
	require.NoError(t, store.DeleteHoliday(ctx, day))
	set, err = store.HolidaySet(ctx)
	require.NoError(t, err)
	assert.False(t, set.Contains(day))
}
