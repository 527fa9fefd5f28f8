package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/groundside/shift-engine/api"
	"github.com/groundside/shift-engine/factory"
	"github.com/groundside/shift-engine/store/sqlite"
	"github.com/groundside/shift-engine/tariff"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(tariff.DefaultRegistry(), store)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func runRequest() api.RunRequest {
	return api.RunRequest{
		Operator: "SEASON",
		Rows: []api.RowDTO{
			{Date: "2025-08-03", Site: "VRN", Shift: "09:00-17:00", ATD: []string{"17:42"}},
			{Date: "2025-08-03", Site: "VRN", Shift: "09:00-17:00"},
			{Date: "2025-08-20", Site: "BGY", Shift: "RIPOSO"},
		},
	}
}

// =============================================================================
// RUNS
// =============================================================================

func TestCreateRun_JSONRows(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/runs", runRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run api.RunResponse
	decode(t, resp, &run)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "SEASON", run.Operator)
	assert.Equal(t, "season-std", run.PolicyID)

	// Two rows with the same (date, site, shift) merged into one block
	require.Len(t, run.Blocks, 2)
	block := run.Blocks[0]
	assert.Equal(t, "09:00-17:00", block.Shift)
	assert.Equal(t, 2, block.Rows)
	assert.Equal(t, 42, block.ExtraBillableMin)
	// 75 base + 75 overage + 12.60 extra
	assert.Equal(t, "162.60", block.Total)

	// The unparsable block is reported, not billed
	assert.NotEmpty(t, run.Blocks[1].Error)
	assert.Equal(t, 1, run.ErrorBlocks)

	// Rollup includes the month all-sites line
	var month *api.RollupLineDTO
	for i := range run.Rollup {
		if run.Rollup[i].Period == "MESE" && run.Rollup[i].Site == "" {
			month = &run.Rollup[i]
		}
	}
	require.NotNil(t, month)
	assert.Equal(t, 1, month.Blocks)
	assert.Equal(t, "162.60", month.Total)
}

func TestCreateRun_NoRows(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/runs", api.RunRequest{Operator: "SEASON"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_UnknownPolicy(t *testing.T) {
	srv := newTestServer(t)

	req := runRequest()
	req.PolicyID = "missing"
	resp := postJSON(t, srv.URL+"/api/runs", req)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRun_HolidayOverride(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: An override naming the run's only date
	req := api.RunRequest{
		Operator:        "SEASON",
		HolidayOverride: []string{"2025-08-03"},
		Rows: []api.RowDTO{
			{Date: "2025-08-03", Site: "VRN", Shift: "09:00-12:00"},
		},
	}
	resp := postJSON(t, srv.URL+"/api/runs", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run api.RunResponse
	decode(t, resp, &run)
	require.Len(t, run.Blocks, 1)

	// THEN: The block is surcharged as a holiday (75 * 1.2)
	assert.True(t, run.Blocks[0].Holiday)
	assert.Equal(t, "90.00", run.Blocks[0].Total)
}

func TestCreateRun_WorkbookResponse(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/runs?format=xlsx", runRequest())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	// The body is a readable workbook with the detail sheet
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "DETTAGLIO")
}

// =============================================================================
// POLICIES
// =============================================================================

func TestPolicies_ListAndGet(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/policies")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []api.PolicyDTO
	decode(t, resp, &list)
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	assert.Contains(t, ids, "season-std")
	assert.Contains(t, ids, "charter-flat")

	resp, err = http.Get(srv.URL + "/api/policies/season-std")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p api.PolicyDTO
	decode(t, resp, &p)
	assert.Equal(t, "SEASON", p.Operator)
	assert.Equal(t, 180, p.Config.Base.MinimumBandMin)

	resp, err = http.Get(srv.URL + "/api/policies/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPolicies_CreateAndRun(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: A new tariff stored through the API
	pf := factory.NewPolicyFactory()
	config := pf.ToJSON(tariff.StandardSeasonPolicy("custom-op", "Custom", "CUSTOM", 60, 12, 15))
	resp := postJSON(t, srv.URL+"/api/policies", api.CreatePolicyRequest{Config: config})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// THEN: A run for its operator resolves it immediately
	req := api.RunRequest{
		Operator: "CUSTOM",
		Rows:     []api.RowDTO{{Date: "2025-08-03", Site: "VRN", Shift: "09:00-12:00"}},
	}
	resp = postJSON(t, srv.URL+"/api/runs", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run api.RunResponse
	decode(t, resp, &run)
	assert.Equal(t, "custom-op", run.PolicyID)
	require.Len(t, run.Blocks, 1)
	assert.Equal(t, "60.00", run.Blocks[0].Total)
}

func TestPolicies_Delete(t *testing.T) {
	srv := newTestServer(t)

	pf := factory.NewPolicyFactory()
	config := pf.ToJSON(tariff.StandardSeasonPolicy("doomed", "Doomed", "DOOMED", 60, 12, 15))
	resp := postJSON(t, srv.URL+"/api/policies", api.CreatePolicyRequest{Config: config})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/policies/doomed", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_CRUD(t *testing.T) {
	srv := newTestServer(t)

	// Create
	resp := postJSON(t, srv.URL+"/api/holidays", api.HolidayDTO{Date: "2025-07-14", Name: "chiusura"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Bad date
	resp = postJSON(t, srv.URL+"/api/holidays", api.HolidayDTO{Date: "14/07/2025"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// List
	got, err := http.Get(srv.URL + "/api/holidays")
	require.NoError(t, err)
	var list []api.HolidayDTO
	decode(t, got, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-07-14", list[0].Date)

	// Delete
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/holidays/2025-07-14", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	got, err = http.Get(srv.URL + "/api/holidays")
	require.NoError(t, err)
	list = nil
	decode(t, got, &list)
	assert.Empty(t, list)
}
