/*
handlers.go - HTTP API handlers for the shift billing engine

PURPOSE:
  Exposes the consolidation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Runs:
    POST   /api/runs                   Run a consolidation (JSON rows or
                                       multipart workbook upload); add
                                       ?format=xlsx for a workbook response

  Policies:
    GET    /api/policies               List registered tariffs
    GET    /api/policies/{id}          Get one tariff
    POST   /api/policies               Store a tariff from JSON
    DELETE /api/policies/{id}          Remove a stored tariff

  Holidays:
    GET    /api/holidays               List override dates
    POST   /api/holidays               Add an override date
    DELETE /api/holidays/{date}        Remove an override date

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Registry: Policy selection (presets plus stored tariffs)
  - Store: Tariff and holiday persistence
  - PolicyFactory: JSON to RatePolicy conversion

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (aggregator, engine, rollup)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Policy not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/factory"
	"github.com/groundside/shift-engine/spreadsheet"
	"github.com/groundside/shift-engine/store/sqlite"
	"github.com/groundside/shift-engine/tariff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Registry      *tariff.Registry
	Store         *sqlite.Store
	PolicyFactory *factory.PolicyFactory
}

// NewHandler creates a new handler. The store is optional; without it the
// policy and holiday endpoints serve the in-memory registry only.
func NewHandler(registry *tariff.Registry, store *sqlite.Store) *Handler {
	return &Handler{
		Registry:      registry,
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
	}
}

// =============================================================================
// RUN HANDLER
// =============================================================================

// CreateRun executes one consolidation run synchronously.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var (
		req     RunRequest
		rows    []billing.RawRow
		skipped []spreadsheet.SkippedSheet
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var err error
		req, rows, skipped, err = h.parseMultipartRun(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload", err)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		for i, dto := range req.Rows {
			rows = append(rows, toRawRow(dto, i+1, req.Operator))
		}
	}
	if len(rows) == 0 {
		writeError(w, http.StatusBadRequest, "No input rows", nil)
		return
	}

	sites := make([]billing.SiteCode, 0, len(req.Sites))
	for _, s := range req.Sites {
		sites = append(sites, billing.SiteCode(strings.ToUpper(strings.TrimSpace(s))))
	}
	agg := billing.Aggregate(rows, sites...)

	policy, err := h.resolvePolicy(req, agg.Blocks)
	if err != nil {
		writeError(w, http.StatusNotFound, "No rate policy for run", err)
		return
	}

	engine := billing.NewEngine(policy)
	engine.ExtraRounding = toRounding(req.ExtraRounding)
	engine.NightRounding = toRounding(req.NightRounding)
	if cal, err := h.runCalendar(r.Context(), req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid holiday override", err)
		return
	} else if cal != nil {
		engine.Calendar = cal
	}

	computed, err := engine.ComputeAll(r.Context(), agg.Blocks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Run cancelled", err)
		return
	}

	rollup := billing.Rollup(computed)
	discrepancies := billing.CompareAll(computed)

	if r.URL.Query().Get("format") == "xlsx" {
		data, err := spreadsheet.Write(&spreadsheet.RunOutput{
			Blocks:        computed,
			Rollup:        rollup,
			Discrepancies: discrepancies,
			Dropped:       agg.Dropped,
			Skipped:       skipped,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to render workbook", err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run-%s.xlsx", uuid.NewString()))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	resp := RunResponse{
		ID:          uuid.NewString(),
		Operator:    string(policy.Operator),
		PolicyID:    string(policy.ID),
		ErrorBlocks: rollup.ErrorBlocks,
		DroppedRows: len(agg.Dropped),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, cb := range computed {
		resp.Blocks = append(resp.Blocks, toBlockDTO(cb))
	}
	for _, l := range rollup.Lines {
		resp.Rollup = append(resp.Rollup, toRollupDTO(l))
	}
	for _, rec := range discrepancies {
		resp.Discrepancies = append(resp.Discrepancies, toDiscrepancyDTO(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseMultipartRun reads workbook uploads plus form fields into a run.
func (h *Handler) parseMultipartRun(r *http.Request) (RunRequest, []billing.RawRow, []spreadsheet.SkippedSheet, error) {
	const maxUpload = 64 << 20
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return RunRequest{}, nil, nil, err
	}

	req := RunRequest{
		Operator: r.FormValue("operator"),
		PolicyID: r.FormValue("policy_id"),
	}
	if sites := r.FormValue("sites"); sites != "" {
		req.Sites = strings.Split(sites, ",")
	}
	req.ExtraRounding = formRounding(r, "extra_rounding")
	req.NightRounding = formRounding(r, "night_rounding")

	reader := &spreadsheet.Reader{Operator: billing.OperatorID(strings.ToUpper(req.Operator))}
	var (
		rows    []billing.RawRow
		skipped []spreadsheet.SkippedSheet
	)
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return req, nil, nil, err
		}
		res, err := reader.Read(f, fh.Filename)
		f.Close()
		if err != nil {
			return req, nil, nil, err
		}
		rows = append(rows, res.Rows...)
		skipped = append(skipped, res.Skipped...)
	}
	return req, rows, skipped, nil
}

// resolvePolicy picks the tariff for a run: explicit policy ID first, then
// registry lookup by operator and the first clean block's site.
func (h *Handler) resolvePolicy(req RunRequest, blocks []*billing.Block) (*billing.RatePolicy, error) {
	if req.PolicyID != "" {
		if p := h.Registry.Get(billing.PolicyID(req.PolicyID)); p != nil {
			return p, nil
		}
		return nil, billing.ErrPolicyNotFound
	}

	operator := billing.OperatorID(strings.ToUpper(req.Operator))
	for _, b := range blocks {
		if b.Err == nil {
			return h.Registry.Lookup(operator, b.Site)
		}
	}
	return h.Registry.Lookup(operator, "")
}

// runCalendar builds the calendar for a run: request overrides win, then
// stored overrides, then nil for the engine default.
func (h *Handler) runCalendar(ctx context.Context, req RunRequest) (*billing.Calendar, error) {
	if len(req.HolidayOverride) > 0 {
		dates := make([]time.Time, 0, len(req.HolidayOverride))
		for _, d := range req.HolidayOverride {
			t, err := time.Parse("2006-01-02", strings.TrimSpace(d))
			if err != nil {
				return nil, fmt.Errorf("invalid date %q", d)
			}
			dates = append(dates, t)
		}
		return billing.NewOverrideCalendar(billing.NewHolidaySet(dates...)), nil
	}
	if h.Store != nil {
		set, err := h.Store.HolidaySet(ctx)
		if err == nil && len(set) > 0 {
			return billing.NewOverrideCalendar(set), nil
		}
	}
	return nil, nil
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns every registered tariff.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.Registry.All()
	dtos := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		dtos = append(dtos, PolicyDTO{
			ID:       string(p.ID),
			Name:     p.Name,
			Operator: string(p.Operator),
			Config:   h.PolicyFactory.ToJSON(p),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns a single tariff.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := h.Registry.Get(billing.PolicyID(id))
	if p == nil {
		writeError(w, http.StatusNotFound, "Policy not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, PolicyDTO{
		ID:       string(p.ID),
		Name:     p.Name,
		Operator: string(p.Operator),
		Config:   h.PolicyFactory.ToJSON(p),
	})
}

// CreatePolicy stores a tariff definition and registers it.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.PolicyFactory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}

	if h.Store != nil {
		configJSON, _ := json.Marshal(req.Config)
		if err := h.Store.SavePolicy(r.Context(), policy, string(configJSON)); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store policy", err)
			return
		}
	}
	h.Registry.Register(policy)

	writeJSON(w, http.StatusCreated, PolicyDTO{
		ID:       string(policy.ID),
		Name:     policy.Name,
		Operator: string(policy.Operator),
		Config:   req.Config,
	})
}

// DeletePolicy removes a stored tariff. The in-memory registry keeps its
// entry until restart; stored tariffs are authoritative across runs.
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusBadRequest, "No policy store configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Store.DeletePolicy(r.Context(), billing.PolicyID(id)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete policy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the stored override dates.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusOK, []HolidayDTO{})
		return
	}
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hd := range holidays {
		dtos = append(dtos, HolidayDTO{Date: billing.DayKey(hd.Date), Name: hd.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday stores an override date.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusBadRequest, "No holiday store configured", nil)
		return
	}
	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := time.Parse("2006-01-02", dto.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.SaveHoliday(r.Context(), sqlite.Holiday{Date: t, Name: dto.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteHoliday removes an override date.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusBadRequest, "No holiday store configured", nil)
		return
	}
	t, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.DeleteHoliday(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func toRounding(dto RoundingDTO) billing.Rounding {
	if dto.Mode == "" {
		return billing.NoRounding
	}
	return billing.Rounding{Mode: billing.RoundingMode(dto.Mode), Step: dto.Step}
}

func formRounding(r *http.Request, prefix string) RoundingDTO {
	dto := RoundingDTO{Mode: r.FormValue(prefix + "_mode")}
	if step := r.FormValue(prefix + "_step"); step != "" {
		dto.Step, _ = strconv.Atoi(step)
	}
	return dto
}

func itoa(n int) string { return strconv.Itoa(n) }

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
