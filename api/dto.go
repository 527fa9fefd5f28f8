/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/factory"
)

// =============================================================================
// RUN TYPES
// =============================================================================

// RoundingDTO selects a rounding policy in requests.
type RoundingDTO struct {
	Mode string `json:"mode"` // none, floor, ceiling, nearest
	Step int    `json:"step,omitempty"`
}

// RowDTO is one attendance row submitted inline, for clients that resolved
// their spreadsheets themselves.
type RowDTO struct {
	Date        string   `json:"date"` // YYYY-MM-DD
	Site        string   `json:"site"`
	Operator    string   `json:"operator,omitempty"`
	Shift       string   `json:"shift,omitempty"`
	ATD         []string `json:"atd,omitempty"`
	STD         []string `json:"std,omitempty"`
	Assistant   string   `json:"assistant,omitempty"`
	Holiday     string   `json:"holiday,omitempty"`
	RefTotal    *string  `json:"ref_total,omitempty"`
	RefExtraMin *int     `json:"ref_extra_min,omitempty"`
	RefNightMin *int     `json:"ref_night_min,omitempty"`
}

// RunRequest starts a consolidation run over inline rows. Workbook uploads
// use multipart form fields of the same names instead.
type RunRequest struct {
	Operator        string      `json:"operator"`
	PolicyID        string      `json:"policy_id,omitempty"`
	Sites           []string    `json:"sites,omitempty"`
	ExtraRounding   RoundingDTO `json:"extra_rounding,omitempty"`
	NightRounding   RoundingDTO `json:"night_rounding,omitempty"`
	HolidayOverride []string    `json:"holiday_override,omitempty"`
	Rows            []RowDTO    `json:"rows,omitempty"`
}

// BlockDTO is one computed block in run responses.
type BlockDTO struct {
	Date     string `json:"date"`
	Site     string `json:"site"`
	Shift    string `json:"shift"`
	RawShift string `json:"raw_shift,omitempty"`
	Rows     int    `json:"rows"`

	DurationMin      int    `json:"duration_min"`
	Base             string `json:"base"`
	ExtraRawMin      int    `json:"extra_raw_min"`
	ExtraBillableMin int    `json:"extra_billable_min"`
	Extra            string `json:"extra"`
	NightRawMin      int    `json:"night_raw_min"`
	NightBillableMin int    `json:"night_billable_min"`
	Night            string `json:"night"`
	Holiday          bool   `json:"holiday"`
	Total            string `json:"total"`

	Error string `json:"error,omitempty"`
}

// RollupLineDTO is one aggregate line in run responses.
type RollupLineDTO struct {
	Period           string `json:"period"`
	Site             string `json:"site,omitempty"`
	Blocks           int    `json:"blocks"`
	DurationMin      int    `json:"duration_min"`
	ExtraBillableMin int    `json:"extra_billable_min"`
	NightBillableMin int    `json:"night_billable_min"`
	Base             string `json:"base"`
	Extra            string `json:"extra"`
	Night            string `json:"night"`
	Total            string `json:"total"`
}

// DeltaDTO is one compared field of a discrepancy.
type DeltaDTO struct {
	Computed  string `json:"computed"`
	Reference string `json:"reference"`
	Delta     string `json:"delta"`
}

// DiscrepancyDTO reports one block whose reference values were compared.
type DiscrepancyDTO struct {
	Date     string    `json:"date"`
	Site     string    `json:"site"`
	Shift    string    `json:"shift"`
	File     string    `json:"file,omitempty"`
	Sheet    string    `json:"sheet,omitempty"`
	Row      int       `json:"row,omitempty"`
	ExtraMin *DeltaDTO `json:"extra_min,omitempty"`
	NightMin *DeltaDTO `json:"night_min,omitempty"`
	Total    *DeltaDTO `json:"total,omitempty"`
}

// RunResponse is the full outcome of one consolidation run.
type RunResponse struct {
	ID       string `json:"id"`
	Operator string `json:"operator"`
	PolicyID string `json:"policy_id"`

	Blocks        []BlockDTO       `json:"blocks"`
	Rollup        []RollupLineDTO  `json:"rollup"`
	Discrepancies []DiscrepancyDTO `json:"discrepancies,omitempty"`

	ErrorBlocks int `json:"error_blocks"`
	DroppedRows int `json:"dropped_rows"`

	CreatedAt string `json:"created_at"`
}

// =============================================================================
// POLICY TYPES
// =============================================================================

// PolicyDTO represents a tariff in API responses.
type PolicyDTO struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Operator string             `json:"operator"`
	Config   factory.PolicyJSON `json:"config"`
}

// CreatePolicyRequest stores a tariff definition.
type CreatePolicyRequest struct {
	Config factory.PolicyJSON `json:"config"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

// HolidayDTO is one override holiday date.
type HolidayDTO struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBlockDTO(cb *billing.ComputedBlock) BlockDTO {
	b := cb.Block
	dto := BlockDTO{
		Date:             billing.DayKey(b.Date),
		Site:             string(b.Site),
		Shift:            b.Label,
		RawShift:         b.RawLabel,
		Rows:             len(b.Rows),
		DurationMin:      cb.DurationMin,
		Base:             cb.BaseCost.StringFixed(2),
		ExtraRawMin:      cb.ExtraRawMin,
		ExtraBillableMin: cb.ExtraBillableMin,
		Extra:            cb.ExtraCost.StringFixed(2),
		NightRawMin:      cb.NightRawMin(),
		NightBillableMin: cb.NightBillableMin,
		Night:            cb.NightCost.StringFixed(2),
		Holiday:          cb.Holiday,
		Total:            cb.Total.StringFixed(2),
	}
	if cb.Err != nil {
		dto.Error = cb.Err.Error()
	}
	return dto
}

func toRollupDTO(l *billing.RollupLine) RollupLineDTO {
	return RollupLineDTO{
		Period:           string(l.Period),
		Site:             string(l.Site),
		Blocks:           l.Blocks,
		DurationMin:      l.DurationMin,
		ExtraBillableMin: l.ExtraBillableMin,
		NightBillableMin: l.NightBillableMin,
		Base:             l.BaseCost.StringFixed(2),
		Extra:            l.ExtraCost.StringFixed(2),
		Night:            l.NightCost.StringFixed(2),
		Total:            l.Total.StringFixed(2),
	}
}

func toDiscrepancyDTO(rec *billing.DiscrepancyRecord) DiscrepancyDTO {
	dto := DiscrepancyDTO{
		Date:  rec.Key.Date,
		Site:  string(rec.Key.Site),
		Shift: rec.Key.Label,
		File:  rec.First.File,
		Sheet: rec.First.Sheet,
		Row:   rec.First.Row,
	}
	if rec.ExtraMin != nil {
		dto.ExtraMin = minutesDeltaDTO(rec.ExtraMin)
	}
	if rec.NightMin != nil {
		dto.NightMin = minutesDeltaDTO(rec.NightMin)
	}
	if rec.Total != nil {
		dto.Total = &DeltaDTO{
			Computed:  rec.Total.Computed.StringFixed(2),
			Reference: rec.Total.Reference.StringFixed(2),
			Delta:     rec.Total.Delta.StringFixed(2),
		}
	}
	return dto
}

func minutesDeltaDTO(d *billing.MinutesDelta) *DeltaDTO {
	return &DeltaDTO{
		Computed:  itoa(d.Computed),
		Reference: itoa(d.Reference),
		Delta:     itoa(d.Delta),
	}
}

func toRawRow(dto RowDTO, order int, defaultOperator string) billing.RawRow {
	row := billing.RawRow{
		Site:        billing.SiteCode(dto.Site),
		Operator:    billing.OperatorID(defaultOperator),
		ShiftLabel:  dto.Shift,
		Assistant:   dto.Assistant,
		HolidayCell: dto.Holiday,
		RefExtraMin: dto.RefExtraMin,
		RefNightMin: dto.RefNightMin,
		Ref:         billing.RowRef{File: "inline", Row: order, Order: order},
	}
	if dto.Operator != "" {
		row.Operator = billing.OperatorID(dto.Operator)
	}
	if t, err := time.Parse("2006-01-02", dto.Date); err == nil {
		row.Date = billing.Day(t)
	}
	for _, s := range dto.ATD {
		if ct, ok := billing.ParseClockTime(s); ok {
			row.ATD = append(row.ATD, ct)
		}
	}
	for _, s := range dto.STD {
		if ct, ok := billing.ParseClockTime(s); ok {
			row.STD = append(row.STD, ct)
		}
	}
	if dto.RefTotal != nil {
		if d, err := parseDecimal(*dto.RefTotal); err == nil {
			row.RefTotal = &d
		}
	}
	return row
}
