/*
Package billing provides the core shift-billing engine.

PURPOSE:
  This package contains the operator-agnostic types and algorithms for turning
  raw attendance rows from ground-handling work plans into priced billing
  blocks. Whatever the contracting operator, the same engine handles shift
  label parsing, row aggregation, night/extra minute computation and holiday
  surcharges; operators differ only in the data-only RatePolicy they supply.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRow: One spreadsheet record, immutable once read
  - Block: The billing unit - all rows for one (date, site, normalized shift)
  - ComputedBlock: A Block plus its four cost components and total
  - RowRef: Provenance of a row (file, sheet, row index, global order)

DESIGN PRINCIPLES:
  1. Immutability: Blocks are frozen after aggregation, ComputedBlocks after
     computation
  2. Precision: Uses decimal.Decimal for money; minute arithmetic stays exact
  3. No silent drops: malformed rows surface as flagged blocks or counted
     drops, never disappear

SEE ALSO:
  - shift.go: Shift label parsing
  - aggregate.go: Row-to-block aggregation
  - engine.go: Cost computation
  - policy.go: RatePolicy definition
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// SiteCode identifies an airport/site, e.g. "VRN" or "BGY".
type SiteCode string

// OperatorID identifies a contracting operator whose tariff governs pricing.
type OperatorID string

// PolicyID identifies a rate policy.
type PolicyID string

// =============================================================================
// RAW ROW - One spreadsheet record
// =============================================================================

// RowRef records where a row came from. Order is the global read order across
// files and sheets and drives first-seen block ordering.
type RowRef struct {
	File  string
	Sheet string
	Row   int
	Order int
}

// RawRow is one attendance record as resolved by the column adapter.
// A zero Date means the source row carried no usable date.
type RawRow struct {
	Date       time.Time // midnight, UTC
	Site       SiteCode
	Operator   OperatorID
	ShiftLabel string // free text; empty means "inherit via forward-fill"
	ATD        []ClockTime
	STD        []ClockTime
	Assistant  string

	// HolidayCell is the raw is-holiday cell. Non-empty values take
	// precedence over the calendar for this row's date.
	HolidayCell string

	// Reference values carried on the source row, used only by the
	// discrepancy reporter. Nil when the source had none.
	RefTotal    *decimal.Decimal
	RefExtraMin *int
	RefNightMin *int

	Ref RowRef
}

// =============================================================================
// BLOCK - The billing unit
// =============================================================================

// Block groups every row sharing (date, site, normalized shift label).
// Identity is that triple; origin file/sheet never splits a block.
type Block struct {
	Date     time.Time
	Site     SiteCode
	Operator OperatorID

	// Label is the canonical HH:MM-HH:MM grouping key. RawLabel is the
	// forward-filled source text, Prefix any leading code ("SC1", "AV").
	Label    string
	RawLabel string
	Prefix   string

	Shift      ShiftInterval
	NoOvertime bool

	Rows []RawRow

	// ATDs/STDs are every departure instant contributed by member rows,
	// anchored to the block date (values before shift start roll forward
	// one day).
	ATDs []time.Time
	STDs []time.Time

	// Reference values come from the first row of the block (lowest global
	// order). The holiday cell is carried from any member row: a festivo
	// mark anywhere in the block marks the whole block.
	HolidayCell string
	RefTotal    *decimal.Decimal
	RefExtraMin *int
	RefNightMin *int

	First RowRef

	// Err is non-nil for error blocks (unparsable shift label). Error
	// blocks are priced at zero but still appear in the output.
	Err error
}

// Key returns the block identity triple.
func (b *Block) Key() BlockKey {
	return BlockKey{Date: DayKey(b.Date), Site: b.Site, Label: b.Label}
}

// BlockKey is the comparable identity of a Block.
type BlockKey struct {
	Date  string
	Site  SiteCode
	Label string
}

// =============================================================================
// COMPUTED BLOCK - Terminal pricing result
// =============================================================================

// ComputedBlock is a Block plus its cost breakdown. It is the terminal
// entity of the pipeline and is never mutated after computation.
type ComputedBlock struct {
	Block *Block

	DurationMin int

	BaseCost decimal.Decimal

	// ChosenExtra is the departure instant the extra window was computed
	// from, nil when no qualifying ATD/STD existed or overtime was waived.
	ChosenExtra *time.Time

	ExtraRawMin      int
	ExtraBillableMin int
	ExtraCost        decimal.Decimal

	NightShiftRawMin int // night minutes inside the shift interval
	NightExtraRawMin int // night minutes inside the extra interval
	NightBillableMin int
	NightCost        decimal.Decimal

	Holiday bool
	Total   decimal.Decimal

	// Err marks blocks excluded from totals: either the aggregation error
	// carried over from the Block, or a pricing failure such as a duration
	// below the policy's minimum band.
	Err error
}

// NightRawMin is the summed raw night overlap before rounding.
func (c *ComputedBlock) NightRawMin() int {
	return c.NightShiftRawMin + c.NightExtraRawMin
}

// Money rounds a decimal to the smallest currency unit. Component values are
// passed through this exactly once, at the end of their computation.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
