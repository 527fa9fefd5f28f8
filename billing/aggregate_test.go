package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundside/shift-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var rowOrder int

func testRow(t *testing.T, day time.Time, site, label string, atds ...string) billing.RawRow {
	t.Helper()
	rowOrder++
	r := billing.RawRow{
		Date:       day,
		Site:       billing.SiteCode(site),
		Operator:   "OP",
		ShiftLabel: label,
		Ref:        billing.RowRef{File: "plan.xlsx", Sheet: "Foglio1", Row: rowOrder, Order: rowOrder},
	}
	for _, s := range atds {
		ct, ok := billing.ParseClockTime(s)
		require.True(t, ok, "atd %q", s)
		r.ATD = append(r.ATD, ct)
	}
	return r
}

// =============================================================================
// BLOCK IDENTITY
// =============================================================================

func TestAggregate_BlockIdentityAcrossFiles(t *testing.T) {
	day := date(2025, time.August, 3)

	// GIVEN: The same duty spelled differently, in two different files
	r1 := testRow(t, day, "VRN", "08-11", "11:20")
	r1.Ref.File = "piano_a.xlsx"
	r2 := testRow(t, day, "VRN", "8.00-11.00", "11:35")
	r2.Ref.File = "piano_b.xlsx"

	// WHEN: Aggregating
	res := billing.Aggregate([]billing.RawRow{r1, r2})

	// THEN: One block, keyed by the canonical label, with both rows merged
	require.Len(t, res.Blocks, 1)
	b := res.Blocks[0]
	assert.Equal(t, "08:00-11:00", b.Label)
	assert.Len(t, b.Rows, 2)
	assert.Len(t, b.ATDs, 2)

	// AND: First-row values come from the lowest global order
	assert.Equal(t, "piano_a.xlsx", b.First.File)
}

func TestAggregate_DistinctKeysStaySeparate(t *testing.T) {
	day := date(2025, time.August, 3)

	// GIVEN: Same label on two sites, and two labels on one site
	rows := []billing.RawRow{
		testRow(t, day, "VRN", "08-11"),
		testRow(t, day, "BGY", "08-11"),
		testRow(t, day, "VRN", "14-18"),
	}

	res := billing.Aggregate(rows)
	assert.Len(t, res.Blocks, 3)
}

// =============================================================================
// FORWARD FILL
// =============================================================================

func TestAggregate_ForwardFillPerDate(t *testing.T) {
	day1 := date(2025, time.August, 3)
	day2 := date(2025, time.August, 4)

	// GIVEN: Empty labels interleaved across two dates
	rows := []billing.RawRow{
		testRow(t, day1, "VRN", "08-11"),
		testRow(t, day1, "VRN", ""), // inherits 08-11
		testRow(t, day2, "VRN", ""), // no label seen for day2 yet -> dropped
		testRow(t, day2, "VRN", "14-18"),
		testRow(t, day1, "VRN", ""), // still inherits day1's 08-11
	}

	res := billing.Aggregate(rows)

	// THEN: The fill never crosses a date boundary
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "08:00-11:00", res.Blocks[0].Label)
	assert.Len(t, res.Blocks[0].Rows, 3)
	assert.Equal(t, "14:00-18:00", res.Blocks[1].Label)
	assert.Len(t, res.Blocks[1].Rows, 1)

	// AND: The labelless day2 row is dropped, not guessed
	require.Len(t, res.Dropped, 1)
}

// =============================================================================
// DROPS AND FILTERS
// =============================================================================

func TestAggregate_MissingDateDropped(t *testing.T) {
	// GIVEN: A row with no usable date
	r := testRow(t, time.Time{}, "VRN", "08-11")

	res := billing.Aggregate([]billing.RawRow{r})

	// THEN: No block, but the drop is accounted for with its provenance
	assert.Empty(t, res.Blocks)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, r.Ref.Row, res.Dropped[0].Row)
}

func TestAggregate_SiteFilter(t *testing.T) {
	day := date(2025, time.August, 3)
	rows := []billing.RawRow{
		testRow(t, day, "VRN", "08-11"),
		testRow(t, day, "BGY", "08-11"),
	}

	// WHEN: Restricting the run to one site
	res := billing.Aggregate(rows, "VRN")

	// THEN: Other sites are silently excluded, not dropped
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, billing.SiteCode("VRN"), res.Blocks[0].Site)
	assert.Empty(t, res.Dropped)
}

// =============================================================================
// ERROR BLOCKS
// =============================================================================

func TestAggregate_UnparsableLabelsFormErrorBlocks(t *testing.T) {
	day := date(2025, time.August, 3)

	// GIVEN: Two rows with the same unparsable label
	rows := []billing.RawRow{
		testRow(t, day, "VRN", "RIPOSO"),
		testRow(t, day, "VRN", "RIPOSO"),
	}

	res := billing.Aggregate(rows)

	// THEN: They land in a single flagged block, keyed by the raw text
	require.Len(t, res.Blocks, 1)
	b := res.Blocks[0]
	assert.True(t, errors.Is(b.Err, billing.ErrShiftUnparsable))
	assert.Equal(t, "RIPOSO", b.Label)
	assert.Len(t, b.Rows, 2)

	require.Len(t, res.ErrorBlocks(), 1)
}

// =============================================================================
// HOLIDAY CELL
// =============================================================================

func TestAggregate_HolidayCellFromAnyRow(t *testing.T) {
	day := date(2025, time.August, 4) // ordinary Monday

	// GIVEN: Two rows of the same duty, only the second marked festivo
	r1 := testRow(t, day, "VRN", "08-11", "11:20")
	r2 := testRow(t, day, "VRN", "08-11", "11:35")
	r2.HolidayCell = "SI"

	// WHEN: Aggregating
	res := billing.Aggregate([]billing.RawRow{r1, r2})

	// THEN: The mark carries to the merged block
	require.Len(t, res.Blocks, 1)
	assert.True(t, billing.BlockIsHoliday(res.Blocks[0], billing.NewCalendar()))
}

func TestAggregate_HolidayCellTruthyWinsOverEarlierNo(t *testing.T) {
	day := date(2025, time.August, 4)

	// GIVEN: A first row explicitly marked "no" and a later festivo row
	r1 := testRow(t, day, "VRN", "08-11")
	r1.HolidayCell = "no"
	r2 := testRow(t, day, "VRN", "08-11")
	r2.HolidayCell = "SI"

	res := billing.Aggregate([]billing.RawRow{r1, r2})

	// THEN: One festivo row marks the whole block
	require.Len(t, res.Blocks, 1)
	assert.True(t, billing.BlockIsHoliday(res.Blocks[0], billing.NewCalendar()))
}

// =============================================================================
// DEPARTURE ANCHORING
// =============================================================================

func TestAggregate_AnchorsAfterMidnightDepartures(t *testing.T) {
	day := date(2025, time.August, 3)

	// GIVEN: A duty ending past midnight with one departure each side of it
	r := testRow(t, day, "VRN", "22:00-02:00", "23:50", "00:45")

	res := billing.Aggregate([]billing.RawRow{r})
	require.Len(t, res.Blocks, 1)
	b := res.Blocks[0]
	require.Len(t, b.ATDs, 2)

	// THEN: 23:50 stays on the block date, 00:45 rolls to the next day
	assert.Equal(t, day.Add(23*time.Hour+50*time.Minute), b.ATDs[0])
	assert.Equal(t, day.AddDate(0, 0, 1).Add(45*time.Minute), b.ATDs[1])
}

// =============================================================================
// ORDERING
// =============================================================================

func TestAggregate_Ordering(t *testing.T) {
	day1 := date(2025, time.August, 3)
	day2 := date(2025, time.August, 4)

	// GIVEN: Rows arriving date-interleaved and site-unsorted
	rows := []billing.RawRow{
		testRow(t, day2, "VRN", "08-11"),
		testRow(t, day1, "VRN", "14-18"),
		testRow(t, day1, "BGY", "08-11"),
		testRow(t, day1, "VRN", "08-11"),
	}

	res := billing.Aggregate(rows)
	require.Len(t, res.Blocks, 4)

	// THEN: Date first, then site, then first appearance
	got := make([]string, len(res.Blocks))
	for i, b := range res.Blocks {
		got[i] = billing.DayKey(b.Date) + " " + string(b.Site) + " " + b.Label
	}
	assert.Equal(t, []string{
		"2025-08-03 BGY 08:00-11:00",
		"2025-08-03 VRN 14:00-18:00",
		"2025-08-03 VRN 08:00-11:00",
		"2025-08-04 VRN 08:00-11:00",
	}, got)
}
