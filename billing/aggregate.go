/*
aggregate.go - Row-to-block aggregation

PURPOSE:
  Turns the flat stream of RawRows read from work plans into billing Blocks.
  A Block collects every row sharing (date, site, normalized shift label);
  the origin file or sheet never splits a block, so the same duty typed into
  two workbooks still bills once.

PIPELINE:
  1. Forward-fill: an empty shift label inherits the last non-empty label
     seen for the SAME date, in global read order
  2. Parse the label into a canonical HH:MM-HH:MM key (unparsable labels
     still form blocks, flagged with Err)
  3. Group by (date, site, canonical label); anchor each ATD/STD onto the
     block date, rolling instants before shift start forward one day
  4. Order blocks by date, then site, then first appearance

  Rows without a usable date cannot join any block. They are dropped from
  aggregation but counted and reported on the result.
*/
package billing

import (
	"sort"
	"time"
)

// =============================================================================
// AGGREGATION RESULT
// =============================================================================

// AggregateResult is the outcome of one aggregation pass.
type AggregateResult struct {
	Blocks []*Block

	// Dropped lists the provenance of rows excluded for missing dates.
	Dropped []RowRef
}

// ErrorBlocks returns the blocks flagged during aggregation.
func (r *AggregateResult) ErrorBlocks() []*Block {
	var out []*Block
	for _, b := range r.Blocks {
		if b.Err != nil {
			out = append(out, b)
		}
	}
	return out
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator accumulates rows into blocks. Zero value is not usable; build
// with NewAggregator.
type Aggregator struct {
	// Sites restricts aggregation to the listed sites; empty accepts all.
	sites map[SiteCode]bool

	blocks  map[BlockKey]*Block
	order   []BlockKey
	lastFor map[string]string // date key -> last non-empty shift label
	dropped []RowRef
}

// NewAggregator builds an aggregator, optionally restricted to sites.
func NewAggregator(sites ...SiteCode) *Aggregator {
	var filter map[SiteCode]bool
	if len(sites) > 0 {
		filter = make(map[SiteCode]bool, len(sites))
		for _, s := range sites {
			filter[s] = true
		}
	}
	return &Aggregator{
		sites:   filter,
		blocks:  make(map[BlockKey]*Block),
		lastFor: make(map[string]string),
	}
}

// Add processes one row. Rows must be fed in global read order for
// forward-fill and first-seen ordering to hold.
func (a *Aggregator) Add(row RawRow) {
	if row.Date.IsZero() {
		a.dropped = append(a.dropped, row.Ref)
		return
	}
	if a.sites != nil && !a.sites[row.Site] {
		return
	}

	day := DayKey(row.Date)

	label := row.ShiftLabel
	if label == "" {
		label = a.lastFor[day]
	} else {
		a.lastFor[day] = label
	}
	if label == "" {
		// No label yet for this date; nothing to bill the row under.
		a.dropped = append(a.dropped, row.Ref)
		return
	}

	shift, err := ParseShift(label)
	key := BlockKey{Date: day, Site: row.Site, Label: shift.Label}
	if err != nil {
		// Unparsable labels group under their raw text so duplicates of
		// the same bad label still land in one error block.
		key.Label = label
	}

	b, ok := a.blocks[key]
	if !ok {
		b = &Block{
			Date:        Day(row.Date),
			Site:        row.Site,
			Operator:    row.Operator,
			Label:       key.Label,
			RawLabel:    label,
			Prefix:      shift.Prefix,
			Shift:       shift,
			NoOvertime:  shift.NoOvertime,
			RefTotal:    row.RefTotal,
			RefExtraMin: row.RefExtraMin,
			RefNightMin: row.RefNightMin,
			First:       row.Ref,
			Err:         err,
		}
		a.blocks[key] = b
		a.order = append(a.order, key)
	}

	b.Rows = append(b.Rows, row)

	// A festivo mark on any member row marks the whole block. The first
	// non-empty cell is kept for display, but a later truthy cell replaces
	// an earlier non-truthy one.
	if row.HolidayCell != "" {
		if b.HolidayCell == "" || (!TruthyHolidayCell(b.HolidayCell) && TruthyHolidayCell(row.HolidayCell)) {
			b.HolidayCell = row.HolidayCell
		}
	}

	if err == nil {
		for _, ct := range row.ATD {
			b.ATDs = append(b.ATDs, anchor(ct, b))
		}
		for _, ct := range row.STD {
			b.STDs = append(b.STDs, anchor(ct, b))
		}
	}
}

// AddAll feeds a slice of rows in order.
func (a *Aggregator) AddAll(rows []RawRow) {
	for _, r := range rows {
		a.Add(r)
	}
}

// Result freezes and returns the aggregated blocks, ordered by date, site
// and first appearance.
func (a *Aggregator) Result() *AggregateResult {
	seen := make(map[BlockKey]int, len(a.order))
	for i, k := range a.order {
		seen[k] = i
	}

	blocks := make([]*Block, 0, len(a.order))
	for _, k := range a.order {
		blocks = append(blocks, a.blocks[k])
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		bi, bj := blocks[i], blocks[j]
		if !bi.Date.Equal(bj.Date) {
			return bi.Date.Before(bj.Date)
		}
		if bi.Site != bj.Site {
			return bi.Site < bj.Site
		}
		return seen[bi.Key()] < seen[bj.Key()]
	})

	return &AggregateResult{Blocks: blocks, Dropped: a.dropped}
}

// Aggregate is the one-shot form: rows in, ordered blocks out.
func Aggregate(rows []RawRow, sites ...SiteCode) *AggregateResult {
	a := NewAggregator(sites...)
	a.AddAll(rows)
	return a.Result()
}

// anchor places a clock time onto the block date. Instants before the shift
// start clock belong to the following day: a 00:45 departure on a
// 22:00-02:00 duty happened after midnight.
func anchor(ct ClockTime, b *Block) time.Time {
	t := ct.At(b.Date)
	if b.Err == nil && ct.Minutes() < b.Shift.Start.Minutes() {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
