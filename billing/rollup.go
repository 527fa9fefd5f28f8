/*
rollup.go - Aggregate totals by billing period and site

PURPOSE:
  Payroll is settled per half-month: days 1-15, days 16 onward, and the full
  month. Rollup sums the clean computed blocks into one line per (period,
  site) plus a per-period line across sites. Error blocks never contribute;
  they are counted separately so the caller can see how much input fell out.
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BILLING PERIODS
// =============================================================================

// Period is a half-month or full-month settlement window.
type Period string

const (
	PeriodFirstHalf  Period = "1-15"
	PeriodSecondHalf Period = "16-31"
	PeriodMonth      Period = "MESE"
)

// PeriodOf returns the half-month window a date falls in.
func PeriodOf(day int) Period {
	if day <= 15 {
		return PeriodFirstHalf
	}
	return PeriodSecondHalf
}

// periodRank fixes the display order of the three windows.
func periodRank(p Period) int {
	switch p {
	case PeriodFirstHalf:
		return 0
	case PeriodSecondHalf:
		return 1
	default:
		return 2
	}
}

// =============================================================================
// ROLLUP LINES
// =============================================================================

// RollupLine is one aggregate row. An empty Site means "all sites".
type RollupLine struct {
	Period Period
	Site   SiteCode

	Blocks           int
	DurationMin      int
	ExtraBillableMin int
	NightBillableMin int

	BaseCost  decimal.Decimal
	ExtraCost decimal.Decimal
	NightCost decimal.Decimal
	Total     decimal.Decimal
}

func (l *RollupLine) add(cb *ComputedBlock) {
	l.Blocks++
	l.DurationMin += cb.DurationMin
	l.ExtraBillableMin += cb.ExtraBillableMin
	l.NightBillableMin += cb.NightBillableMin
	l.BaseCost = l.BaseCost.Add(cb.BaseCost)
	l.ExtraCost = l.ExtraCost.Add(cb.ExtraCost)
	l.NightCost = l.NightCost.Add(cb.NightCost)
	l.Total = l.Total.Add(cb.Total)
}

// RollupResult is the full aggregate view of one computed batch.
type RollupResult struct {
	// Lines holds one entry per (period, site) and one all-sites entry per
	// period, ordered period-major then site.
	Lines []*RollupLine

	// ErrorBlocks counts blocks excluded from every line.
	ErrorBlocks int
}

// Line finds an aggregate row, nil when absent.
func (r *RollupResult) Line(p Period, site SiteCode) *RollupLine {
	for _, l := range r.Lines {
		if l.Period == p && l.Site == site {
			return l
		}
	}
	return nil
}

// =============================================================================
// ROLLUP
// =============================================================================

type rollupKey struct {
	Period Period
	Site   SiteCode
}

// Rollup sums clean computed blocks into period/site aggregate lines.
func Rollup(blocks []*ComputedBlock) *RollupResult {
	res := &RollupResult{}
	lines := make(map[rollupKey]*RollupLine)

	line := func(p Period, site SiteCode) *RollupLine {
		k := rollupKey{Period: p, Site: site}
		l, ok := lines[k]
		if !ok {
			l = &RollupLine{
				Period:    p,
				Site:      site,
				BaseCost:  decimal.Zero,
				ExtraCost: decimal.Zero,
				NightCost: decimal.Zero,
				Total:     decimal.Zero,
			}
			lines[k] = l
			res.Lines = append(res.Lines, l)
		}
		return l
	}

	for _, cb := range blocks {
		if cb == nil {
			continue
		}
		if cb.Err != nil {
			res.ErrorBlocks++
			continue
		}
		half := PeriodOf(cb.Block.Date.Day())
		site := cb.Block.Site
		for _, l := range []*RollupLine{
			line(half, site),
			line(half, ""),
			line(PeriodMonth, site),
			line(PeriodMonth, ""),
		} {
			l.add(cb)
		}
	}

	sort.SliceStable(res.Lines, func(i, j int) bool {
		a, b := res.Lines[i], res.Lines[j]
		if a.Period != b.Period {
			return periodRank(a.Period) < periodRank(b.Period)
		}
		return a.Site < b.Site
	})
	return res
}
