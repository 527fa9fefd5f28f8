/*
engine.go - Block cost computation

PURPOSE:
  The rate engine prices aggregated blocks under a RatePolicy. One engine
  instance serves a whole run: it carries the policy, the two rounding
  policies and the holiday calendar, and computes blocks independently.

COMPUTATION ORDER (per block):
  1. Base cost from the shift duration and the policy's band table
  2. Extra-window selection (max qualifying ATD, optional STD fallback) and
     extra cost
  3. Night-window overlap with the shift interval and the extra interval,
     then night cost
  4. Holiday surcharge on the policy-designated components
  Blocks whose shift never parsed, and blocks shorter than the policy's
  minimum band, come out with Err set and zero cost; they are reported but
  excluded from totals.

CONCURRENCY:
  ComputeAll fans blocks out over a bounded worker set. Blocks are
  independent by construction (immutable inputs, no shared state), so
  ordering of the output slice is preserved by index.
*/
package billing

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// =============================================================================
// ENGINE
// =============================================================================

// Engine prices blocks under one rate policy. Safe for concurrent use.
type Engine struct {
	Policy *RatePolicy

	// ExtraRounding and NightRounding map raw minute sums to billable
	// minutes. They never touch the base shift duration.
	ExtraRounding Rounding
	NightRounding Rounding

	Calendar *Calendar
}

// NewEngine builds an engine with no rounding and a computing calendar.
func NewEngine(policy *RatePolicy) *Engine {
	return &Engine{
		Policy:        policy,
		ExtraRounding: NoRounding,
		NightRounding: NoRounding,
		Calendar:      NewCalendar(),
	}
}

// Compute prices a single block. It never returns an error: pricing
// failures are carried on the ComputedBlock.
func (e *Engine) Compute(b *Block) *ComputedBlock {
	cb := &ComputedBlock{
		Block:     b,
		BaseCost:  decimal.Zero,
		ExtraCost: decimal.Zero,
		NightCost: decimal.Zero,
		Total:     decimal.Zero,
	}
	if b.Err != nil {
		cb.Err = b.Err
		return cb
	}

	cb.DurationMin = b.Shift.DurationMin()
	cb.Holiday = BlockIsHoliday(b, e.Calendar)

	base, err := e.baseCost(b, cb.DurationMin)
	if err != nil {
		cb.Err = err
		return cb
	}

	shiftStart := b.Shift.Start.At(b.Date)
	shiftEnd := b.Shift.End.At(b.Date)
	if b.Shift.NextDay {
		shiftEnd = shiftEnd.AddDate(0, 0, 1)
	}

	extraRaw, chosen := e.extraWindow(b, shiftEnd)
	cb.ChosenExtra = chosen
	cb.ExtraRawMin = extraRaw
	cb.ExtraBillableMin = e.ExtraRounding.Apply(extraRaw)
	extra := decimal.NewFromInt(int64(cb.ExtraBillableMin)).
		Div(sixty).Mul(e.Policy.Extra.HourlyRate)

	night := e.Policy.Night
	cb.NightShiftRawMin = NightOverlapMinutes(shiftStart, shiftEnd, night.WindowStart, night.WindowEnd)
	if chosen != nil && !b.NoOvertime {
		cb.NightExtraRawMin = NightOverlapMinutes(shiftEnd, *chosen, night.WindowStart, night.WindowEnd)
	}
	cb.NightBillableMin = e.NightRounding.Apply(cb.NightRawMin())
	nightCost := decimal.NewFromInt(int64(cb.NightBillableMin)).
		Mul(night.PerMinuteRate(e.Policy.Base))

	cb.BaseCost, cb.ExtraCost, cb.NightCost = e.surcharge(cb, base, extra, nightCost)
	cb.Total = cb.BaseCost.Add(cb.ExtraCost).Add(cb.NightCost)
	return cb
}

// baseCost prices the shift duration against the band table.
func (e *Engine) baseCost(b *Block, durationMin int) (decimal.Decimal, error) {
	base := e.Policy.Base
	if durationMin < base.MinimumBandMin {
		return decimal.Zero, &PolicyMismatchError{
			Policy:      e.Policy.ID,
			Date:        b.Date,
			Site:        b.Site,
			DurationMin: durationMin,
			MinimumMin:  base.MinimumBandMin,
		}
	}
	if price, ok := base.Bands[durationMin]; ok {
		return price, nil
	}
	over := decimal.NewFromInt(int64(durationMin - base.MinimumBandMin))
	return base.MinimumBandPrice().Add(over.Div(sixty).Mul(base.OverageHourly)), nil
}

// extraWindow selects the departure instant the extra window derives from
// and returns the raw extra minutes. A nil chosen time means no overtime.
func (e *Engine) extraWindow(b *Block, shiftEnd time.Time) (int, *time.Time) {
	if b.NoOvertime {
		return 0, nil
	}

	// A departure qualifies when it produces billable minutes: past shift
	// end for the direct rule, or close enough that its assistance window
	// extends past shift end for the buffered rule.
	cutoff := shiftEnd
	if e.Policy.Extra.Rule == ExtraBuffered {
		cutoff = shiftEnd.Add(-time.Duration(e.Policy.Extra.BufferMin) * time.Minute)
	}

	chosen := latestAfter(b.ATDs, cutoff)
	if chosen == nil && e.Policy.Extra.STDFallback {
		chosen = latestAfter(b.STDs, cutoff)
	}
	if chosen == nil {
		return 0, nil
	}

	raw := 0
	switch e.Policy.Extra.Rule {
	case ExtraBuffered:
		raw = MinutesBetween(shiftEnd, chosen.Add(time.Duration(e.Policy.Extra.BufferMin)*time.Minute))
	default:
		raw = MinutesBetween(shiftEnd, *chosen)
	}
	if raw < 0 {
		raw = 0
	}
	return raw, chosen
}

// latestAfter returns the maximum instant strictly after the cutoff.
func latestAfter(ts []time.Time, cutoff time.Time) *time.Time {
	var best *time.Time
	for i := range ts {
		if ts[i].After(cutoff) && (best == nil || ts[i].After(*best)) {
			best = &ts[i]
		}
	}
	return best
}

// surcharge applies the holiday uplift to the designated components. The
// night component may be split: when the policy excludes extra-window night
// minutes, only the shift-window share of the night cost is surcharged,
// pro-rata on raw minutes.
func (e *Engine) surcharge(cb *ComputedBlock, base, extra, night decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	h := e.Policy.Holiday
	if !cb.Holiday {
		return Money(base), Money(extra), Money(night)
	}

	f := h.Factor()
	if h.OnBase {
		base = base.Mul(f)
	}
	if h.OnExtra {
		extra = extra.Mul(f)
	}
	if h.OnNight {
		switch {
		case h.NightInExtra || cb.NightRawMin() == 0:
			night = night.Mul(f)
		default:
			shiftShare := decimal.NewFromInt(int64(cb.NightShiftRawMin)).
				Div(decimal.NewFromInt(int64(cb.NightRawMin())))
			surcharged := night.Mul(shiftShare).Mul(f)
			plain := night.Mul(decimal.NewFromInt(1).Sub(shiftShare))
			night = surcharged.Add(plain)
		}
	}
	return Money(base), Money(extra), Money(night)
}

// =============================================================================
// BATCH COMPUTATION
// =============================================================================

// ComputeAll prices every block concurrently, preserving input order. The
// context cancels remaining work; already-finished entries are returned,
// unprocessed ones are nil.
func (e *Engine) ComputeAll(ctx context.Context, blocks []*Block) ([]*ComputedBlock, error) {
	out := make([]*ComputedBlock, len(blocks))

	workers := runtime.NumCPU()
	if workers > len(blocks) {
		workers = len(blocks)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.Compute(blocks[i])
			}
		}()
	}

	var err error
feed:
	for i := range blocks {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return out, err
}
