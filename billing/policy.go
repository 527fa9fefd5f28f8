/*
policy.go - Rate policy definitions

PURPOSE:
  A RatePolicy is the complete, data-only tariff for one operator at one or
  more sites: how the base shift is priced, how overtime ("extra") minutes
  are selected and billed, where the night window sits and how night minutes
  are monetized, and which cost components a holiday surcharge touches.

  Operators never contribute code - only a RatePolicy value. The engine in
  engine.go is the single implementation for all of them.

COMPONENT AXES:
  Base:    band table (exact duration -> flat price) with linear pro-rata
           above the minimum band
  Extra:   direct (chosen departure - shift end) or buffered (a fixed window
           after the chosen departure counts, clipped to the part outside
           the shift)
  Night:   differential (premium over the base hourly rate) or full (flat
           per-minute price)
  Holiday: percentage uplift with an explicit per-component application set

EXAMPLE:
  policy := billing.RatePolicy{
      ID:   "std-season",
      Base: billing.BaseRate{Bands: ..., MinimumBandMin: 180, OverageHourly: d("15")},
      ...
  }
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE POLICY - Per-operator, per-site tariff configuration
// =============================================================================

// RatePolicy is supplied externally (presets, JSON factory or the policy
// store) and never mutated at runtime.
type RatePolicy struct {
	ID       PolicyID
	Name     string
	Operator OperatorID

	// Sites this policy applies to; empty means any site of the operator.
	Sites []SiteCode

	Base    BaseRate
	Extra   ExtraRate
	Night   NightRate
	Holiday HolidaySurcharge
}

// AppliesTo reports whether the policy covers a site.
func (p *RatePolicy) AppliesTo(site SiteCode) bool {
	if len(p.Sites) == 0 {
		return true
	}
	for _, s := range p.Sites {
		if s == site {
			return true
		}
	}
	return false
}

// =============================================================================
// BASE RATE
// =============================================================================

// BaseRate prices the shift interval itself. A duration matching a band
// exactly takes the listed flat price; anything else is priced as the
// minimum band plus a linear per-minute overage.
type BaseRate struct {
	// Bands maps exact durations in minutes to flat prices.
	Bands map[int]decimal.Decimal

	// MinimumBandMin is the shortest billable duration. Blocks shorter
	// than this fail with a PolicyMismatchError.
	MinimumBandMin int

	// OverageHourly is the hourly rate applied, pro-rata to the minute,
	// to the portion of the duration above the minimum band.
	OverageHourly decimal.Decimal
}

// MinimumBandPrice is the flat price of the minimum band.
func (b BaseRate) MinimumBandPrice() decimal.Decimal {
	return b.Bands[b.MinimumBandMin]
}

// HourlyRate is the minimum-band price divided by the minimum-band hours.
// The differential night rate derives from this.
func (b BaseRate) HourlyRate() decimal.Decimal {
	if b.MinimumBandMin == 0 {
		return decimal.Zero
	}
	hours := decimal.NewFromInt(int64(b.MinimumBandMin)).Div(decimal.NewFromInt(60))
	return b.MinimumBandPrice().Div(hours)
}

// =============================================================================
// EXTRA RATE
// =============================================================================

// ExtraWindowRule selects how the extra interval is derived from the chosen
// departure time.
type ExtraWindowRule string

const (
	// ExtraDirect bills chosen time minus shift end, floored at zero.
	ExtraDirect ExtraWindowRule = "direct"

	// ExtraBuffered adds a fixed assistance window after the chosen time;
	// only the part of the window past shift end counts.
	ExtraBuffered ExtraWindowRule = "buffered"
)

// ExtraRate configures overtime billing.
type ExtraRate struct {
	HourlyRate decimal.Decimal
	Rule       ExtraWindowRule

	// BufferMin is the window length for ExtraBuffered, in minutes.
	BufferMin int

	// STDFallback allows the scheduled departure to stand in when no
	// actual departure qualifies.
	STDFallback bool
}

// =============================================================================
// NIGHT RATE
// =============================================================================

// NightMode selects how billable night minutes are monetized.
type NightMode string

const (
	// NightDifferential bills the premium only: per-minute rate derived
	// from base_hourly x night_pct.
	NightDifferential NightMode = "differential"

	// NightFull bills a flat configured per-minute rate.
	NightFull NightMode = "full"
)

// NightRate configures the night window and its pricing.
type NightRate struct {
	WindowStart ClockTime
	WindowEnd   ClockTime

	Mode NightMode

	// Pct is the premium percentage for NightDifferential, e.g. 0.20.
	Pct decimal.Decimal

	// PerMinute is the flat rate for NightFull.
	PerMinute decimal.Decimal
}

// PerMinuteRate resolves the effective per-minute night rate under a base
// rate.
func (n NightRate) PerMinuteRate(base BaseRate) decimal.Decimal {
	switch n.Mode {
	case NightFull:
		return n.PerMinute
	default:
		return base.HourlyRate().Mul(n.Pct).Div(decimal.NewFromInt(60))
	}
}

// =============================================================================
// HOLIDAY SURCHARGE
// =============================================================================

// HolidaySurcharge is a percentage uplift applied, on holiday dates, to an
// explicit subset of the cost components. Operators differ on whether night
// is included, and on whether the night minutes earned inside the extra
// window are.
type HolidaySurcharge struct {
	Pct decimal.Decimal

	OnBase  bool
	OnExtra bool
	OnNight bool

	// NightInExtra controls the night minutes that fall inside the extra
	// window: when false (and OnNight is true) only the shift-window
	// share of the night cost is surcharged.
	NightInExtra bool
}

// Factor returns the multiplier 1+Pct.
func (h HolidaySurcharge) Factor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(h.Pct)
}
