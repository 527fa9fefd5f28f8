/*
Package tariff provides pre-built rate policy configurations.

PURPOSE:
  Ready-to-use billing.RatePolicy values for the tariff archetypes found in
  ground-handling contracts. Each constructor captures one pricing shape;
  the caller supplies the identifiers and the operator's actual numbers.

AVAILABLE POLICIES:
  StandardSeasonPolicy:
    - Single minimum band with hourly overage
    - Direct overtime from the latest actual departure
    - Differential night premium
    - Holiday surcharge on every component

  BandedRatePolicy:
    - Flat price per whole-hour band, hourly overage between bands
    - Buffered overtime (assistance window after departure), STD fallback
    - Differential night premium
    - Holiday surcharge excluding the night minutes inside overtime

  CharterBlockPolicy:
    - Flat price per fixed service block
    - Direct overtime, scheduled-departure fallback
    - Full (flat per-minute) night rate

  AgencyServicePolicy:
    - Flat base per service type
    - Direct overtime
    - Full night rate over a short window

EXAMPLE:
  policy := tariff.StandardSeasonPolicy("tour-std", "Tour operator standard",
      "TOURCO", 75, 15, 18)
  reg := tariff.NewRegistry()
  reg.Register(policy)

SEE ALSO:
  - registry.go: Operator/site policy selection
  - factory/policy.go: JSON-based policy creation
*/
package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/groundside/shift-engine/billing"
)

// =============================================================================
// STANDARD SEASON POLICY
// =============================================================================

// StandardSeasonPolicy creates a single-band tariff: a flat price for the
// minimum three-hour service, hourly overage above it, direct overtime and a
// 20% night premium over 23:00-05:00. Holidays surcharge every component.
func StandardSeasonPolicy(id, name string, operator billing.OperatorID, basePrice, overageHourly, extraHourly float64) *billing.RatePolicy {
	return &billing.RatePolicy{
		ID:       billing.PolicyID(id),
		Name:     name,
		Operator: operator,
		Base: billing.BaseRate{
			Bands:          bands(180, 180, basePrice, overageHourly),
			MinimumBandMin: 180,
			OverageHourly:  decimal.NewFromFloat(overageHourly),
		},
		Extra: billing.ExtraRate{
			HourlyRate: decimal.NewFromFloat(extraHourly),
			Rule:       billing.ExtraDirect,
		},
		Night: billing.NightRate{
			WindowStart: billing.NewClockTime(23, 0),
			WindowEnd:   billing.NewClockTime(5, 0),
			Mode:        billing.NightDifferential,
			Pct:         decimal.NewFromFloat(0.20),
		},
		Holiday: billing.HolidaySurcharge{
			Pct:          decimal.NewFromFloat(0.20),
			OnBase:       true,
			OnExtra:      true,
			OnNight:      true,
			NightInExtra: true,
		},
	}
}

// =============================================================================
// BANDED RATE POLICY
// =============================================================================

// BandedRatePolicy creates a whole-hour band tariff from three to eight
// hours, priced linearly from the three-hour base. Overtime is buffered: a
// fixed assistance window after the chosen departure, with scheduled
// departures standing in when no actual one was recorded. Night minutes
// earned inside the overtime window are exempt from the holiday surcharge.
func BandedRatePolicy(id, name string, operator billing.OperatorID, sites []billing.SiteCode, basePrice, overageHourly, extraHourly float64, bufferMin int) *billing.RatePolicy {
	return &billing.RatePolicy{
		ID:       billing.PolicyID(id),
		Name:     name,
		Operator: operator,
		Sites:    sites,
		Base: billing.BaseRate{
			Bands:          bands(180, 480, basePrice, overageHourly),
			MinimumBandMin: 180,
			OverageHourly:  decimal.NewFromFloat(overageHourly),
		},
		Extra: billing.ExtraRate{
			HourlyRate:  decimal.NewFromFloat(extraHourly),
			Rule:        billing.ExtraBuffered,
			BufferMin:   bufferMin,
			STDFallback: true,
		},
		Night: billing.NightRate{
			WindowStart: billing.NewClockTime(23, 0),
			WindowEnd:   billing.NewClockTime(6, 0),
			Mode:        billing.NightDifferential,
			Pct:         decimal.NewFromFloat(0.15),
		},
		Holiday: billing.HolidaySurcharge{
			Pct:          decimal.NewFromFloat(0.20),
			OnBase:       true,
			OnExtra:      true,
			OnNight:      true,
			NightInExtra: false,
		},
	}
}

// =============================================================================
// CHARTER BLOCK POLICY
// =============================================================================

// CharterBlockPolicy creates a flat per-service tariff: one price covers the
// whole standard block (150 minutes), longer services accrue pro-rata.
// Night is billed at a flat per-minute rate over 22:00-06:00 and the
// holiday surcharge is steeper than the seasonal tariffs (30%).
func CharterBlockPolicy(id, name string, operator billing.OperatorID, blockPrice, extraHourly, nightPerMinute float64) *billing.RatePolicy {
	price := decimal.NewFromFloat(blockPrice)
	return &billing.RatePolicy{
		ID:       billing.PolicyID(id),
		Name:     name,
		Operator: operator,
		Base: billing.BaseRate{
			Bands:          map[int]decimal.Decimal{150: price},
			MinimumBandMin: 150,
			OverageHourly:  price.Div(decimal.NewFromFloat(2.5)),
		},
		Extra: billing.ExtraRate{
			HourlyRate:  decimal.NewFromFloat(extraHourly),
			Rule:        billing.ExtraDirect,
			STDFallback: true,
		},
		Night: billing.NightRate{
			WindowStart: billing.NewClockTime(22, 0),
			WindowEnd:   billing.NewClockTime(6, 0),
			Mode:        billing.NightFull,
			PerMinute:   decimal.NewFromFloat(nightPerMinute),
		},
		Holiday: billing.HolidaySurcharge{
			Pct:          decimal.NewFromFloat(0.30),
			OnBase:       true,
			OnExtra:      true,
			OnNight:      true,
			NightInExtra: true,
		},
	}
}

// =============================================================================
// AGENCY SERVICE POLICY
// =============================================================================

// AgencyServicePolicy creates a per-service-type tariff: one flat base for
// the agreed service duration, direct overtime and a flat night rate over
// the short 23:00-03:30 window.
func AgencyServicePolicy(id, name string, operator billing.OperatorID, serviceMin int, basePrice, extraHourly, nightPerMinute float64) *billing.RatePolicy {
	return &billing.RatePolicy{
		ID:       billing.PolicyID(id),
		Name:     name,
		Operator: operator,
		Base: billing.BaseRate{
			Bands:          map[int]decimal.Decimal{serviceMin: decimal.NewFromFloat(basePrice)},
			MinimumBandMin: serviceMin,
			OverageHourly:  decimal.NewFromFloat(extraHourly),
		},
		Extra: billing.ExtraRate{
			HourlyRate: decimal.NewFromFloat(extraHourly),
			Rule:       billing.ExtraDirect,
		},
		Night: billing.NightRate{
			WindowStart: billing.NewClockTime(23, 0),
			WindowEnd:   billing.NewClockTime(3, 30),
			Mode:        billing.NightFull,
			PerMinute:   decimal.NewFromFloat(nightPerMinute),
		},
		Holiday: billing.HolidaySurcharge{
			Pct:          decimal.NewFromFloat(0.20),
			OnBase:       true,
			OnExtra:      true,
			OnNight:      true,
			NightInExtra: true,
		},
	}
}

// bands builds a whole-hour band table from minMin to maxMin, priced
// linearly at the overage rate above the base.
func bands(minMin, maxMin int, basePrice, overageHourly float64) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	base := decimal.NewFromFloat(basePrice)
	rate := decimal.NewFromFloat(overageHourly)
	for m := minMin; m <= maxMin; m += 60 {
		over := decimal.NewFromInt(int64(m-minMin)).Div(decimal.NewFromInt(60))
		out[m] = base.Add(over.Mul(rate))
	}
	return out
}
