/*
Package factory provides JSON to Go rate policy conversion.

PURPOSE:
  Converts JSON tariff definitions into billing.RatePolicy values. This
  enables tariff configuration without code changes - back office staff can
  maintain contract terms in JSON, and the factory creates the proper Go
  structs.

WHY JSON?
  - Non-developers can adjust contract numbers
  - Version control for tariff definitions
  - Database storage of tariff configs

JSON SCHEMA:
  {
    "id": "tour-std",
    "name": "Tour operator standard",
    "operator": "TOURCO",
    "sites": ["VRN", "BGY"],
    "base": {
      "bands": {"180": 75, "240": 90},
      "minimum_band_min": 180,
      "overage_hourly": 15
    },
    "extra": {
      "hourly_rate": 18,
      "rule": "direct",
      "buffer_min": 0,
      "std_fallback": false
    },
    "night": {
      "window_start": "23:00",
      "window_end": "05:00",
      "mode": "differential",
      "pct": 0.20
    },
    "holiday": {
      "pct": 0.20,
      "on_base": true,
      "on_extra": true,
      "on_night": true,
      "night_in_extra": true
    }
  }

KEY FEATURES:
  - Validates clock times and rule/mode names
  - Sets sensible defaults (direct rule, differential night)
  - Round-trips: ToJSON(FromJSON(x)) preserves the tariff

USAGE:
  factory := NewPolicyFactory()
  policy, err := factory.ParsePolicy(jsonString)

SEE ALSO:
  - billing/policy.go: RatePolicy type definition
  - tariff/policies.go: Go-based preset configurations
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/groundside/shift-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a rate policy.
type PolicyJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Operator string   `json:"operator"`
	Sites    []string `json:"sites,omitempty"`

	Base    BaseJSON    `json:"base"`
	Extra   ExtraJSON   `json:"extra"`
	Night   NightJSON   `json:"night"`
	Holiday HolidayJSON `json:"holiday"`
}

// BaseJSON represents the band table. Band keys are minute counts encoded
// as strings, which is how JSON objects carry integer keys.
type BaseJSON struct {
	Bands          map[string]float64 `json:"bands"`
	MinimumBandMin int                `json:"minimum_band_min"`
	OverageHourly  float64            `json:"overage_hourly,omitempty"`
}

// ExtraJSON represents overtime configuration.
type ExtraJSON struct {
	HourlyRate  float64 `json:"hourly_rate"`
	Rule        string  `json:"rule,omitempty"` // direct, buffered
	BufferMin   int     `json:"buffer_min,omitempty"`
	STDFallback bool    `json:"std_fallback,omitempty"`
}

// NightJSON represents the night window and rate mode.
type NightJSON struct {
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	Mode        string  `json:"mode,omitempty"` // differential, full
	Pct         float64 `json:"pct,omitempty"`
	PerMinute   float64 `json:"per_minute,omitempty"`
}

// HolidayJSON represents the surcharge and its component set.
type HolidayJSON struct {
	Pct          float64 `json:"pct"`
	OnBase       bool    `json:"on_base"`
	OnExtra      bool    `json:"on_extra"`
	OnNight      bool    `json:"on_night"`
	NightInExtra bool    `json:"night_in_extra"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON tariffs to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a RatePolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*billing.RatePolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to a billing.RatePolicy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*billing.RatePolicy, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("policy requires an id")
	}
	if pj.Base.MinimumBandMin <= 0 {
		return nil, fmt.Errorf("policy %s: minimum_band_min must be positive", pj.ID)
	}

	bands := make(map[int]decimal.Decimal, len(pj.Base.Bands))
	for k, v := range pj.Base.Bands {
		min, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("policy %s: band key %q is not a minute count", pj.ID, k)
		}
		bands[min] = decimal.NewFromFloat(v)
	}
	if _, ok := bands[pj.Base.MinimumBandMin]; !ok {
		return nil, fmt.Errorf("policy %s: no band price for minimum band %d", pj.ID, pj.Base.MinimumBandMin)
	}

	winStart, err := parseClock(pj.Night.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("policy %s: night window_start: %w", pj.ID, err)
	}
	winEnd, err := parseClock(pj.Night.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("policy %s: night window_end: %w", pj.ID, err)
	}

	sites := make([]billing.SiteCode, 0, len(pj.Sites))
	for _, s := range pj.Sites {
		sites = append(sites, billing.SiteCode(s))
	}

	return &billing.RatePolicy{
		ID:       billing.PolicyID(pj.ID),
		Name:     pj.Name,
		Operator: billing.OperatorID(pj.Operator),
		Sites:    sites,
		Base: billing.BaseRate{
			Bands:          bands,
			MinimumBandMin: pj.Base.MinimumBandMin,
			OverageHourly:  decimal.NewFromFloat(pj.Base.OverageHourly),
		},
		Extra: billing.ExtraRate{
			HourlyRate:  decimal.NewFromFloat(pj.Extra.HourlyRate),
			Rule:        parseExtraRule(pj.Extra.Rule),
			BufferMin:   pj.Extra.BufferMin,
			STDFallback: pj.Extra.STDFallback,
		},
		Night: billing.NightRate{
			WindowStart: winStart,
			WindowEnd:   winEnd,
			Mode:        parseNightMode(pj.Night.Mode),
			Pct:         decimal.NewFromFloat(pj.Night.Pct),
			PerMinute:   decimal.NewFromFloat(pj.Night.PerMinute),
		},
		Holiday: billing.HolidaySurcharge{
			Pct:          decimal.NewFromFloat(pj.Holiday.Pct),
			OnBase:       pj.Holiday.OnBase,
			OnExtra:      pj.Holiday.OnExtra,
			OnNight:      pj.Holiday.OnNight,
			NightInExtra: pj.Holiday.NightInExtra,
		},
	}, nil
}

// ToJSON converts a RatePolicy to PolicyJSON.
func (f *PolicyFactory) ToJSON(p *billing.RatePolicy) PolicyJSON {
	bands := make(map[string]float64, len(p.Base.Bands))
	for min, price := range p.Base.Bands {
		v, _ := price.Float64()
		bands[strconv.Itoa(min)] = v
	}

	sites := make([]string, 0, len(p.Sites))
	for _, s := range p.Sites {
		sites = append(sites, string(s))
	}

	overage, _ := p.Base.OverageHourly.Float64()
	extraHourly, _ := p.Extra.HourlyRate.Float64()
	nightPct, _ := p.Night.Pct.Float64()
	perMinute, _ := p.Night.PerMinute.Float64()
	holidayPct, _ := p.Holiday.Pct.Float64()

	return PolicyJSON{
		ID:       string(p.ID),
		Name:     p.Name,
		Operator: string(p.Operator),
		Sites:    sites,
		Base: BaseJSON{
			Bands:          bands,
			MinimumBandMin: p.Base.MinimumBandMin,
			OverageHourly:  overage,
		},
		Extra: ExtraJSON{
			HourlyRate:  extraHourly,
			Rule:        string(p.Extra.Rule),
			BufferMin:   p.Extra.BufferMin,
			STDFallback: p.Extra.STDFallback,
		},
		Night: NightJSON{
			WindowStart: p.Night.WindowStart.String(),
			WindowEnd:   p.Night.WindowEnd.String(),
			Mode:        string(p.Night.Mode),
			Pct:         nightPct,
			PerMinute:   perMinute,
		},
		Holiday: HolidayJSON{
			Pct:          holidayPct,
			OnBase:       p.Holiday.OnBase,
			OnExtra:      p.Holiday.OnExtra,
			OnNight:      p.Holiday.OnNight,
			NightInExtra: p.Holiday.NightInExtra,
		},
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseClock(s string) (billing.ClockTime, error) {
	ct, ok := billing.ParseClockTime(s)
	if !ok {
		return billing.ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	return ct, nil
}

func parseExtraRule(s string) billing.ExtraWindowRule {
	switch s {
	case "buffered":
		return billing.ExtraBuffered
	default:
		return billing.ExtraDirect
	}
}

func parseNightMode(s string) billing.NightMode {
	switch s {
	case "full":
		return billing.NightFull
	default:
		return billing.NightDifferential
	}
}
