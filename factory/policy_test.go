package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/factory"
	"github.com/groundside/shift-engine/tariff"
)

const tourJSON = `{
  "id": "tour-std",
  "name": "Tour operator standard",
  "operator": "TOURCO",
  "sites": ["VRN"],
  "base": {
    "bands": {"180": 75, "240": 90},
    "minimum_band_min": 180,
    "overage_hourly": 15
  },
  "extra": {
    "hourly_rate": 20,
    "rule": "buffered",
    "buffer_min": 30,
    "std_fallback": true
  },
  "night": {
    "window_start": "23:00",
    "window_end": "05:00",
    "pct": 0.20
  },
  "holiday": {
    "pct": 0.20,
    "on_base": true,
    "on_extra": true,
    "on_night": true,
    "night_in_extra": true
  }
}`

func TestParsePolicy(t *testing.T) {
	f := factory.NewPolicyFactory()

	// WHEN: Parsing a full JSON tariff
	p, err := f.ParsePolicy(tourJSON)
	require.NoError(t, err)

	// THEN: Every section lands in the typed policy
	assert.Equal(t, billing.PolicyID("tour-std"), p.ID)
	assert.Equal(t, billing.OperatorID("TOURCO"), p.Operator)
	assert.Equal(t, []billing.SiteCode{"VRN"}, p.Sites)

	assert.Equal(t, 180, p.Base.MinimumBandMin)
	assert.True(t, p.Base.Bands[240].Equal(p.Base.Bands[180].Add(p.Base.OverageHourly)))

	assert.Equal(t, billing.ExtraBuffered, p.Extra.Rule)
	assert.Equal(t, 30, p.Extra.BufferMin)
	assert.True(t, p.Extra.STDFallback)

	// AND: Omitted mode defaults to differential
	assert.Equal(t, billing.NightDifferential, p.Night.Mode)
	assert.Equal(t, billing.NewClockTime(23, 0), p.Night.WindowStart)
	assert.Equal(t, billing.NewClockTime(5, 0), p.Night.WindowEnd)
}

func TestParsePolicy_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	cases := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"missing id", `{"base": {"bands": {"180": 75}, "minimum_band_min": 180},
			"night": {"window_start": "23:00", "window_end": "05:00"}}`},
		{"zero minimum band", `{"id": "x",
			"base": {"bands": {"180": 75}},
			"night": {"window_start": "23:00", "window_end": "05:00"}}`},
		{"non-numeric band key", `{"id": "x",
			"base": {"bands": {"3h": 75}, "minimum_band_min": 180},
			"night": {"window_start": "23:00", "window_end": "05:00"}}`},
		{"no price for minimum band", `{"id": "x",
			"base": {"bands": {"240": 90}, "minimum_band_min": 180},
			"night": {"window_start": "23:00", "window_end": "05:00"}}`},
		{"bad window", `{"id": "x",
			"base": {"bands": {"180": 75}, "minimum_band_min": 180},
			"night": {"window_start": "nope", "window_end": "05:00"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParsePolicy(tc.json)
			assert.Error(t, err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()

	// GIVEN: A preset exported to JSON
	orig := tariff.BandedRatePolicy("banded", "Banded", "OP",
		[]billing.SiteCode{"BGY"}, 75, 15, 20, 30)
	pj := f.ToJSON(orig)

	// WHEN: Importing it back
	back, err := f.FromJSON(pj)
	require.NoError(t, err)

	// THEN: The tariff semantics survive the trip
	assert.Equal(t, orig.ID, back.ID)
	assert.Equal(t, orig.Sites, back.Sites)
	assert.Equal(t, orig.Base.MinimumBandMin, back.Base.MinimumBandMin)
	require.Len(t, back.Base.Bands, len(orig.Base.Bands))
	for min, price := range orig.Base.Bands {
		assert.True(t, back.Base.Bands[min].Equal(price), "band %d", min)
	}
	assert.Equal(t, orig.Extra.Rule, back.Extra.Rule)
	assert.Equal(t, orig.Extra.BufferMin, back.Extra.BufferMin)
	assert.Equal(t, orig.Night.WindowStart, back.Night.WindowStart)
	assert.Equal(t, orig.Night.Mode, back.Night.Mode)
	assert.True(t, back.Night.Pct.Equal(orig.Night.Pct))
	assert.Equal(t, orig.Holiday, back.Holiday)
}
