/*
defaults.go - Built-in tariff registry

PURPOSE:
  The preset tariffs shipped with the engine, one per pricing archetype.
  A fresh deployment starts from these; stored and JSON-defined tariffs
  layer on top through the same registry.
*/
package tariff

import (
	"github.com/groundside/shift-engine/billing"
)

// DefaultRegistry returns a registry seeded with the built-in presets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(StandardSeasonPolicy(
		"season-std", "Seasonal tour operator", "SEASON",
		75, 15, 18))

	// Site-specific band variants of the same operator: Verona carries a
	// higher base than Bergamo.
	r.Register(BandedRatePolicy(
		"banded-bgy", "Banded charter, Bergamo", "BANDED",
		[]billing.SiteCode{"BGY"}, 75, 15, 20, 30))
	r.Register(BandedRatePolicy(
		"banded-vrn", "Banded charter, Verona", "BANDED",
		[]billing.SiteCode{"VRN"}, 80, 15, 20, 30))

	r.Register(CharterBlockPolicy(
		"charter-flat", "Flat-block charter", "CHARTER",
		100, 18, 0.12))

	r.Register(AgencyServicePolicy(
		"agency-std", "Agency standard service", "AGENCY",
		180, 75, 15, 0.031))

	return r
}
