package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groundside/shift-engine/billing"
)

func TestRounding_Modes(t *testing.T) {
	cases := []struct {
		name string
		r    billing.Rounding
		in   int
		out  int
	}{
		{"none passes through", billing.NoRounding, 29, 29},
		{"zero mode passes through", billing.Rounding{}, 29, 29},

		{"floor to 15", billing.Rounding{Mode: billing.RoundFloor, Step: 15}, 29, 15},
		{"ceiling to 15", billing.Rounding{Mode: billing.RoundCeiling, Step: 15}, 29, 30},
		{"nearest down", billing.Rounding{Mode: billing.RoundNearest, Step: 15}, 29, 30},
		{"nearest below half", billing.Rounding{Mode: billing.RoundNearest, Step: 15}, 22, 15},

		// Exact multiples are untouched in every mode.
		{"floor exact", billing.Rounding{Mode: billing.RoundFloor, Step: 15}, 45, 45},
		{"ceiling exact", billing.Rounding{Mode: billing.RoundCeiling, Step: 15}, 45, 45},
		{"nearest exact", billing.Rounding{Mode: billing.RoundNearest, Step: 15}, 45, 45},

		// Step <= 0 behaves as 1.
		{"zero step", billing.Rounding{Mode: billing.RoundCeiling, Step: 0}, 29, 29},

		{"zero minutes", billing.Rounding{Mode: billing.RoundCeiling, Step: 30}, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.out, tc.r.Apply(tc.in))
		})
	}
}

func TestRounding_TiesAwayFromZero(t *testing.T) {
	// GIVEN: A value exactly halfway between two steps
	r := billing.Rounding{Mode: billing.RoundNearest, Step: 10}

	// THEN: The tie rounds away from zero
	assert.Equal(t, 30, r.Apply(25))
	assert.Equal(t, -30, r.Apply(-25))
}

func TestRounding_Idempotent(t *testing.T) {
	// GIVEN: Every mode at a few granularities
	modes := []billing.RoundingMode{
		billing.RoundNone, billing.RoundFloor, billing.RoundCeiling, billing.RoundNearest,
	}

	for _, mode := range modes {
		for _, step := range []int{1, 5, 15, 30} {
			r := billing.Rounding{Mode: mode, Step: step}
			for in := -70; in <= 70; in++ {
				// WHEN: Applying twice
				once := r.Apply(in)

				// THEN: The output is a fixed point
				assert.Equal(t, once, r.Apply(once),
					"mode %s step %d in %d", mode, step, in)
			}
		}
	}
}
