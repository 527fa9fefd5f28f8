package billing

// =============================================================================
// ROUNDING POLICY - Raw minutes to billable minutes
// =============================================================================

// RoundingMode selects how raw minute counts become billable minutes.
type RoundingMode string

const (
	RoundNone    RoundingMode = "none"
	RoundFloor   RoundingMode = "floor"
	RoundCeiling RoundingMode = "ceiling"
	RoundNearest RoundingMode = "nearest"
)

// Rounding is a (mode, granularity) pair. It is applied independently to the
// extra-minutes and night-minutes sums, never to the base shift duration.
type Rounding struct {
	Mode RoundingMode
	Step int // granularity in minutes; <=0 behaves as 1
}

// NoRounding is the identity policy.
var NoRounding = Rounding{Mode: RoundNone}

// Apply maps a raw minute count to a billable minute count. Stateless and
// idempotent: Apply(Apply(x)) == Apply(x) for every mode.
func (r Rounding) Apply(minutes int) int {
	if r.Mode == RoundNone || r.Mode == "" {
		return minutes
	}
	step := r.Step
	if step <= 0 {
		step = 1
	}

	q, rem := minutes/step, minutes%step
	if rem == 0 {
		return minutes
	}

	switch r.Mode {
	case RoundFloor:
		if minutes < 0 {
			q--
		}
		return q * step
	case RoundCeiling:
		if minutes > 0 {
			q++
		}
		return q * step
	case RoundNearest:
		// Ties round away from zero.
		half := (step + 1) / 2
		if rem < 0 {
			rem = -rem
		}
		if rem >= half {
			if minutes > 0 {
				q++
			} else {
				q--
			}
		}
		return q * step
	default:
		return minutes
	}
}
