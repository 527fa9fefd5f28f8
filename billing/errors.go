/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place. No error here ever aborts a batch: rows and
  blocks that fail are flagged and surfaced in the output, and the run
  continues.

ERROR CATEGORIES:
  1. Parse errors    - Shift label carries no recognizable time range
  2. Row errors      - Row unusable for aggregation (no date)
  3. Policy errors   - Block cannot be priced under the active policy

USAGE:
  if errors.Is(cb.Err, billing.ErrPolicyMismatch) { ... }
*/
package billing

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrShiftUnparsable is returned when no two time tokens can be
	// extracted from a shift label. Callers treat the row as "shift
	// unknown", not as a batch failure.
	ErrShiftUnparsable = errors.New("shift label unparsable")

	// ErrMissingDate is returned for rows without a usable date. Such rows
	// are dropped from aggregation, counted and reported.
	ErrMissingDate = errors.New("row has no usable date")

	// ErrPolicyMismatch is returned when a block cannot be priced under
	// the active policy, e.g. its duration falls below the minimum band.
	ErrPolicyMismatch = errors.New("block does not match rate policy")

	// ErrPolicyNotFound is returned when no rate policy is registered for
	// the requested operator/site.
	ErrPolicyNotFound = errors.New("rate policy not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseError reports an unparsable shift label together with the text that
// failed.
type ParseError struct {
	Label string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no time range in shift label %q", e.Label)
}

func (e *ParseError) Unwrap() error { return ErrShiftUnparsable }

// PolicyMismatchError reports why a block could not be priced.
type PolicyMismatchError struct {
	Policy      PolicyID
	Date        time.Time
	Site        SiteCode
	DurationMin int
	MinimumMin  int
	Reason      string
}

func (e *PolicyMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("policy %s: %s", e.Policy, e.Reason)
	}
	return fmt.Sprintf("policy %s: duration %dmin below minimum band %dmin",
		e.Policy, e.DurationMin, e.MinimumMin)
}

func (e *PolicyMismatchError) Unwrap() error { return ErrPolicyMismatch }
