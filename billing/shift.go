/*
shift.go - Free-text shift label parsing

PURPOSE:
  Work plans record shifts as free text: "08-11", "8:00-11", "8.00–11.30",
  "SC1 08-11", "NO DEC 23:30-02:30". This file normalizes all of these into a
  ShiftInterval with a canonical HH:MM-HH:MM label used as the block grouping
  key.

PARSING RULES:
  - Tokens are hour or hour:minute; minutes default to :00
  - Dash-like separators (-, –, —) and dots between two full tokens both
    count as range separators
  - A leading alphanumeric prefix ("SC1", "AV") is preserved separately and
    never interpreted as time
  - "NO DEC" anywhere (case-insensitive, with or without space) waives
    overtime and is stripped from the label
  - End not strictly after start means the shift crosses midnight: the end is
    advanced one day. This is the only implicit day adjustment.

A label with no extractable time range yields a ParseError; callers keep the
row as an error block rather than failing the batch.
*/
package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// SHIFT INTERVAL
// =============================================================================

// ShiftInterval is the normalized result of parsing a shift label.
// When NextDay is set the end clock time falls on the day after the start.
type ShiftInterval struct {
	Start   ClockTime
	End     ClockTime
	NextDay bool

	Prefix     string
	NoOvertime bool

	// Label is the canonical zero-padded "HH:MM-HH:MM" form. Two labels
	// normalizing to the same Label are the same shift regardless of
	// prefix.
	Label string
}

// DurationMin returns the interval length in minutes, always positive.
func (s ShiftInterval) DurationMin() int {
	d := s.End.Minutes() - s.Start.Minutes()
	if s.NextDay {
		d += 24 * 60
	}
	return d
}

// =============================================================================
// PARSER
// =============================================================================

var (
	noDecRe = regexp.MustCompile(`(?i)\bno\s*dec\b`)

	// Two time tokens joined by a dash-like separator. Dots inside tokens
	// have been rewritten to colons before this runs.
	timeRangeRe = regexp.MustCompile(`(\d{1,2})(?::(\d{1,2}))?\s*[-–—]\s*(\d{1,2})(?::(\d{1,2}))?`)

	// "13:30.17:00" / "13;15-16;15": a dot or semicolon between two full
	// tokens acts as a range separator.
	dottedRangeRe = regexp.MustCompile(`(\d{1,2}[:;.]\d{1,2})[.;](\d{1,2}[:;.]\d{1,2})`)

	spacesRe = regexp.MustCompile(`\s+`)
)

// ParseShift normalizes a free-text shift label. It returns a ParseError
// when no two time tokens can be extracted.
func ParseShift(label string) (ShiftInterval, error) {
	s := spacesRe.ReplaceAllString(strings.TrimSpace(label), " ")

	noOvertime := noDecRe.MatchString(s)
	s = strings.TrimSpace(noDecRe.ReplaceAllString(s, ""))

	// Separator normalization: dotted ranges become dashes, remaining dots
	// and semicolons are minute separators.
	s = dottedRangeRe.ReplaceAllString(s, "$1-$2")
	s = strings.NewReplacer(".", ":", ";", ":").Replace(s)

	m := timeRangeRe.FindStringSubmatchIndex(s)
	if m == nil {
		return ShiftInterval{NoOvertime: noOvertime}, &ParseError{Label: label}
	}

	start, okS := tokenClock(s, m, 1, 2)
	end, okE := tokenClock(s, m, 3, 4)
	if !okS || !okE {
		return ShiftInterval{NoOvertime: noOvertime}, &ParseError{Label: label}
	}

	prefix := strings.TrimSpace(strings.Trim(s[:m[0]], " -"))
	nextDay := end.Minutes() <= start.Minutes()

	return ShiftInterval{
		Start:      start,
		End:        end,
		NextDay:    nextDay,
		Prefix:     prefix,
		NoOvertime: noOvertime,
		Label:      fmt.Sprintf("%s-%s", start, end),
	}, nil
}

// tokenClock extracts one hour[:minute] token from a submatch index pair.
func tokenClock(s string, m []int, hourGroup, minGroup int) (ClockTime, bool) {
	h, _ := strconv.Atoi(s[m[2*hourGroup]:m[2*hourGroup+1]])
	min := 0
	if m[2*minGroup] >= 0 {
		min, _ = strconv.Atoi(s[m[2*minGroup]:m[2*minGroup+1]])
	}
	if h < 0 || h > 47 || min < 0 || min > 59 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: h % 24, Minute: min}, true
}
