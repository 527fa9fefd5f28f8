package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CLOCK TIME - Wall-clock time of day, no date attached
// =============================================================================

// ClockTime is a time of day at minute granularity.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime clamps nothing; callers validate ranges before constructing.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute}
}

// Minutes returns minutes after midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// At anchors the clock time onto a calendar date.
func (c ClockTime) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

var clockRe = regexp.MustCompile(`^\s*(\d{1,2})\s*(?::\s*(\d{1,2}))?(?:\s*:\s*\d{1,2})?\s*$`)

// ParseClockTime converts cell text into a ClockTime. Accepts "8", "08",
// "8:10", "08:10", "08:10:30" and the dot/semicolon variants seen in work
// plans ("8.10", "20;30"). Hours up to 47 are tolerated and wrapped: late
// departures are sometimes written as 25:30 for 01:30 next day.
func ParseClockTime(s string) (ClockTime, bool) {
	s = strings.NewReplacer(".", ":", ";", ":", ",", ":").Replace(strings.TrimSpace(s))
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return ClockTime{}, false
	}
	h, _ := strconv.Atoi(m[1])
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	if h < 0 || h > 47 || min < 0 || min > 59 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: h % 24, Minute: min}, true
}

// =============================================================================
// DAY HELPERS
// =============================================================================

// Day truncates an instant to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey renders a date as a stable map key.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// MinutesBetween returns whole minutes from a to b (negative when b < a).
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}

// =============================================================================
// NIGHT WINDOW OVERLAP
// =============================================================================

// NightOverlapMinutes computes the minutes of [start, end) falling inside the
// recurring nightly window [winStart, winEnd). The window may cross midnight
// (23:00-05:00). The window instances of the previous, same and next day are
// checked, which covers any interval up to 24h with any rollover.
func NightOverlapMinutes(start, end time.Time, winStart, winEnd ClockTime) int {
	if !end.After(start) {
		return 0
	}

	span := winEnd.Minutes() - winStart.Minutes()
	if span <= 0 {
		span += 24 * 60 // crosses midnight
	}
	if span == 0 {
		return 0
	}

	total := 0
	base := Day(start).AddDate(0, 0, -1)
	for k := 0; k < 3; k++ {
		day := base.AddDate(0, 0, k)
		ws := winStart.At(day)
		we := ws.Add(time.Duration(span) * time.Minute)
		s := maxTime(start, ws)
		e := minTime(end, we)
		if e.After(s) {
			total += MinutesBetween(s, e)
		}
	}
	return total
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// FormatHMM renders a minute count as "H:MM" for rollups and sheets.
func FormatHMM(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
