/*
calendar.go - Holiday calendar

PURPOSE:
  Derives the set of holiday dates for a year: the fixed civil holidays plus
  Easter Sunday (Meeus/Jones/Butcher computus) and Easter Monday. The set is
  derived once per year and cached for the run.

PRECEDENCE:
  1. A row's own is-holiday cell, when non-empty, wins for that row's date
  2. An externally supplied override set REPLACES (not merges with) the
     computed calendar
  3. Otherwise the computed calendar applies
*/
package billing

import (
	"strings"
	"time"
)

// =============================================================================
// HOLIDAY SET
// =============================================================================

// HolidaySet is a set of calendar dates, keyed by DayKey.
type HolidaySet map[string]bool

// NewHolidaySet builds a set from explicit dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	hs := make(HolidaySet, len(dates))
	for _, d := range dates {
		hs[DayKey(d)] = true
	}
	return hs
}

// Contains reports whether the date is in the set.
func (hs HolidaySet) Contains(d time.Time) bool { return hs[DayKey(d)] }

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar resolves holiday dates. The zero value computes the civil
// calendar; setting Override replaces computation entirely.
type Calendar struct {
	// Override, when non-nil, replaces the computed set for every year.
	Override HolidaySet

	cache map[int]HolidaySet
}

// NewCalendar returns a computing calendar.
func NewCalendar() *Calendar { return &Calendar{} }

// NewOverrideCalendar returns a calendar that answers only from the given
// set.
func NewOverrideCalendar(override HolidaySet) *Calendar {
	return &Calendar{Override: override}
}

// Holidays returns the holiday set for a year.
func (c *Calendar) Holidays(year int) HolidaySet {
	if c.Override != nil {
		return c.Override
	}
	if hs, ok := c.cache[year]; ok {
		return hs
	}
	hs := computeHolidays(year)
	if c.cache == nil {
		c.cache = make(map[int]HolidaySet)
	}
	c.cache[year] = hs
	return hs
}

// IsHoliday checks a single date against the calendar.
func (c *Calendar) IsHoliday(d time.Time) bool {
	return c.Holidays(d.Year()).Contains(d)
}

// fixedHolidays are the month/day pairs of the Italian civil calendar.
var fixedHolidays = [][2]int{
	{1, 1},   // New Year
	{1, 6},   // Epiphany
	{4, 25},  // Liberation Day
	{5, 1},   // Labour Day
	{6, 2},   // Republic Day
	{8, 15},  // Assumption
	{11, 1},  // All Saints
	{12, 8},  // Immaculate Conception
	{12, 25}, // Christmas
	{12, 26}, // St. Stephen
}

func computeHolidays(year int) HolidaySet {
	hs := make(HolidaySet, len(fixedHolidays)+2)
	for _, md := range fixedHolidays {
		hs[DayKey(time.Date(year, time.Month(md[0]), md[1], 0, 0, 0, 0, time.UTC))] = true
	}
	easter := Easter(year)
	hs[DayKey(easter)] = true
	hs[DayKey(easter.AddDate(0, 0, 1))] = true // Easter Monday
	return hs
}

// Easter computes Easter Sunday for a Gregorian year using the
// Meeus/Jones/Butcher algorithm.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ROW-LEVEL OVERRIDE
// =============================================================================

// TruthyHolidayCell interprets the values work plans use to mark a holiday
// row: 1/true/si/sì/x/yes or any text containing "festivo".
func TruthyHolidayCell(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1", "true", "t", "si", "sì", "yes", "y", "x":
		return true
	}
	return strings.Contains(s, "festivo")
}

// BlockIsHoliday resolves a block's holiday flag: the block's holiday cell,
// carried over from its member rows, takes precedence over the calendar when
// non-empty.
func BlockIsHoliday(b *Block, cal *Calendar) bool {
	if cell := strings.TrimSpace(b.HolidayCell); cell != "" {
		return TruthyHolidayCell(cell)
	}
	return cal.IsHoliday(b.Date)
}
