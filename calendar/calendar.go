/*
Package calendar classifies dates as working or non-working and does
business-day arithmetic.

PURPOSE:
  A business day is a weekday that is neither a holiday nor inside a
  configured vacation range. Every leave rule that talks about "N business
  days" goes through this package.

HOLIDAY SOURCES:
  1. Explicit per-year tables (Config.HolidayTables)
  2. Recurring rules computed with rickar/cal for any other year

  A year with an explicit table uses only that table.

MEMOIZATION:
  Holiday sets are computed once per year per Calendar instance and kept
  in a mutex-guarded map. There is no package-level state; two calendars
  with different configurations never see each other's data.

ITERATION CAP:
  AddBusinessDays and SubtractBusinessDays walk one calendar day at a time.
  A configuration that makes a long stretch non-business (e.g. overlapping
  vacations covering years) would make that walk run away. The walk gives
  up after MaxSearchDays consecutive non-business days and returns
  *generic.CalendarConfigError. This is the only hard failure in the package.

SEE ALSO:
  - config.go: Config, defaults, recurring-holiday builders
  - eligibility/: The rules built on top of this package
*/
package calendar

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/generic"
)

// Calendar is safe for concurrent use.
type Calendar struct {
	cfg Config

	mu       sync.RWMutex
	holidays map[int]map[generic.Date]Holiday
}

// New builds a calendar from cfg. A zero MaxSearchDays takes the default.
func New(cfg Config) (*Calendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxSearchDays == 0 {
		cfg.MaxSearchDays = DefaultMaxSearchDays
	}
	vacations := make([]Vacation, len(cfg.Vacations))
	copy(vacations, cfg.Vacations)
	sort.SliceStable(vacations, func(i, j int) bool { return vacations[i].Start.Before(vacations[j].Start) })
	cfg.Vacations = vacations

	return &Calendar{
		cfg:      cfg,
		holidays: make(map[int]map[generic.Date]Holiday),
	}, nil
}

// MustNew is New for static configurations known to be valid.
func MustNew(cfg Config) *Calendar {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func (c *Calendar) IsWeekend(d generic.Date) bool {
	return d.IsWeekend()
}

func (c *Calendar) IsHoliday(d generic.Date) bool {
	_, ok := c.HolidayOn(d)
	return ok
}

// HolidayOn returns the holiday falling on d, if any.
func (c *Calendar) HolidayOn(d generic.Date) (Holiday, bool) {
	h, ok := c.holidaySet(d.Year())[d]
	return h, ok
}

// IsVacationDay is true if d lies in any vacation range, endpoints included.
func (c *Calendar) IsVacationDay(d generic.Date) bool {
	_, ok := c.VacationOn(d)
	return ok
}

// VacationOn returns the first vacation range containing d.
func (c *Calendar) VacationOn(d generic.Date) (Vacation, bool) {
	for _, v := range c.cfg.Vacations {
		if v.Contains(d) {
			return v, true
		}
	}
	return Vacation{}, false
}

func (c *Calendar) IsBusinessDay(d generic.Date) bool {
	return !c.IsWeekend(d) && !c.IsHoliday(d) && !c.IsVacationDay(d)
}

// DayKind says why a date is or is not a business day.
type DayKind string

const (
	DayBusiness DayKind = "business"
	DayWeekend  DayKind = "weekend"
	DayHoliday  DayKind = "holiday"
	DayVacation DayKind = "vacation"
)

// DayInfo is the classification of one date. Name is the holiday or
// vacation name when relevant.
type DayInfo struct {
	Date     generic.Date `json:"date"`
	Kind     DayKind      `json:"kind"`
	Business bool         `json:"business"`
	Name     string       `json:"name,omitempty"`
}

// Classify reports the first non-business reason found, checking
// weekend, then holiday, then vacation.
func (c *Calendar) Classify(d generic.Date) DayInfo {
	if c.IsWeekend(d) {
		return DayInfo{Date: d, Kind: DayWeekend}
	}
	if h, ok := c.HolidayOn(d); ok {
		return DayInfo{Date: d, Kind: DayHoliday, Name: h.Name}
	}
	if v, ok := c.VacationOn(d); ok {
		return DayInfo{Date: d, Kind: DayVacation, Name: v.Name}
	}
	return DayInfo{Date: d, Kind: DayBusiness, Business: true}
}

// Holidays returns the holidays of a year in date order.
func (c *Calendar) Holidays(year int) []Holiday {
	set := c.holidaySet(year)
	result := make([]Holiday, 0, len(set))
	for _, h := range set {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// Vacations returns the configured vacation ranges ordered by start.
func (c *Calendar) Vacations() []Vacation {
	result := make([]Vacation, len(c.cfg.Vacations))
	copy(result, c.cfg.Vacations)
	return result
}

func (c *Calendar) holidaySet(year int) map[generic.Date]Holiday {
	c.mu.RLock()
	set, ok := c.holidays[year]
	c.mu.RUnlock()
	if ok {
		return set
	}

	set = c.computeHolidays(year)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.holidays[year]; ok {
		return existing
	}
	c.holidays[year] = set
	return set
}

func (c *Calendar) computeHolidays(year int) map[generic.Date]Holiday {
	set := make(map[generic.Date]Holiday)
	if table, ok := c.cfg.HolidayTables[year]; ok {
		for _, h := range table {
			set[h.Date] = h
		}
		return set
	}
	for _, rule := range c.cfg.Recurring {
		actual, _ := rule.Calc(year)
		if actual.IsZero() {
			continue // outside the rule's StartYear/EndYear
		}
		d := generic.DateOf(actual)
		set[d] = Holiday{Date: d, Name: rule.Name}
	}
	return set
}

// =============================================================================
// ARITHMETIC
// =============================================================================

// CountBusinessDays counts business days in [start, end]. Zero if start > end.
func (c *Calendar) CountBusinessDays(start, end generic.Date) int {
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// AddBusinessDays returns the date on which the nth business day after d
// lands. d itself is never counted. n <= 0 returns d unchanged.
func (c *Calendar) AddBusinessDays(d generic.Date, n int) (generic.Date, error) {
	return c.walk(d, n, 1)
}

// SubtractBusinessDays is AddBusinessDays walking backward.
func (c *Calendar) SubtractBusinessDays(d generic.Date, n int) (generic.Date, error) {
	return c.walk(d, n, -1)
}

// NextBusinessDay returns the first business day strictly after d.
func (c *Calendar) NextBusinessDay(d generic.Date) (generic.Date, error) {
	return c.walk(d, 1, 1)
}

func (c *Calendar) walk(from generic.Date, n, step int) (generic.Date, error) {
	current := from
	found, gap := 0, 0
	for found < n {
		current = current.AddDays(step)
		if c.IsBusinessDay(current) {
			found++
			gap = 0
			continue
		}
		gap++
		if gap >= c.cfg.MaxSearchDays {
			direction := "forward"
			if step < 0 {
				direction = "backward"
			}
			return generic.Date{}, &generic.CalendarConfigError{
				From:      from,
				Direction: direction,
				Wanted:    n,
				Found:     found,
				Cap:       c.cfg.MaxSearchDays,
			}
		}
	}
	return current, nil
}

// =============================================================================
// BLACKOUTS
// =============================================================================

// InVacationBlackout reports whether d falls in [start - daysBefore business
// days, start] or [end, end + daysAfter business days] of any vacation range.
// A zero window size disables that side. The message names the boundary.
func (c *Calendar) InVacationBlackout(d generic.Date, daysBefore, daysAfter int) (bool, string, error) {
	for _, v := range c.cfg.Vacations {
		if daysBefore > 0 {
			from, err := c.SubtractBusinessDays(v.Start, daysBefore)
			if err != nil {
				return false, "", err
			}
			if (generic.Period{Start: from, End: v.Start}).Contains(d) {
				return true, fmt.Sprintf("blocked: within %d business days before the %s vacation starting %s",
					daysBefore, vacationLabel(v), v.Start), nil
			}
		}
		if daysAfter > 0 {
			to, err := c.AddBusinessDays(v.End, daysAfter)
			if err != nil {
				return false, "", err
			}
			if (generic.Period{Start: v.End, End: to}).Contains(d) {
				return true, fmt.Sprintf("blocked: within %d business days after the %s vacation ending %s",
					daysAfter, vacationLabel(v), v.End), nil
			}
		}
	}
	return false, "", nil
}

// AdjacentToHoliday reports whether d is the business day immediately
// before or after any holiday of d's year.
func (c *Calendar) AdjacentToHoliday(d generic.Date) (bool, string, error) {
	for _, h := range c.Holidays(d.Year()) {
		before, err := c.SubtractBusinessDays(h.Date, 1)
		if err != nil {
			return false, "", err
		}
		if d.Equal(before) {
			return true, fmt.Sprintf("blocked: business day before %s (%s)", h.Name, h.Date), nil
		}
		after, err := c.AddBusinessDays(h.Date, 1)
		if err != nil {
			return false, "", err
		}
		if d.Equal(after) {
			return true, fmt.Sprintf("blocked: business day after %s (%s)", h.Name, h.Date), nil
		}
	}
	return false, "", nil
}

func vacationLabel(v Vacation) string {
	if v.Name == "" {
		return "institutional"
	}
	return v.Name
}

// IsEarlyWeek is true for Monday, Tuesday and Wednesday.
func IsEarlyWeek(d generic.Date) bool {
	switch d.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday:
		return true
	}
	return false
}
