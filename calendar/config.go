package calendar

import (
	"fmt"
	"time"

	cal "github.com/rickar/cal/v2"

	"github.com/warp/leave-engine/generic"
)

// DefaultMaxSearchDays bounds how many consecutive non-business days a
// business-day walk may cross before the configuration is declared broken.
const DefaultMaxSearchDays = 3660

// Holiday is a single non-working date.
type Holiday struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name"`
}

// Vacation is an institutional vacation range, closed on both ends.
type Vacation struct {
	Name string `json:"name"`
	generic.Period
}

// Config is the explicit input of a Calendar. Nothing is read from globals.
type Config struct {
	// HolidayTables lists the holidays of specific years. A year present
	// here ignores Recurring entirely.
	HolidayTables map[int][]Holiday

	// Recurring computes holidays for years without a table.
	Recurring []*cal.Holiday

	Vacations []Vacation

	MaxSearchDays int
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	for year, table := range c.HolidayTables {
		for _, h := range table {
			if h.Date.IsZero() {
				return fmt.Errorf("%w: holiday %q in %d has no date", generic.ErrInvalidConfig, h.Name, year)
			}
			if h.Date.Year() != year {
				return fmt.Errorf("%w: holiday %q on %s listed under year %d", generic.ErrInvalidConfig, h.Name, h.Date, year)
			}
		}
	}
	for _, h := range c.Recurring {
		if h == nil || h.Func == nil {
			return fmt.Errorf("%w: recurring holiday without a calculation", generic.ErrInvalidConfig)
		}
	}
	for _, v := range c.Vacations {
		if v.Start.IsZero() || v.End.IsZero() {
			return fmt.Errorf("%w: vacation %q needs start and end", generic.ErrInvalidConfig, v.Name)
		}
		if !v.Valid() {
			return fmt.Errorf("%w: vacation %q ends before it starts (%s)", generic.ErrInvalidConfig, v.Name, v.Period)
		}
	}
	if c.MaxSearchDays < 0 {
		return fmt.Errorf("%w: max search days must not be negative", generic.ErrInvalidConfig)
	}
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the institutional calendar for the 2025-2026 cycle.
func DefaultConfig() Config {
	return Config{
		HolidayTables: map[int][]Holiday{
			2025: {
				{Date: generic.NewDate(2025, time.January, 1), Name: "New Year's Day"},
				{Date: generic.NewDate(2025, time.February, 3), Name: "Constitution Day"},
				{Date: generic.NewDate(2025, time.March, 17), Name: "Benito Juarez's Birthday"},
				{Date: generic.NewDate(2025, time.May, 1), Name: "Labour Day"},
				{Date: generic.NewDate(2025, time.September, 16), Name: "Independence Day"},
				{Date: generic.NewDate(2025, time.November, 17), Name: "Revolution Day"},
				{Date: generic.NewDate(2025, time.December, 25), Name: "Christmas Day"},
			},
			2026: {
				{Date: generic.NewDate(2026, time.January, 1), Name: "New Year's Day"},
				{Date: generic.NewDate(2026, time.February, 2), Name: "Constitution Day"},
				{Date: generic.NewDate(2026, time.March, 16), Name: "Benito Juarez's Birthday"},
				{Date: generic.NewDate(2026, time.May, 1), Name: "Labour Day"},
				{Date: generic.NewDate(2026, time.September, 16), Name: "Independence Day"},
				{Date: generic.NewDate(2026, time.November, 16), Name: "Revolution Day"},
				{Date: generic.NewDate(2026, time.December, 25), Name: "Christmas Day"},
			},
		},
		Recurring: DefaultRecurring(),
		Vacations: []Vacation{
			{Name: "Summer", Period: generic.Period{Start: generic.MustParseDate("2026-07-17"), End: generic.MustParseDate("2026-08-18")}},
			{Name: "Winter", Period: generic.Period{Start: generic.MustParseDate("2025-12-22"), End: generic.MustParseDate("2026-01-06")}},
			{Name: "Holy Week", Period: generic.Period{Start: generic.MustParseDate("2026-04-06"), End: generic.MustParseDate("2026-04-17")}},
		},
		MaxSearchDays: DefaultMaxSearchDays,
	}
}

// DefaultRecurring returns the four fixed-date holidays plus the three
// movable Mondays (1st of February, 3rd of March, 3rd of November).
func DefaultRecurring() []*cal.Holiday {
	return []*cal.Holiday{
		FixedHoliday("New Year's Day", time.January, 1),
		NthWeekdayHoliday("Constitution Day", time.February, time.Monday, 1),
		NthWeekdayHoliday("Benito Juarez's Birthday", time.March, time.Monday, 3),
		FixedHoliday("Labour Day", time.May, 1),
		FixedHoliday("Independence Day", time.September, 16),
		NthWeekdayHoliday("Revolution Day", time.November, time.Monday, 3),
		FixedHoliday("Christmas Day", time.December, 25),
	}
}

// FixedHoliday falls on the same month and day every year.
func FixedHoliday(name string, month time.Month, day int) *cal.Holiday {
	return &cal.Holiday{
		Name:  name,
		Type:  cal.ObservancePublic,
		Month: month,
		Day:   day,
		Func:  cal.CalcDayOfMonth,
	}
}

// NthWeekdayHoliday falls on the nth weekday of a month (n=1 is the first).
func NthWeekdayHoliday(name string, month time.Month, weekday time.Weekday, n int) *cal.Holiday {
	return &cal.Holiday{
		Name:    name,
		Type:    cal.ObservancePublic,
		Month:   month,
		Weekday: weekday,
		Offset:  n,
		Func:    cal.CalcWeekdayOffset,
	}
}
