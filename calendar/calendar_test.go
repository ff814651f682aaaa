package calendar_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) generic.Date { return generic.MustParseDate(s) }

func defaultCalendar(t *testing.T) *calendar.Calendar {
	c, err := calendar.New(calendar.DefaultConfig())
	require.NoError(t, err)
	return c
}

// weekdaysOnly has no holidays and no vacations.
func weekdaysOnly(t *testing.T) *calendar.Calendar {
	c, err := calendar.New(calendar.Config{})
	require.NoError(t, err)
	return c
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestCalendar_ExplicitHolidayTables(t *testing.T) {
	c := defaultCalendar(t)

	for _, s := range []string{"2025-01-01", "2025-02-03", "2025-03-17", "2025-05-01", "2025-09-16", "2025-11-17", "2025-12-25"} {
		assert.True(t, c.IsHoliday(d(s)), s)
	}
	for _, s := range []string{"2026-01-01", "2026-02-02", "2026-03-16", "2026-05-01", "2026-09-16", "2026-11-16", "2026-12-25"} {
		assert.True(t, c.IsHoliday(d(s)), s)
	}
	assert.False(t, c.IsHoliday(d("2025-02-02")))
	assert.Len(t, c.Holidays(2026), 7)
}

func TestCalendar_ComputedHolidays_MovableMondays(t *testing.T) {
	// GIVEN: 2027 has no explicit table
	// WHEN: Listing its holidays
	// THEN: Fixed dates plus 1st Monday Feb, 3rd Monday Mar, 3rd Monday Nov

	c := defaultCalendar(t)

	var dates []string
	for _, h := range c.Holidays(2027) {
		dates = append(dates, h.Date.String())
	}
	assert.Equal(t, []string{
		"2027-01-01", "2027-02-01", "2027-03-15", "2027-05-01",
		"2027-09-16", "2027-11-15", "2027-12-25",
	}, dates)
}

func TestCalendar_ComputedHolidays_MatchExplicitTables(t *testing.T) {
	// GIVEN: A calendar with only the recurring rules
	// THEN: It reproduces the published 2025 and 2026 tables

	computed, err := calendar.New(calendar.Config{Recurring: calendar.DefaultRecurring()})
	require.NoError(t, err)
	explicit := defaultCalendar(t)

	for _, year := range []int{2025, 2026} {
		assert.Equal(t, explicit.Holidays(year), computed.Holidays(year), "year %d", year)
	}
}

func TestCalendar_VacationEndpointsInclusive(t *testing.T) {
	c := defaultCalendar(t)

	assert.False(t, c.IsVacationDay(d("2026-07-16")))
	assert.True(t, c.IsVacationDay(d("2026-07-17")))
	assert.True(t, c.IsVacationDay(d("2026-08-18")))
	assert.False(t, c.IsVacationDay(d("2026-08-19")))
}

func TestCalendar_Classify(t *testing.T) {
	c := defaultCalendar(t)

	tests := []struct {
		date     string
		kind     calendar.DayKind
		business bool
		name     string
	}{
		{"2026-01-01", calendar.DayHoliday, false, "New Year's Day"},
		{"2026-01-03", calendar.DayWeekend, false, ""},
		{"2026-01-05", calendar.DayVacation, false, "Winter"},
		{"2026-01-07", calendar.DayBusiness, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			info := c.Classify(d(tt.date))
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.business, info.Business)
			assert.Equal(t, tt.name, info.Name)
			assert.Equal(t, tt.business, c.IsBusinessDay(d(tt.date)))
		})
	}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestCalendar_CountSingleDay_MatchesIsBusinessDay(t *testing.T) {
	c := defaultCalendar(t)

	for day := d("2025-11-01"); day.BeforeOrEqual(d("2026-09-30")); day = day.AddDays(1) {
		want := 0
		if c.IsBusinessDay(day) {
			want = 1
		}
		require.Equal(t, want, c.CountBusinessDays(day, day), day.String())
	}
}

func TestCalendar_CountBusinessDays(t *testing.T) {
	c := defaultCalendar(t)

	// Mon 2026-03-09 .. Fri 2026-03-20 with Mon 03-16 a holiday
	assert.Equal(t, 9, c.CountBusinessDays(d("2026-03-09"), d("2026-03-20")))
	assert.Equal(t, 0, c.CountBusinessDays(d("2026-03-20"), d("2026-03-09")))
	// Whole Holy Week is vacation
	assert.Equal(t, 0, c.CountBusinessDays(d("2026-04-06"), d("2026-04-17")))
}

func TestCalendar_AddSubtract_Inverse(t *testing.T) {
	// GIVEN: No holidays or vacations
	// THEN: subtract(add(d, n), n) == d for business days d

	c := weekdaysOnly(t)

	for day := d("2030-01-01"); day.Before(d("2030-03-01")); day = day.AddDays(1) {
		if !c.IsBusinessDay(day) {
			continue
		}
		for n := 1; n <= 40; n++ {
			fwd, err := c.AddBusinessDays(day, n)
			require.NoError(t, err)
			back, err := c.SubtractBusinessDays(fwd, n)
			require.NoError(t, err)
			require.Equal(t, day, back, "d=%s n=%d", day, n)
		}
	}
}

func TestCalendar_AddBusinessDays_CrossesYearBoundary(t *testing.T) {
	c := weekdaysOnly(t)

	got, err := c.AddBusinessDays(d("2027-12-31"), 1)
	require.NoError(t, err)
	assert.Equal(t, d("2028-01-03"), got)

	got, err = c.SubtractBusinessDays(d("2028-01-03"), 2)
	require.NoError(t, err)
	assert.Equal(t, d("2027-12-30"), got)
}

func TestCalendar_AddBusinessDays_SkipsHolidaysAndVacations(t *testing.T) {
	c := defaultCalendar(t)

	// Fri 2026-03-13 +1 skips the weekend and Mon 03-16
	got, err := c.AddBusinessDays(d("2026-03-13"), 1)
	require.NoError(t, err)
	assert.Equal(t, d("2026-03-17"), got)

	// Winter vacation runs to Tue 2026-01-06
	got, err = c.NextBusinessDay(d("2025-12-19"))
	require.NoError(t, err)
	assert.Equal(t, d("2026-01-07"), got)

	got, err = c.AddBusinessDays(d("2026-03-13"), 0)
	require.NoError(t, err)
	assert.Equal(t, d("2026-03-13"), got)
}

func TestCalendar_IterationCap(t *testing.T) {
	// GIVEN: A vacation covering a decade and a small search cap
	// WHEN: Walking business days from inside it
	// THEN: A calendar configuration error, not an endless loop

	c, err := calendar.New(calendar.Config{
		Vacations: []calendar.Vacation{
			{Name: "broken", Period: generic.Period{Start: d("2030-01-01"), End: d("2039-12-31")}},
		},
		MaxSearchDays: 100,
	})
	require.NoError(t, err)

	_, err = c.AddBusinessDays(d("2030-06-01"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrCalendarMisconfigured)

	var cfgErr *generic.CalendarConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "forward", cfgErr.Direction)
	assert.Equal(t, 100, cfgErr.Cap)

	_, err = c.SubtractBusinessDays(d("2030-06-01"), 1)
	assert.ErrorIs(t, err, generic.ErrCalendarMisconfigured)

	// Counting is bounded by its range and never fails
	assert.Equal(t, 0, c.CountBusinessDays(d("2030-01-01"), d("2030-12-31")))
}

// =============================================================================
// BLACKOUTS
// =============================================================================

func TestCalendar_VacationBlackout_Before(t *testing.T) {
	c := defaultCalendar(t)

	// 15 business days before Fri 2026-07-17 lands on Fri 2026-06-26
	blocked, msg, err := c.InVacationBlackout(d("2026-06-26"), 15, 0)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, msg, "Summer")
	assert.Contains(t, msg, "2026-07-17")

	blocked, _, err = c.InVacationBlackout(d("2026-06-25"), 15, 0)
	require.NoError(t, err)
	assert.False(t, blocked)

	// The walk skips the 2026-03-16 holiday: window starts Fri 2026-03-13
	blocked, msg, err = c.InVacationBlackout(d("2026-03-13"), 15, 0)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, msg, "Holy Week")

	blocked, _, err = c.InVacationBlackout(d("2026-03-12"), 15, 0)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCalendar_VacationBlackout_After(t *testing.T) {
	c := defaultCalendar(t)

	// Disabled when daysAfter is zero
	blocked, _, err := c.InVacationBlackout(d("2026-08-19"), 15, 0)
	require.NoError(t, err)
	assert.False(t, blocked)

	blocked, msg, err := c.InVacationBlackout(d("2026-08-20"), 0, 2)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, msg, "2026-08-18")

	blocked, _, err = c.InVacationBlackout(d("2026-08-21"), 0, 2)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCalendar_AdjacentToHoliday(t *testing.T) {
	c := defaultCalendar(t)

	tests := []struct {
		date     string
		adjacent bool
	}{
		{"2026-09-15", true},  // day before Independence Day
		{"2026-09-17", true},  // day after
		{"2026-09-14", false}, // two business days before
		{"2026-03-13", true},  // Friday before Monday 03-16
		{"2026-03-17", true},  // Tuesday after
		{"2026-05-04", true},  // Monday after Friday 05-01
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			adjacent, msg, err := c.AdjacentToHoliday(d(tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.adjacent, adjacent)
			if tt.adjacent {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

// =============================================================================
// CONFIG AND CONCURRENCY
// =============================================================================

func TestCalendar_InvalidConfig(t *testing.T) {
	_, err := calendar.New(calendar.Config{
		Vacations: []calendar.Vacation{
			{Name: "inverted", Period: generic.Period{Start: d("2026-02-10"), End: d("2026-02-01")}},
		},
	})
	assert.ErrorIs(t, err, generic.ErrInvalidConfig)

	_, err = calendar.New(calendar.Config{
		HolidayTables: map[int][]calendar.Holiday{2026: {{Date: d("2025-01-01"), Name: "misfiled"}}},
	})
	assert.ErrorIs(t, err, generic.ErrInvalidConfig)
}

func TestCalendar_ConcurrentYears(t *testing.T) {
	c := defaultCalendar(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			c.IsHoliday(generic.NewDate(year, time.January, 1))
			c.Holidays(year)
		}(2024 + i%8)
	}
	wg.Wait()

	assert.True(t, c.IsHoliday(d("2030-12-25")))
}
