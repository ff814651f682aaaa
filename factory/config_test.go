package factory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
)

func TestParse_EmptyDocumentYieldsDefaults(t *testing.T) {
	// GIVEN: An empty JSON object
	f := NewConfigFactory()

	// WHEN: Parsing it
	cfg, err := f.Parse([]byte(`{}`))

	// THEN: Every value equals the built-in default
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Eligibility.Discretionary, cfg.Eligibility.Discretionary)
	assert.Equal(t, def.Eligibility.HourlyPermit, cfg.Eligibility.HourlyPermit)
	assert.Equal(t, def.Eligibility.Benefit.MinTenureMonths, cfg.Eligibility.Benefit.MinTenureMonths)
	assert.Len(t, cfg.Eligibility.Benefit.Rules, len(def.Eligibility.Benefit.Rules))
	assert.Equal(t, def.Calendar.HolidayTables, cfg.Calendar.HolidayTables)
	assert.Equal(t, def.Calendar.Vacations, cfg.Calendar.Vacations)
}

func TestParse_PartialOverride(t *testing.T) {
	// GIVEN: A document overriding a few limits
	doc := `{
		"discretionary": {"separation_days": 20, "holiday_adjacency": false},
		"hourly_permit": {"max_per_half_month": 3},
		"benefits": {"min_tenure_months": 12}
	}`

	// WHEN: Parsing it
	cfg, err := NewConfigFactory().Parse([]byte(doc))
	require.NoError(t, err)

	// THEN: Named fields change and the rest keep their defaults
	d := cfg.Eligibility.Discretionary
	assert.Equal(t, 20, d.SeparationDays)
	assert.False(t, d.HolidayAdjacency)
	assert.Equal(t, 3, d.MaxRequestsPerYear)
	assert.Equal(t, 15, d.BlackoutDaysBefore)
	assert.Equal(t, 3, cfg.Eligibility.HourlyPermit.MaxPerHalfMonth)
	assert.Equal(t, 3, cfg.Eligibility.HourlyPermit.DurationHours)
	assert.Equal(t, 12, cfg.Eligibility.Benefit.MinTenureMonths)
}

func TestParse_CalendarSection(t *testing.T) {
	// GIVEN: A document replacing tables, rules and vacations
	doc := `{
		"calendar": {
			"holiday_tables": {"2031": [
				{"date": "2031-12-25", "name": "Christmas Day"},
				{"date": "2031-01-01", "name": "New Year's Day"}
			]},
			"recurring_holidays": [
				{"name": "New Year's Day", "month": 1, "day": 1},
				{"name": "Constitution Day", "month": 2, "weekday": "Monday", "nth": 1}
			],
			"vacations": [{"name": "Spring", "start": "2031-03-10", "end": "2031-03-14"}],
			"max_search_days": 500
		}
	}`

	// WHEN: Parsing it and building a calendar
	cfg, err := NewConfigFactory().Parse([]byte(doc))
	require.NoError(t, err)
	c, err := calendar.New(cfg.Calendar)
	require.NoError(t, err)

	// THEN: The table is sorted and used for its year
	table := cfg.Calendar.HolidayTables[2031]
	require.Len(t, table, 2)
	assert.Equal(t, "2031-01-01", table[0].Date.String())
	assert.True(t, c.IsHoliday(generic.MustParseDate("2031-12-25")))

	// AND: Recurring rules cover years without a table
	assert.True(t, c.IsHoliday(generic.MustParseDate("2032-01-01")))
	assert.True(t, c.IsHoliday(generic.MustParseDate("2032-02-02")))
	assert.False(t, c.IsHoliday(generic.MustParseDate("2032-12-25")))

	// AND: Vacations and the cap are replaced
	assert.True(t, c.IsVacationDay(generic.MustParseDate("2031-03-12")))
	assert.False(t, c.IsVacationDay(generic.MustParseDate("2026-07-20")))
	assert.Equal(t, 500, cfg.Calendar.MaxSearchDays)
}

func TestParse_BenefitRulesMergeByKind(t *testing.T) {
	// GIVEN: A document redefining the marriage rule only
	doc := `{"benefits": {"rules": [
		{"kind": "marriage", "name": "Marriage", "max_days": 3, "max_days_by_category": {"support": 2}}
	]}}`

	// WHEN: Parsing it
	cfg, err := NewConfigFactory().Parse([]byte(doc))
	require.NoError(t, err)
	catalog, err := eligibility.NewCatalog(cfg.Eligibility.Benefit.Rules)
	require.NoError(t, err)

	// THEN: Marriage is replaced and every other kind keeps its default
	marriage, ok := catalog.Rule(generic.BenefitMarriage)
	require.True(t, ok)
	assert.Equal(t, 3, *marriage.MaxFor(generic.CategoryTeaching))
	assert.Equal(t, 2, *marriage.MaxFor(generic.CategorySupport))
	assert.Empty(t, marriage.Documents)

	maternal, ok := catalog.Rule(generic.BenefitMaternalCare)
	require.True(t, ok)
	assert.True(t, maternal.Cumulative)
	assert.Equal(t, 7, *maternal.MaxFor(generic.CategoryTeaching))
	assert.Len(t, catalog.Rules(), len(generic.BenefitKinds()))
}

func TestParse_InvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"malformed json":      `{"calendar":`,
		"bad table year":      `{"calendar": {"holiday_tables": {"next": []}}}`,
		"table date in year":  `{"calendar": {"holiday_tables": {"2031": [{"date": "2030-01-01", "name": "x"}]}}}`,
		"bad date":            `{"calendar": {"vacations": [{"name": "x", "start": "2031-13-01", "end": "2031-12-01"}]}}`,
		"inverted vacation":   `{"calendar": {"vacations": [{"name": "x", "start": "2031-03-14", "end": "2031-03-10"}]}}`,
		"bad month":           `{"calendar": {"recurring_holidays": [{"name": "x", "month": 13, "day": 1}]}}`,
		"bad weekday":         `{"calendar": {"recurring_holidays": [{"name": "x", "month": 2, "weekday": "funday", "nth": 1}]}}`,
		"bad nth":             `{"calendar": {"recurring_holidays": [{"name": "x", "month": 2, "weekday": "monday", "nth": 0}]}}`,
		"negative separation": `{"discretionary": {"separation_days": -1}}`,
		"zero request days":   `{"discretionary": {"days_per_request": 0}}`,
		"unknown appointment": `{"benefits": {"excluded_appointments": ["contractor"]}}`,
		"unknown benefit":     `{"benefits": {"rules": [{"kind": "sabbatical"}]}}`,
		"unknown category":    `{"benefits": {"rules": [{"kind": "marriage", "max_days_by_category": {"admin": 1}}]}}`,
		"cumulative no cap":   `{"benefits": {"rules": [{"kind": "tolerance_half_hour", "cumulative": true}]}}`,
	}

	f := NewConfigFactory()
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Parse([]byte(doc))
			assert.ErrorIs(t, err, generic.ErrInvalidConfig)
		})
	}
}

func TestToJSON_RoundTripsDefaults(t *testing.T) {
	// GIVEN: The default configuration rendered as JSON
	f := NewConfigFactory()
	cj := f.ToJSON(Default())

	// WHEN: Converting it back
	cfg, err := f.FromJSON(cj)
	require.NoError(t, err)

	// THEN: Both calendars classify a sample of dates identically
	want := calendar.MustNew(Default().Calendar)
	got := calendar.MustNew(cfg.Calendar)
	for day := generic.MustParseDate("2025-12-01"); day.Before(generic.MustParseDate("2027-12-31")); day = day.AddDays(7) {
		assert.Equal(t, want.Classify(day), got.Classify(day), day.String())
	}
	for _, year := range []int{2027, 2030} {
		assert.Equal(t, want.Holidays(year), got.Holidays(year))
	}
	assert.Equal(t, Default().Eligibility.Discretionary, cfg.Eligibility.Discretionary)

	// AND: Nth-weekday rules keep their weekday and position
	var constitution *RecurringHolidayJSON
	for i := range cj.Calendar.Recurring {
		if cj.Calendar.Recurring[i].Weekday != "" {
			constitution = &cj.Calendar.Recurring[i]
			break
		}
	}
	require.NotNil(t, constitution)
	assert.Equal(t, "monday", constitution.Weekday)
	assert.Equal(t, int(time.February), constitution.Month)
	assert.Equal(t, 1, constitution.Nth)
}

func TestLoad(t *testing.T) {
	f := NewConfigFactory()

	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := f.Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Eligibility.Discretionary, cfg.Eligibility.Discretionary)
	})

	t.Run("reads a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"hourly_permit": {"max_per_half_month": 4}}`), 0o600))

		cfg, err := f.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Eligibility.HourlyPermit.MaxPerHalfMonth)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := f.Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
