/*
Package factory provides JSON to Go engine configuration conversion.

PURPOSE:
  Converts a JSON engine document into calendar.Config and
  eligibility.Config. HR can change holidays, vacation ranges, limits and
  the benefit catalog without a code change.

JSON SCHEMA (every field optional, missing fields keep the defaults):
  {
    "calendar": {
      "holiday_tables": {"2026": [{"date": "2026-01-01", "name": "New Year's Day"}]},
      "recurring_holidays": [
        {"name": "Labour Day", "month": 5, "day": 1},
        {"name": "Revolution Day", "month": 11, "weekday": "monday", "nth": 3}
      ],
      "vacations": [{"name": "Summer", "start": "2026-07-17", "end": "2026-08-18"}],
      "max_search_days": 3660
    },
    "discretionary": {
      "max_requests_per_year": 3, "days_per_request": 3, "separation_days": 30,
      "blackout_days_before": 15, "blackout_days_after": 0, "holiday_adjacency": true
    },
    "hourly_permit": {"duration_hours": 3, "max_per_half_month": 2},
    "benefits": {
      "min_tenure_months": 6,
      "excluded_appointments": ["interim", "limited_term"],
      "rules": [{"kind": "marriage", "max_days": 5, "documents": ["Marriage certificate"]}]
    }
  }

MERGE RULES:
  - holiday_tables, recurring_holidays, vacations and excluded_appointments
    replace the default list when present
  - rules merge by kind: a listed kind replaces that kind's default record,
    unlisted kinds keep theirs

SEE ALSO:
  - calendar/config.go: Calendar defaults
  - eligibility/config.go: Rule defaults
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of the engine configuration.
type ConfigJSON struct {
	Calendar      *CalendarJSON      `json:"calendar,omitempty"`
	Discretionary *DiscretionaryJSON `json:"discretionary,omitempty"`
	HourlyPermit  *HourlyPermitJSON  `json:"hourly_permit,omitempty"`
	Benefits      *BenefitsJSON      `json:"benefits,omitempty"`
}

type CalendarJSON struct {
	HolidayTables map[string][]HolidayJSON `json:"holiday_tables,omitempty"` // keyed by year
	Recurring     []RecurringHolidayJSON   `json:"recurring_holidays,omitempty"`
	Vacations     []VacationJSON           `json:"vacations,omitempty"`
	MaxSearchDays *int                     `json:"max_search_days,omitempty"`
}

type HolidayJSON struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// RecurringHolidayJSON is either a fixed day (month + day) or the nth
// weekday of a month (month + weekday + nth).
type RecurringHolidayJSON struct {
	Name    string `json:"name"`
	Month   int    `json:"month"`
	Day     int    `json:"day,omitempty"`
	Weekday string `json:"weekday,omitempty"`
	Nth     int    `json:"nth,omitempty"`
}

type VacationJSON struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type DiscretionaryJSON struct {
	MaxRequestsPerYear *int  `json:"max_requests_per_year,omitempty"`
	DaysPerRequest     *int  `json:"days_per_request,omitempty"`
	SeparationDays     *int  `json:"separation_days,omitempty"`
	BlackoutDaysBefore *int  `json:"blackout_days_before,omitempty"`
	BlackoutDaysAfter  *int  `json:"blackout_days_after,omitempty"`
	HolidayAdjacency   *bool `json:"holiday_adjacency,omitempty"`
}

type HourlyPermitJSON struct {
	DurationHours   *int `json:"duration_hours,omitempty"`
	MaxPerHalfMonth *int `json:"max_per_half_month,omitempty"`
}

type BenefitsJSON struct {
	MinTenureMonths      *int              `json:"min_tenure_months,omitempty"`
	ExcludedAppointments []string          `json:"excluded_appointments,omitempty"`
	Rules                []BenefitRuleJSON `json:"rules,omitempty"`
}

type BenefitRuleJSON struct {
	Kind              string         `json:"kind"`
	Name              string         `json:"name,omitempty"`
	Description       string         `json:"description,omitempty"`
	MaxDays           *int           `json:"max_days,omitempty"`
	MaxDaysByCategory map[string]int `json:"max_days_by_category,omitempty"`
	Cumulative        bool           `json:"cumulative,omitempty"`
	Documents         []string       `json:"documents,omitempty"`
	Requirements      []string       `json:"requirements,omitempty"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// EngineConfig is everything needed to build a calendar and an eligibility engine.
type EngineConfig struct {
	Calendar    calendar.Config
	Eligibility eligibility.Config
}

// Default returns the built-in configuration.
func Default() EngineConfig {
	return EngineConfig{
		Calendar:    calendar.DefaultConfig(),
		Eligibility: eligibility.DefaultConfig(),
	}
}

// ConfigFactory converts JSON documents to EngineConfig.
type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// Load reads and parses a JSON file. An empty path yields the defaults.
func (f *ConfigFactory) Load(path string) (EngineConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read engine config: %w", err)
	}
	return f.Parse(data)
}

// Parse parses a JSON document into an EngineConfig.
func (f *ConfigFactory) Parse(data []byte) (EngineConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return EngineConfig{}, fmt.Errorf("%w: failed to parse engine config JSON: %v", generic.ErrInvalidConfig, err)
	}
	return f.FromJSON(cj)
}

// FromJSON applies cj on top of the defaults and validates the result.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (EngineConfig, error) {
	cfg := Default()

	if cj.Calendar != nil {
		if err := applyCalendar(&cfg.Calendar, *cj.Calendar); err != nil {
			return EngineConfig{}, err
		}
	}
	if dj := cj.Discretionary; dj != nil {
		d := &cfg.Eligibility.Discretionary
		setInt(&d.MaxRequestsPerYear, dj.MaxRequestsPerYear)
		setInt(&d.DaysPerRequest, dj.DaysPerRequest)
		setInt(&d.SeparationDays, dj.SeparationDays)
		setInt(&d.BlackoutDaysBefore, dj.BlackoutDaysBefore)
		setInt(&d.BlackoutDaysAfter, dj.BlackoutDaysAfter)
		if dj.HolidayAdjacency != nil {
			d.HolidayAdjacency = *dj.HolidayAdjacency
		}
	}
	if hj := cj.HourlyPermit; hj != nil {
		setInt(&cfg.Eligibility.HourlyPermit.DurationHours, hj.DurationHours)
		setInt(&cfg.Eligibility.HourlyPermit.MaxPerHalfMonth, hj.MaxPerHalfMonth)
	}
	if bj := cj.Benefits; bj != nil {
		if err := applyBenefits(&cfg.Eligibility.Benefit, *bj); err != nil {
			return EngineConfig{}, err
		}
	}

	if err := cfg.Calendar.Validate(); err != nil {
		return EngineConfig{}, err
	}
	if err := cfg.Eligibility.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// ToJSON converts an EngineConfig to its full JSON representation.
func (f *ConfigFactory) ToJSON(cfg EngineConfig) ConfigJSON {
	c := cfg.Calendar
	cj := CalendarJSON{
		HolidayTables: make(map[string][]HolidayJSON, len(c.HolidayTables)),
		MaxSearchDays: intPtr(c.MaxSearchDays),
	}
	for year, table := range c.HolidayTables {
		for _, h := range table {
			cj.HolidayTables[strconv.Itoa(year)] = append(cj.HolidayTables[strconv.Itoa(year)],
				HolidayJSON{Date: h.Date.String(), Name: h.Name})
		}
	}
	for _, h := range c.Recurring {
		rj := RecurringHolidayJSON{Name: h.Name, Month: int(h.Month)}
		if h.Offset != 0 {
			rj.Weekday = strings.ToLower(h.Weekday.String())
			rj.Nth = h.Offset
		} else {
			rj.Day = h.Day
		}
		cj.Recurring = append(cj.Recurring, rj)
	}
	for _, v := range c.Vacations {
		cj.Vacations = append(cj.Vacations, VacationJSON{Name: v.Name, Start: v.Start.String(), End: v.End.String()})
	}

	e := cfg.Eligibility
	out := ConfigJSON{
		Calendar: &cj,
		Discretionary: &DiscretionaryJSON{
			MaxRequestsPerYear: intPtr(e.Discretionary.MaxRequestsPerYear),
			DaysPerRequest:     intPtr(e.Discretionary.DaysPerRequest),
			SeparationDays:     intPtr(e.Discretionary.SeparationDays),
			BlackoutDaysBefore: intPtr(e.Discretionary.BlackoutDaysBefore),
			BlackoutDaysAfter:  intPtr(e.Discretionary.BlackoutDaysAfter),
			HolidayAdjacency:   boolPtr(e.Discretionary.HolidayAdjacency),
		},
		HourlyPermit: &HourlyPermitJSON{
			DurationHours:   intPtr(e.HourlyPermit.DurationHours),
			MaxPerHalfMonth: intPtr(e.HourlyPermit.MaxPerHalfMonth),
		},
		Benefits: &BenefitsJSON{MinTenureMonths: intPtr(e.Benefit.MinTenureMonths)},
	}
	for _, a := range e.Benefit.ExcludedAppointments {
		out.Benefits.ExcludedAppointments = append(out.Benefits.ExcludedAppointments, string(a))
	}
	for _, r := range e.Benefit.Rules {
		rj := BenefitRuleJSON{
			Kind:         string(r.Kind),
			Name:         r.Name,
			Description:  r.Description,
			Cumulative:   r.Cumulative,
			Documents:    r.Documents,
			Requirements: r.Requirements,
		}
		if r.MaxDays != nil {
			rj.MaxDays = intPtr(*r.MaxDays)
		}
		if len(r.MaxDaysByCategory) > 0 {
			rj.MaxDaysByCategory = make(map[string]int, len(r.MaxDaysByCategory))
			for cat, v := range r.MaxDaysByCategory {
				rj.MaxDaysByCategory[string(cat)] = v
			}
		}
		out.Benefits.Rules = append(out.Benefits.Rules, rj)
	}
	return out
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func applyCalendar(c *calendar.Config, cj CalendarJSON) error {
	if cj.HolidayTables != nil {
		c.HolidayTables = make(map[int][]calendar.Holiday, len(cj.HolidayTables))
		for key, table := range cj.HolidayTables {
			year, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("%w: holiday table key %q is not a year", generic.ErrInvalidConfig, key)
			}
			holidays := make([]calendar.Holiday, 0, len(table))
			for _, hj := range table {
				date, err := parseDate(hj.Date)
				if err != nil {
					return err
				}
				holidays = append(holidays, calendar.Holiday{Date: date, Name: hj.Name})
			}
			sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
			c.HolidayTables[year] = holidays
		}
	}
	if cj.Recurring != nil {
		c.Recurring = make([]*cal.Holiday, 0, len(cj.Recurring))
		for _, rj := range cj.Recurring {
			h, err := parseRecurring(rj)
			if err != nil {
				return err
			}
			c.Recurring = append(c.Recurring, h)
		}
	}
	if cj.Vacations != nil {
		c.Vacations = make([]calendar.Vacation, 0, len(cj.Vacations))
		for _, vj := range cj.Vacations {
			start, err := parseDate(vj.Start)
			if err != nil {
				return err
			}
			end, err := parseDate(vj.End)
			if err != nil {
				return err
			}
			c.Vacations = append(c.Vacations, calendar.Vacation{Name: vj.Name, Period: generic.Period{Start: start, End: end}})
		}
	}
	setInt(&c.MaxSearchDays, cj.MaxSearchDays)
	return nil
}

func parseRecurring(rj RecurringHolidayJSON) (*cal.Holiday, error) {
	if rj.Month < 1 || rj.Month > 12 {
		return nil, fmt.Errorf("%w: recurring holiday %q has month %d", generic.ErrInvalidConfig, rj.Name, rj.Month)
	}
	month := time.Month(rj.Month)

	if rj.Weekday == "" {
		if rj.Day < 1 || rj.Day > 31 {
			return nil, fmt.Errorf("%w: recurring holiday %q has day %d", generic.ErrInvalidConfig, rj.Name, rj.Day)
		}
		return calendar.FixedHoliday(rj.Name, month, rj.Day), nil
	}

	weekday, ok := parseWeekday(rj.Weekday)
	if !ok {
		return nil, fmt.Errorf("%w: recurring holiday %q has weekday %q", generic.ErrInvalidConfig, rj.Name, rj.Weekday)
	}
	if rj.Nth < 1 || rj.Nth > 5 {
		return nil, fmt.Errorf("%w: recurring holiday %q has nth %d", generic.ErrInvalidConfig, rj.Name, rj.Nth)
	}
	return calendar.NthWeekdayHoliday(rj.Name, month, weekday, rj.Nth), nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), s) {
			return wd, true
		}
	}
	return 0, false
}

func applyBenefits(b *eligibility.BenefitConfig, bj BenefitsJSON) error {
	setInt(&b.MinTenureMonths, bj.MinTenureMonths)

	if bj.ExcludedAppointments != nil {
		b.ExcludedAppointments = make([]generic.Appointment, 0, len(bj.ExcludedAppointments))
		for _, s := range bj.ExcludedAppointments {
			a := generic.Appointment(s)
			if !a.Valid() {
				return fmt.Errorf("%w: unknown appointment type %q", generic.ErrInvalidConfig, s)
			}
			b.ExcludedAppointments = append(b.ExcludedAppointments, a)
		}
	}

	for _, rj := range bj.Rules {
		rule, err := parseBenefitRule(rj)
		if err != nil {
			return err
		}
		replaced := false
		for i := range b.Rules {
			if b.Rules[i].Kind == rule.Kind {
				b.Rules[i] = rule
				replaced = true
				break
			}
		}
		if !replaced {
			b.Rules = append(b.Rules, rule)
		}
	}
	return nil
}

func parseBenefitRule(rj BenefitRuleJSON) (eligibility.BenefitRule, error) {
	kind, err := generic.ParseBenefitKind(rj.Kind)
	if err != nil {
		return eligibility.BenefitRule{}, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
	}
	rule := eligibility.BenefitRule{
		Kind:         kind,
		Name:         rj.Name,
		Description:  rj.Description,
		Cumulative:   rj.Cumulative,
		Documents:    rj.Documents,
		Requirements: rj.Requirements,
	}
	if rule.Name == "" {
		rule.Name = string(kind)
	}
	if rj.MaxDays != nil {
		rule.MaxDays = intPtr(*rj.MaxDays)
	}
	if len(rj.MaxDaysByCategory) > 0 {
		rule.MaxDaysByCategory = make(map[generic.Category]int, len(rj.MaxDaysByCategory))
		for s, v := range rj.MaxDaysByCategory {
			cat := generic.Category(s)
			if !cat.Valid() {
				return eligibility.BenefitRule{}, fmt.Errorf("%w: unknown staff category %q", generic.ErrInvalidConfig, s)
			}
			rule.MaxDaysByCategory[cat] = v
		}
	}
	return rule, nil
}

func parseDate(s string) (generic.Date, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return generic.Date{}, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
	}
	return d, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
