package eligibility

import (
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// DiscretionaryConfig holds the discretionary-leave limits.
type DiscretionaryConfig struct {
	MaxRequestsPerYear int
	DaysPerRequest     int
	SeparationDays     int // minimum business days between requests
	BlackoutDaysBefore int // business days before a vacation start
	BlackoutDaysAfter  int // business days after a vacation end, 0 disables
	HolidayAdjacency   bool
}

type HourlyPermitConfig struct {
	DurationHours   int // display only
	MaxPerHalfMonth int
}

type BenefitConfig struct {
	MinTenureMonths      int
	ExcludedAppointments []generic.Appointment
	Rules                []BenefitRule
}

// Config is every tunable of the validators.
type Config struct {
	Discretionary DiscretionaryConfig
	HourlyPermit  HourlyPermitConfig
	Benefit       BenefitConfig
}

// DefaultConfig returns the institutional defaults.
func DefaultConfig() Config {
	return Config{
		Discretionary: DiscretionaryConfig{
			MaxRequestsPerYear: 3,
			DaysPerRequest:     3,
			SeparationDays:     30,
			BlackoutDaysBefore: 15,
			BlackoutDaysAfter:  0,
			HolidayAdjacency:   true,
		},
		HourlyPermit: HourlyPermitConfig{
			DurationHours:   3,
			MaxPerHalfMonth: 2,
		},
		Benefit: BenefitConfig{
			MinTenureMonths: 6,
			ExcludedAppointments: []generic.Appointment{
				generic.AppointmentInterim,
				generic.AppointmentLimitedTerm,
				generic.AppointmentMaternityTemp,
				generic.AppointmentPreRetirement,
				generic.AppointmentFeeBased,
			},
			Rules: DefaultBenefitRules(),
		},
	}
}

// Validate rejects limits that would make the rules meaningless.
func (c Config) Validate() error {
	d := c.Discretionary
	switch {
	case d.MaxRequestsPerYear < 0:
		return fmt.Errorf("%w: discretionary max requests must not be negative", generic.ErrInvalidConfig)
	case d.DaysPerRequest < 1:
		return fmt.Errorf("%w: discretionary days per request must be at least 1", generic.ErrInvalidConfig)
	case d.SeparationDays < 0, d.BlackoutDaysBefore < 0, d.BlackoutDaysAfter < 0:
		return fmt.Errorf("%w: discretionary day counts must not be negative", generic.ErrInvalidConfig)
	}
	if c.HourlyPermit.MaxPerHalfMonth < 0 || c.HourlyPermit.DurationHours < 0 {
		return fmt.Errorf("%w: hourly permit limits must not be negative", generic.ErrInvalidConfig)
	}
	if c.Benefit.MinTenureMonths < 0 {
		return fmt.Errorf("%w: minimum tenure must not be negative", generic.ErrInvalidConfig)
	}
	for _, a := range c.Benefit.ExcludedAppointments {
		if !a.Valid() {
			return fmt.Errorf("%w: unknown appointment type %q", generic.ErrInvalidConfig, a)
		}
	}
	if _, err := NewCatalog(c.Benefit.Rules); err != nil {
		return err
	}
	return nil
}
