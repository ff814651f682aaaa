package quota

import (
	"github.com/warp/leave-engine/generic"
)

// Usage is a YearCounter expressed in amounts for reporting.
type Usage struct {
	EmployeeID            generic.EmployeeID
	Year                  int
	DiscretionaryRequests int
	DiscretionaryDays     generic.Amount
	HourlyPermits         int
	HourlyPermitHours     generic.Amount
	BenefitDays           map[generic.BenefitKind]generic.Amount
}

// Summarize converts a counter; permitHours is the display duration of one permit.
func Summarize(c generic.YearCounter, permitHours int) Usage {
	permits := c.HourlyPermitsFirstHalf + c.HourlyPermitsSecondHalf
	u := Usage{
		EmployeeID:            c.EmployeeID,
		Year:                  c.Year,
		DiscretionaryRequests: c.DiscretionaryUsed,
		DiscretionaryDays:     generic.NewAmountFromInt(c.DiscretionaryDaysUsed, generic.UnitDays),
		HourlyPermits:         permits,
		HourlyPermitHours:     generic.NewAmountFromInt(permits*permitHours, generic.UnitHours),
		BenefitDays:           make(map[generic.BenefitKind]generic.Amount),
	}
	for _, kind := range generic.BenefitKinds() {
		if used := c.BenefitDaysUsed(kind); used > 0 {
			u.BenefitDays[kind] = generic.NewAmountFromInt(used, generic.UnitDays)
		}
	}
	return u
}
