package eligibility

import (
	"context"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// DiscretionaryValidator checks discretionary leave: a fixed block of
// consecutive business days, a yearly quota, a minimum separation between
// requests and blackouts around vacations and holidays.
type DiscretionaryValidator struct {
	cal      *calendar.Calendar
	cfg      DiscretionaryConfig
	counters CounterReader
}

func NewDiscretionaryValidator(cal *calendar.Calendar, cfg DiscretionaryConfig, counters CounterReader) *DiscretionaryValidator {
	return &DiscretionaryValidator{cal: cal, cfg: cfg, counters: counters}
}

func (v *DiscretionaryValidator) Validate(ctx context.Context, emp generic.Employee, req Request) (Result, error) {
	start := req.Start
	res := Result{Start: start}

	if !v.cal.IsBusinessDay(start) {
		res.fail(CodeNotBusinessDay, "start date %s is not a business day", start)
	}

	// Thursday or Friday would push the block across a weekend.
	if !calendar.IsEarlyWeek(start) {
		res.fail(CodeInvalidStartWeekday, "discretionary leave can only start on Monday, Tuesday or Wednesday (%s is a %s)",
			start, start.Weekday())
	}

	counter, err := v.counters.Get(ctx, emp.ID, start.Year())
	if err != nil {
		return Result{}, err
	}

	if counter.DiscretionaryUsed >= v.cfg.MaxRequestsPerYear {
		res.fail(CodeQuotaExceeded, "all %d discretionary requests for %d have been used",
			v.cfg.MaxRequestsPerYear, start.Year())
	}

	if last := counter.LastDiscretionary; !last.IsZero() {
		// Business days in (last, start]
		distance := v.cal.CountBusinessDays(last.AddDays(1), start)
		if distance < v.cfg.SeparationDays {
			next, err := v.cal.AddBusinessDays(last, v.cfg.SeparationDays)
			if err != nil {
				return Result{}, err
			}
			res.fail(CodeSeparationTooShort, "%d business days must pass after the last request on %s (%d so far); next eligible date: %s",
				v.cfg.SeparationDays, last, distance, next)
		}
	}

	blocked, msg, err := v.cal.InVacationBlackout(start, v.cfg.BlackoutDaysBefore, v.cfg.BlackoutDaysAfter)
	if err != nil {
		return Result{}, err
	}
	if blocked {
		res.fail(CodeVacationBlackout, "%s", msg)
	}

	if v.cfg.HolidayAdjacency {
		adjacent, msg, err := v.cal.AdjacentToHoliday(start)
		if err != nil {
			return Result{}, err
		}
		if adjacent {
			res.fail(CodeHolidayAdjacency, "%s", msg)
		}
	}

	end, err := v.cal.AddBusinessDays(start, v.cfg.DaysPerRequest-1)
	if err != nil {
		return Result{}, err
	}
	res.End = end
	res.Days = v.cal.CountBusinessDays(start, end)

	return res.finish(), nil
}
