package eligibility

import (
	"context"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// HourlyPermitValidator checks same-day permits against the per-half-month cap.
type HourlyPermitValidator struct {
	cal      *calendar.Calendar
	cfg      HourlyPermitConfig
	requests generic.RequestReader
}

func NewHourlyPermitValidator(cal *calendar.Calendar, cfg HourlyPermitConfig, requests generic.RequestReader) *HourlyPermitValidator {
	return &HourlyPermitValidator{cal: cal, cfg: cfg, requests: requests}
}

func (v *HourlyPermitValidator) Validate(ctx context.Context, emp generic.Employee, req Request) (Result, error) {
	day := req.Start
	res := Result{Start: day, End: day}

	if !v.cal.IsBusinessDay(day) {
		res.fail(CodeNotBusinessDay, "%s is not a business day", day)
	}

	if w := req.Window; w != nil && w.To.Minutes() <= w.From.Minutes() {
		res.fail(CodeDateRangeInvalid, "time window %s-%s ends before it starts", w.From, w.To)
	}

	half := generic.HalfMonthOf(day)
	period := generic.HalfMonthPeriod(day)
	existing, err := v.requests.ListRequests(ctx, generic.RequestFilter{
		EmployeeID:      emp.ID,
		Kind:            generic.KindHourlyPermit,
		StartWithin:     &period,
		ExcludeStatuses: []generic.RequestStatus{generic.StatusRejected},
	})
	if err != nil {
		return Result{}, err
	}
	if len(existing) >= v.cfg.MaxPerHalfMonth {
		res.fail(CodeHalfMonthLimit, "all %d hourly permits of half-month %s (%s to %s) have been used",
			v.cfg.MaxPerHalfMonth, half, period.Start, period.End)
	}

	return res.finish(), nil
}
