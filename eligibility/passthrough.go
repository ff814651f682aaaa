package eligibility

import (
	"context"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// PassThroughValidator serves kinds with no eligibility rules (commissions,
// medical certificates). It only normalizes the span.
type PassThroughValidator struct {
	cal *calendar.Calendar
}

func (v *PassThroughValidator) Validate(_ context.Context, _ generic.Employee, req Request) (Result, error) {
	end := req.End
	if end.IsZero() {
		end = req.Start
	}
	res := Result{Start: req.Start, End: end}
	if req.Start.After(end) {
		res.fail(CodeDateRangeInvalid, "start date %s is after end date %s", req.Start, end)
	}
	res.Days = v.cal.CountBusinessDays(req.Start, end)
	return res.finish(), nil
}
