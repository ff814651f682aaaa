package eligibility

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// BenefitValidator runs one body over the rule table for every benefit kind.
type BenefitValidator struct {
	cal      *calendar.Calendar
	cfg      BenefitConfig
	catalog  *Catalog
	counters CounterReader
	requests generic.RequestReader
}

func NewBenefitValidator(cal *calendar.Calendar, cfg BenefitConfig, counters CounterReader, requests generic.RequestReader) (*BenefitValidator, error) {
	catalog, err := NewCatalog(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &BenefitValidator{cal: cal, cfg: cfg, catalog: catalog, counters: counters, requests: requests}, nil
}

func (v *BenefitValidator) Validate(ctx context.Context, emp generic.Employee, req Request) (Result, error) {
	rule, ok := v.catalog.Rule(req.Benefit)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", generic.ErrUnknownBenefitKind, req.Benefit)
	}

	start, end := req.Start, req.End
	if end.IsZero() {
		end = start
	}
	maxDays := rule.MaxFor(emp.Category)
	res := Result{
		Start:             start,
		End:               end,
		RequiredDocuments: append([]string{}, rule.Documents...),
		MaxDays:           maxDays,
	}

	if v.excluded(emp.Appointment) {
		res.fail(CodeAppointmentExcluded, "%s is not available to employees with a %s appointment", rule.Name, emp.Appointment)
	}

	// Tenure is measured at the first day of leave.
	if tenure := emp.TenureMonths(start); tenure < v.cfg.MinTenureMonths {
		res.fail(CodeTenureInsufficient, "insufficient tenure on %s (%d months); %d months and 1 day are required",
			start, tenure, v.cfg.MinTenureMonths)
	}

	if start.After(end) {
		res.fail(CodeDateRangeInvalid, "start date %s is after end date %s", start, end)
	}

	span := v.cal.CountBusinessDays(start, end)
	res.Days = span
	if req.DeclaredDays != 0 && req.DeclaredDays != span {
		res.warn("requested days (%d) differ from the computed business days (%d)", req.DeclaredDays, span)
	}

	if maxDays != nil && span > *maxDays {
		res.fail(CodePerRequestCapExceeded, "%d business days exceeds the maximum of %d for %s", span, *maxDays, rule.Name)
	}

	if rule.Cumulative && maxDays != nil {
		counter, err := v.counters.Get(ctx, emp.ID, start.Year())
		if err != nil {
			return Result{}, err
		}
		if violation, exceeded := CheckAnnualCap(rule, emp.Category, counter, span); exceeded {
			res.Errors = append(res.Errors, violation)
		}
	}

	window := generic.Period{Start: start, End: end}
	active, err := v.requests.ListRequests(ctx, generic.RequestFilter{
		EmployeeID:      emp.ID,
		Kind:            generic.KindBenefit,
		Benefit:         rule.Kind,
		ExcludeStatuses: []generic.RequestStatus{generic.StatusRejected},
		Overlapping:     &window,
	})
	if err != nil {
		return Result{}, err
	}
	if len(active) > 0 {
		res.fail(CodeDuplicateActiveRequest, "a %s request already covers %s to %s", rule.Name, active[0].Start, active[0].End)
	}

	return res.finish(), nil
}

func (v *BenefitValidator) excluded(a generic.Appointment) bool {
	for _, x := range v.cfg.ExcludedAppointments {
		if x == a {
			return true
		}
	}
	return false
}

// CheckAnnualCap tests a cumulative rule's yearly cap against a counter.
// Non-cumulative and uncapped rules never exceed.
func CheckAnnualCap(rule BenefitRule, category generic.Category, counter generic.YearCounter, days int) (Violation, bool) {
	maxDays := rule.MaxFor(category)
	if !rule.Cumulative || maxDays == nil {
		return Violation{}, false
	}
	used := counter.BenefitDaysUsed(rule.Kind)
	if used+days <= *maxDays {
		return Violation{}, false
	}
	return Violation{
		Code:    CodeAnnualCapExceeded,
		Message: fmt.Sprintf("annual limit exceeded: used %d days, requesting %d, maximum %d", used, days, *maxDays),
	}, true
}
