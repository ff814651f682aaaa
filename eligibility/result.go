/*
Package eligibility decides whether a leave request may be granted.

PURPOSE:
  Each leave kind has a Validator that checks a request against the
  business calendar, the employee's usage counters and their request
  history. Validators never mutate anything; the leave service applies
  counter increments after a valid result.

RESULTS, NOT ERRORS:
  A rule violation is a Violation inside Result.Errors. All checks run on
  every call so the caller sees every violation at once. A Go error from
  Validate means the check itself could not run (store failure or a
  malformed calendar), never that the request is ineligible.

VALIDATORS:
  DiscretionaryValidator  3 consecutive business days, quota + separation + blackouts
  HourlyPermitValidator   same-day permit, capped per half-month
  BenefitValidator        data-driven rule table (caps, documents, cumulative totals)
  PassThroughValidator    commissions and medical certificates

SEE ALSO:
  - calendar/: Business-day arithmetic
  - quota/: Counter reads
  - leave/: Validate + persist + increment workflow
*/
package eligibility

import (
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// Code identifies a rule violation. Codes are stable and shown to users.
type Code string

const (
	CodeNotBusinessDay         Code = "NOT_BUSINESS_DAY"
	CodeInvalidStartWeekday    Code = "INVALID_START_WEEKDAY"
	CodeQuotaExceeded          Code = "QUOTA_EXCEEDED"
	CodeSeparationTooShort     Code = "SEPARATION_TOO_SHORT"
	CodeVacationBlackout       Code = "VACATION_BLACKOUT"
	CodeHolidayAdjacency       Code = "HOLIDAY_ADJACENCY"
	CodeHalfMonthLimit         Code = "HALF_MONTH_LIMIT"
	CodeAppointmentExcluded    Code = "APPOINTMENT_EXCLUDED"
	CodeTenureInsufficient     Code = "TENURE_INSUFFICIENT"
	CodeDateRangeInvalid       Code = "DATE_RANGE_INVALID"
	CodePerRequestCapExceeded  Code = "PER_REQUEST_CAP_EXCEEDED"
	CodeAnnualCapExceeded      Code = "ANNUAL_CAP_EXCEEDED"
	CodeDuplicateActiveRequest Code = "DUPLICATE_ACTIVE_REQUEST"
)

// Violation is one failed rule.
type Violation struct {
	Code    Code
	Message string
}

func (v Violation) String() string { return string(v.Code) + ": " + v.Message }

// Result is produced per call and never stored.
type Result struct {
	Valid    bool
	Errors   []Violation
	Warnings []string

	// Effective span of the request, filled even when invalid.
	Start generic.Date
	End   generic.Date
	Days  int // business days in [Start, End]

	// Benefit leaves only.
	RequiredDocuments []string
	MaxDays           *int
}

// Has reports whether the result carries a violation with the given code.
func (r Result) Has(code Code) bool {
	for _, v := range r.Errors {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the violation codes in order.
func (r Result) Codes() []Code {
	codes := make([]Code, len(r.Errors))
	for i, v := range r.Errors {
		codes[i] = v.Code
	}
	return codes
}

// NewResult builds a result from violations found outside a validator.
func NewResult(start, end generic.Date, days int, violations ...Violation) Result {
	r := Result{Start: start, End: end, Days: days, Errors: violations}
	return r.finish()
}

func (r *Result) fail(code Code, format string, args ...any) {
	r.Errors = append(r.Errors, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r Result) finish() Result {
	r.Valid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []Violation{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}
