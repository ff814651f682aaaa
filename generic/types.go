/*
Package generic holds the shared vocabulary of the leave engine.

PURPOSE:
  Every other package speaks in these types: calendar days, periods,
  employees, leave requests and the per-employee-per-year usage counter.
  Nothing here knows about eligibility rules; it only describes data and
  the persistence contracts the rules run against.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (3 days, 6 hours)
  - Employee: Hire date, staff category and appointment type
  - LeaveRequest: A stored leave request of any kind
  - YearCounter: Usage counters keyed by (employee, year)

COUNTER INVARIANTS:
  1. At most one YearCounter per (EmployeeID, Year)
  2. Created lazily with all-zero values on first access
  3. Never deleted: the counters are the audit trail for reporting
  4. Version increases by one on every successful save

SEE ALSO:
  - time.go: Date and clock-time primitives
  - period.go: Closed intervals and half-month periods
  - store.go: Persistence interfaces
*/
package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) String() string               { return a.Value.String() + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string

// =============================================================================
// EMPLOYEE
// =============================================================================

// Category is the staff category. Some benefit caps depend on it.
type Category string

const (
	CategoryTeaching Category = "teaching"
	CategorySupport  Category = "support"
)

func (c Category) Valid() bool { return c == CategoryTeaching || c == CategorySupport }

// Appointment is the employment-contract type.
type Appointment string

const (
	AppointmentPermanent     Appointment = "permanent"
	AppointmentInterim       Appointment = "interim"
	AppointmentLimitedTerm   Appointment = "limited_term"
	AppointmentMaternityTemp Appointment = "maternity_interim"
	AppointmentPreRetirement Appointment = "pre_retirement"
	AppointmentFeeBased      Appointment = "fee_based"
)

func (a Appointment) Valid() bool {
	switch a {
	case AppointmentPermanent, AppointmentInterim, AppointmentLimitedTerm,
		AppointmentMaternityTemp, AppointmentPreRetirement, AppointmentFeeBased:
		return true
	}
	return false
}

// Employee is the read-only context validators need about a person.
type Employee struct {
	ID          EmployeeID
	Name        string
	Email       string
	HireDate    Date
	Category    Category
	Appointment Appointment
	Active      bool
}

// TenureMonths counts whole months from hire date to asOf.
// A month only completes once the hire day-of-month is reached.
func (e Employee) TenureMonths(asOf Date) int {
	months := (asOf.Year()-e.HireDate.Year())*12 + int(asOf.Month()) - int(e.HireDate.Month())
	if asOf.Day() < e.HireDate.Day() {
		months--
	}
	return months
}

// =============================================================================
// LEAVE KINDS
// =============================================================================

// LeaveKind discriminates which validator applies to a request.
type LeaveKind string

const (
	KindDiscretionary      LeaveKind = "discretionary"
	KindHourlyPermit       LeaveKind = "hourly_permit"
	KindBenefit            LeaveKind = "benefit"
	KindCommissionFullDay  LeaveKind = "commission_full_day"
	KindCommissionEntry    LeaveKind = "commission_entry"
	KindCommissionExit     LeaveKind = "commission_exit"
	KindMedicalCertificate LeaveKind = "medical_certificate"
)

var leaveKinds = []LeaveKind{
	KindDiscretionary, KindHourlyPermit, KindBenefit,
	KindCommissionFullDay, KindCommissionEntry, KindCommissionExit, KindMedicalCertificate,
}

// LeaveKinds lists every supported kind in display order.
func LeaveKinds() []LeaveKind { return append([]LeaveKind(nil), leaveKinds...) }

func ParseLeaveKind(s string) (LeaveKind, error) {
	for _, k := range leaveKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLeaveKind, s)
}

// BenefitKind is a benefit-leave sub-type.
type BenefitKind string

const (
	BenefitMedicalLeave      BenefitKind = "medical_leave"
	BenefitMaternalCare      BenefitKind = "maternal_paternal_care"
	BenefitFamilyMedicalCare BenefitKind = "family_medical_care"
	BenefitBereavement       BenefitKind = "bereavement"
	BenefitToleranceHalfHour BenefitKind = "tolerance_half_hour"
	BenefitMarriage          BenefitKind = "marriage"
	BenefitPaternity         BenefitKind = "paternity"
)

var benefitKinds = []BenefitKind{
	BenefitMedicalLeave, BenefitMaternalCare, BenefitFamilyMedicalCare, BenefitBereavement,
	BenefitToleranceHalfHour, BenefitMarriage, BenefitPaternity,
}

// BenefitKinds lists every benefit sub-type in display order.
func BenefitKinds() []BenefitKind { return append([]BenefitKind(nil), benefitKinds...) }

func ParseBenefitKind(s string) (BenefitKind, error) {
	for _, k := range benefitKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBenefitKind, s)
}

// =============================================================================
// LEAVE REQUEST - Stored request of any kind
// =============================================================================

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

type LeaveRequest struct {
	ID         RequestID
	EmployeeID EmployeeID
	Kind       LeaveKind
	Benefit    BenefitKind // only for KindBenefit
	Start      Date
	End        Date
	Days       int         // business days covered, 0 for same-day permits
	Window     *TimeWindow // hourly permits only
	Reason     string
	Location   string // commissions only
	Status     RequestStatus

	DecidedBy       string
	DecidedAt       time.Time // zero while pending
	RejectionReason string
	CreatedBy       string
	CreatedAt       time.Time
}

// Span returns the request's [Start, End] interval.
func (r LeaveRequest) Span() Period { return Period{Start: r.Start, End: r.End} }

// RequestFilter selects stored requests. Zero fields do not filter.
type RequestFilter struct {
	EmployeeID      EmployeeID
	Kind            LeaveKind
	Benefit         BenefitKind
	Status          RequestStatus
	ExcludeStatuses []RequestStatus

	// StartWithin keeps requests whose Start falls in the period.
	StartWithin *Period
	// Overlapping keeps requests whose [Start, End] overlaps the period.
	Overlapping *Period
}

// Matches applies the filter in memory.
func (f RequestFilter) Matches(r LeaveRequest) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Benefit != "" && r.Benefit != f.Benefit {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	for _, s := range f.ExcludeStatuses {
		if r.Status == s {
			return false
		}
	}
	if f.StartWithin != nil && !f.StartWithin.Contains(r.Start) {
		return false
	}
	if f.Overlapping != nil && !r.Span().Overlaps(*f.Overlapping) {
		return false
	}
	return true
}

// =============================================================================
// YEAR COUNTER - Per-employee-per-year usage
// =============================================================================

type YearCounter struct {
	EmployeeID EmployeeID
	Year       int

	DiscretionaryUsed       int  // requests used
	DiscretionaryDaysUsed   int  // business days consumed by those requests
	LastDiscretionary       Date // zero if none this year
	HourlyPermitsFirstHalf  int
	HourlyPermitsSecondHalf int

	MaternalCareDays      int
	FamilyMedicalCareDays int
	OtherBenefitDays      map[BenefitKind]int

	Version int
}

// NewYearCounter returns the all-zero counter.
func NewYearCounter(employeeID EmployeeID, year int) YearCounter {
	return YearCounter{
		EmployeeID:       employeeID,
		Year:             year,
		OtherBenefitDays: map[BenefitKind]int{},
	}
}

// BenefitDaysUsed returns cumulative days used for any benefit kind.
func (c YearCounter) BenefitDaysUsed(kind BenefitKind) int {
	switch kind {
	case BenefitMaternalCare:
		return c.MaternalCareDays
	case BenefitFamilyMedicalCare:
		return c.FamilyMedicalCareDays
	default:
		return c.OtherBenefitDays[kind]
	}
}

// HourlyPermits returns the count recorded for one half-month bucket.
func (c YearCounter) HourlyPermits(h HalfMonth) int {
	if h == FirstHalf {
		return c.HourlyPermitsFirstHalf
	}
	return c.HourlyPermitsSecondHalf
}

// Clone deep-copies the extension map so stores never share it.
func (c YearCounter) Clone() YearCounter {
	out := c
	out.OtherBenefitDays = make(map[BenefitKind]int, len(c.OtherBenefitDays))
	for k, v := range c.OtherBenefitDays {
		out.OtherBenefitDays[k] = v
	}
	return out
}
