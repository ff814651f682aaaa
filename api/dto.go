/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types keep the
  wire format (snake_case keys, YYYY-MM-DD dates, "HH:MM" times) apart from
  the domain model in generic/ and eligibility/.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employee:   EmployeeDTO, CreateEmployeeRequest
  Leave:      LeaveRequestInput, LeaveRequestDTO, SubmitResponse, DecisionRequest
  Validation: ResultDTO, ViolationDTO
  Counters:   CounterDTO, UsageDTO
  Calendar:   HolidaysDTO, VacationDTO
  Catalog:    BenefitRuleDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs are pure data carriers. Conversion to domain types (to* / from*
  helpers below) rejects malformed dates and times with ErrInvalidInput;
  rule checks belong to the eligibility engine.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON served by GET /api/config
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/quota"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	HireDate    string `json:"hire_date"`
	Category    string `json:"category"`
	Appointment string `json:"appointment"`
	Active      bool   `json:"active"`
}

// CreateEmployeeRequest is the request body for creating or replacing an employee.
type CreateEmployeeRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	HireDate    string `json:"hire_date"`
	Category    string `json:"category"`
	Appointment string `json:"appointment"`
	Active      *bool  `json:"active,omitempty"` // defaults to true
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		Email:       e.Email,
		HireDate:    e.HireDate.String(),
		Category:    string(e.Category),
		Appointment: string(e.Appointment),
		Active:      e.Active,
	}
}

func (req CreateEmployeeRequest) toEmployee() (generic.Employee, error) {
	hireDate, err := parseDate("hire_date", req.HireDate)
	if err != nil {
		return generic.Employee{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return generic.Employee{
		ID:          generic.EmployeeID(req.ID),
		Name:        req.Name,
		Email:       req.Email,
		HireDate:    hireDate,
		Category:    generic.Category(req.Category),
		Appointment: generic.Appointment(req.Appointment),
		Active:      active,
	}, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequestInput is the request body for validating or submitting leave.
type LeaveRequestInput struct {
	Kind         string `json:"kind"`
	Benefit      string `json:"benefit,omitempty"`
	Start        string `json:"start"`
	End          string `json:"end,omitempty"`
	WindowFrom   string `json:"window_from,omitempty"` // "HH:MM", hourly permits
	WindowTo     string `json:"window_to,omitempty"`
	DeclaredDays int    `json:"declared_days,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Location     string `json:"location,omitempty"`
}

func (in LeaveRequestInput) toRequest() (eligibility.Request, error) {
	kind, err := generic.ParseLeaveKind(in.Kind)
	if err != nil {
		return eligibility.Request{}, err
	}
	req := eligibility.Request{
		Kind:         kind,
		DeclaredDays: in.DeclaredDays,
		Reason:       in.Reason,
		Location:     in.Location,
	}
	if in.Benefit != "" {
		if req.Benefit, err = generic.ParseBenefitKind(in.Benefit); err != nil {
			return eligibility.Request{}, err
		}
	}
	if req.Start, err = parseDate("start", in.Start); err != nil {
		return eligibility.Request{}, err
	}
	if in.End != "" {
		if req.End, err = parseDate("end", in.End); err != nil {
			return eligibility.Request{}, err
		}
	}
	if in.WindowFrom != "" || in.WindowTo != "" {
		from, err := generic.ParseClockTime(in.WindowFrom)
		if err != nil {
			return eligibility.Request{}, fmt.Errorf("%w: window_from: %v", generic.ErrInvalidInput, err)
		}
		to, err := generic.ParseClockTime(in.WindowTo)
		if err != nil {
			return eligibility.Request{}, fmt.Errorf("%w: window_to: %v", generic.ErrInvalidInput, err)
		}
		req.Window = &generic.TimeWindow{From: from, To: to}
	}
	return req, nil
}

// LeaveRequestDTO represents a stored leave request.
type LeaveRequestDTO struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employee_id"`
	Kind            string `json:"kind"`
	Benefit         string `json:"benefit,omitempty"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Days            int    `json:"days"`
	WindowFrom      string `json:"window_from,omitempty"`
	WindowTo        string `json:"window_to,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Location        string `json:"location,omitempty"`
	Status          string `json:"status"`
	DecidedBy       string `json:"decided_by,omitempty"`
	DecidedAt       string `json:"decided_at,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedBy       string `json:"created_by,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toLeaveRequestDTO(r generic.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		Kind:            string(r.Kind),
		Benefit:         string(r.Benefit),
		Start:           r.Start.String(),
		End:             r.End.String(),
		Days:            r.Days,
		Reason:          r.Reason,
		Location:        r.Location,
		Status:          string(r.Status),
		DecidedBy:       r.DecidedBy,
		RejectionReason: r.RejectionReason,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.Window != nil {
		dto.WindowFrom = r.Window.From.String()
		dto.WindowTo = r.Window.To.String()
	}
	if !r.DecidedAt.IsZero() {
		dto.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	return dto
}

func toLeaveRequestDTOs(rs []generic.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toLeaveRequestDTO(r)
	}
	return dtos
}

// SubmitResponse is returned by a successful submission.
type SubmitResponse struct {
	Request LeaveRequestDTO `json:"request"`
	Result  ResultDTO       `json:"result"`
}

// DecisionRequest is the body of approve and reject calls.
type DecisionRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	Reason  string `json:"reason,omitempty"` // reject only
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

type ViolationDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultDTO is an eligibility result. It is also the body of 422 responses.
type ResultDTO struct {
	Valid             bool           `json:"valid"`
	Errors            []ViolationDTO `json:"errors"`
	Warnings          []string       `json:"warnings"`
	Start             string         `json:"start,omitempty"`
	End               string         `json:"end,omitempty"`
	Days              int            `json:"days"`
	RequiredDocuments []string       `json:"required_documents,omitempty"`
	MaxDays           *int           `json:"max_days,omitempty"`
}

func toResultDTO(r eligibility.Result) ResultDTO {
	dto := ResultDTO{
		Valid:             r.Valid,
		Errors:            make([]ViolationDTO, len(r.Errors)),
		Warnings:          append([]string{}, r.Warnings...),
		Days:              r.Days,
		RequiredDocuments: r.RequiredDocuments,
		MaxDays:           r.MaxDays,
	}
	for i, v := range r.Errors {
		dto.Errors[i] = ViolationDTO{Code: string(v.Code), Message: v.Message}
	}
	if !r.Start.IsZero() {
		dto.Start = r.Start.String()
	}
	if !r.End.IsZero() {
		dto.End = r.End.String()
	}
	return dto
}

// =============================================================================
// COUNTERS
// =============================================================================

// UsageDTO shows the counter as display amounts ("3 days", "6 hours").
type UsageDTO struct {
	DiscretionaryRequests int               `json:"discretionary_requests"`
	DiscretionaryDays     string            `json:"discretionary_days"`
	HourlyPermits         int               `json:"hourly_permits"`
	HourlyPermitHours     string            `json:"hourly_permit_hours"`
	BenefitDays           map[string]string `json:"benefit_days"`
}

// CounterDTO is one employee's usage for one year.
type CounterDTO struct {
	EmployeeID              string         `json:"employee_id"`
	Year                    int            `json:"year"`
	DiscretionaryUsed       int            `json:"discretionary_used"`
	DiscretionaryDaysUsed   int            `json:"discretionary_days_used"`
	LastDiscretionary       string         `json:"last_discretionary,omitempty"`
	HourlyPermitsFirstHalf  int            `json:"hourly_permits_first_half"`
	HourlyPermitsSecondHalf int            `json:"hourly_permits_second_half"`
	MaternalCareDays        int            `json:"maternal_care_days"`
	FamilyMedicalCareDays   int            `json:"family_medical_care_days"`
	OtherBenefitDays        map[string]int `json:"other_benefit_days"`
	Version                 int            `json:"version"`
	Usage                   UsageDTO       `json:"usage"`
}

func toCounterDTO(c generic.YearCounter, u quota.Usage) CounterDTO {
	dto := CounterDTO{
		EmployeeID:              string(c.EmployeeID),
		Year:                    c.Year,
		DiscretionaryUsed:       c.DiscretionaryUsed,
		DiscretionaryDaysUsed:   c.DiscretionaryDaysUsed,
		HourlyPermitsFirstHalf:  c.HourlyPermitsFirstHalf,
		HourlyPermitsSecondHalf: c.HourlyPermitsSecondHalf,
		MaternalCareDays:        c.MaternalCareDays,
		FamilyMedicalCareDays:   c.FamilyMedicalCareDays,
		OtherBenefitDays:        make(map[string]int, len(c.OtherBenefitDays)),
		Version:                 c.Version,
		Usage: UsageDTO{
			DiscretionaryRequests: u.DiscretionaryRequests,
			DiscretionaryDays:     u.DiscretionaryDays.String(),
			HourlyPermits:         u.HourlyPermits,
			HourlyPermitHours:     u.HourlyPermitHours.String(),
			BenefitDays:           make(map[string]string, len(u.BenefitDays)),
		},
	}
	if !c.LastDiscretionary.IsZero() {
		dto.LastDiscretionary = c.LastDiscretionary.String()
	}
	for k, v := range c.OtherBenefitDays {
		dto.OtherBenefitDays[string(k)] = v
	}
	for k, v := range u.BenefitDays {
		dto.Usage.BenefitDays[string(k)] = v.String()
	}
	return dto
}

// =============================================================================
// CALENDAR & CATALOG
// =============================================================================

type HolidaysDTO struct {
	Year     int                `json:"year"`
	Holidays []calendar.Holiday `json:"holidays"`
}

type VacationDTO struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// BenefitRuleDTO is one entry of the benefit catalog.
type BenefitRuleDTO struct {
	Kind              string         `json:"kind"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	MaxDays           *int           `json:"max_days,omitempty"`
	MaxDaysByCategory map[string]int `json:"max_days_by_category,omitempty"`
	Cumulative        bool           `json:"cumulative"`
	Documents         []string       `json:"documents"`
	Requirements      []string       `json:"requirements"`
}

func toBenefitRuleDTO(r eligibility.BenefitRule) BenefitRuleDTO {
	dto := BenefitRuleDTO{
		Kind:         string(r.Kind),
		Name:         r.Name,
		Description:  r.Description,
		MaxDays:      r.MaxDays,
		Cumulative:   r.Cumulative,
		Documents:    append([]string{}, r.Documents...),
		Requirements: append([]string{}, r.Requirements...),
	}
	if len(r.MaxDaysByCategory) > 0 {
		dto.MaxDaysByCategory = make(map[string]int, len(r.MaxDaysByCategory))
		for k, v := range r.MaxDaysByCategory {
			dto.MaxDaysByCategory[string(k)] = v
		}
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func parseDate(field, s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, fmt.Errorf("%w: %s is required", generic.ErrInvalidInput, field)
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return generic.Date{}, fmt.Errorf("%w: %s: %v", generic.ErrInvalidInput, field, err)
	}
	return d, nil
}
