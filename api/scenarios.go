/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with an employee
	and a short history of leave requests, run through the real workflow
	so every counter and audit entry is what a live submission produces.

AVAILABLE SCENARIOS:

	hourly-permits:     Two permits in a half-month, a third one refused
	discretionary-year: A discretionary leave, a too-close second one refused
	benefit-approval:   Benefit leaves approved and rejected by HR

HOW SCENARIOS WORK:
 1. Create the scenario's employee via the directory
 2. Submit each step through leave.RequestService
 3. Approve or reject pending benefit requests
 4. Report each step's outcome (submitted, refused with codes, decided)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "hourly-permits"}

NOTE:

	Each scenario owns a fixed employee ID. Loading it a second time
	returns 409 instead of replaying the requests.

SEE ALSO:
  - handlers.go: Handler dependencies
  - leave/service.go: Submit, Approve, Reject
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// ErrScenarioLoaded is returned when a scenario's employee already exists.
var ErrScenarioLoaded = errors.New("scenario already loaded")

// scenarioActor records scenario decisions in the audit trail.
const scenarioActor = "scenario-loader"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type decision string

const (
	decideNone    decision = ""
	decideApprove decision = "approve"
	decideReject  decision = "reject"
)

type scenarioStep struct {
	Description string
	Request     eligibility.Request
	Decision    decision
}

type scenario struct {
	ScenarioDTO
	Employee generic.Employee
	Steps    []scenarioStep
}

func date(s string) generic.Date { return generic.MustParseDate(s) }

func window(from, to int) *generic.TimeWindow {
	return &generic.TimeWindow{From: generic.ClockTime{Hour: from}, To: generic.ClockTime{Hour: to}}
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "hourly-permits",
			Name:        "Hourly Permits",
			Description: "Two permits in the first half of February, then a third one refused by the half-month limit",
		},
		Employee: generic.Employee{
			ID: "demo-permits", Name: "Laura Medina", Email: "laura.medina@example.com",
			HireDate: date("2018-08-20"), Category: generic.CategoryTeaching, Appointment: generic.AppointmentPermanent, Active: true,
		},
		Steps: []scenarioStep{
			{Description: "Morning permit", Request: eligibility.Request{Kind: generic.KindHourlyPermit, Start: date("2026-02-03"), Window: window(8, 11)}},
			{Description: "Afternoon permit", Request: eligibility.Request{Kind: generic.KindHourlyPermit, Start: date("2026-02-05"), Window: window(12, 15)}},
			{Description: "Third permit in the same half-month", Request: eligibility.Request{Kind: generic.KindHourlyPermit, Start: date("2026-02-10"), Window: window(8, 11)}},
			{Description: "Permit in the second half", Request: eligibility.Request{Kind: generic.KindHourlyPermit, Start: date("2026-02-17"), Window: window(8, 11)}},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "discretionary-year",
			Name:        "Discretionary Leave",
			Description: "A three-day discretionary leave, then a second one refused for being too close",
		},
		Employee: generic.Employee{
			ID: "demo-discretionary", Name: "Jorge Salinas", Email: "jorge.salinas@example.com",
			HireDate: date("2012-02-01"), Category: generic.CategoryTeaching, Appointment: generic.AppointmentPermanent, Active: true,
		},
		Steps: []scenarioStep{
			{Description: "First discretionary leave", Request: eligibility.Request{Kind: generic.KindDiscretionary, Start: date("2026-02-10")}},
			{Description: "Second leave the next day", Request: eligibility.Request{Kind: generic.KindDiscretionary, Start: date("2026-02-11")}},
			{Description: "Commission out of the office", Request: eligibility.Request{Kind: generic.KindCommissionFullDay, Start: date("2026-02-24"), Location: "District office"}},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "benefit-approval",
			Name:        "Benefit Approval",
			Description: "Maternal care days approved by HR, a marriage leave rejected",
		},
		Employee: generic.Employee{
			ID: "demo-benefits", Name: "Carmen Ruiz", Email: "carmen.ruiz@example.com",
			HireDate: date("2016-09-01"), Category: generic.CategorySupport, Appointment: generic.AppointmentPermanent, Active: true,
		},
		Steps: []scenarioStep{
			{
				Description: "Maternal care for a sick child",
				Request:     eligibility.Request{Kind: generic.KindBenefit, Benefit: generic.BenefitMaternalCare, Start: date("2026-03-02"), End: date("2026-03-04")},
				Decision:    decideApprove,
			},
			{
				Description: "Marriage leave",
				Request:     eligibility.Request{Kind: generic.KindBenefit, Benefit: generic.BenefitMarriage, Start: date("2026-05-11"), End: date("2026-05-13")},
				Decision:    decideReject,
			},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// StepOutcome reports what happened to one scenario step.
type StepOutcome struct {
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	Start       string   `json:"start"`
	Outcome     string   `json:"outcome"` // submitted, refused, approved, rejected
	RequestID   string   `json:"request_id,omitempty"`
	Codes       []string `json:"codes,omitempty"`
}

// ListScenarios returns the available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario runs a scenario against the store.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	outcomes, err := h.loadScenario(r.Context(), s)
	if errors.Is(err, ErrScenarioLoaded) {
		writeError(w, http.StatusConflict, "Scenario already loaded", err)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, "Failed to load scenario", err)
		return
	}

	h.Logger.InfoContext(r.Context(), "scenario loaded", "scenario", s.ID, "employee_id", s.Employee.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario":    s.ScenarioDTO,
		"employee_id": s.Employee.ID,
		"steps":       outcomes,
	})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) ([]StepOutcome, error) {
	_, err := h.Directory.Get(ctx, s.Employee.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrScenarioLoaded, s.ID)
	case !errors.Is(err, generic.ErrEmployeeNotFound):
		return nil, err
	}
	if _, err := h.Directory.Save(ctx, s.Employee, scenarioActor); err != nil {
		return nil, err
	}

	outcomes := make([]StepOutcome, 0, len(s.Steps))
	for _, step := range s.Steps {
		out, err := h.runStep(ctx, s.Employee.ID, step)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Description, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (h *Handler) runStep(ctx context.Context, empID generic.EmployeeID, step scenarioStep) (StepOutcome, error) {
	out := StepOutcome{
		Description: step.Description,
		Kind:        string(step.Request.Kind),
		Start:       step.Request.Start.String(),
	}

	saved, result, err := h.Requests.Submit(ctx, leave.SubmitInput{EmployeeID: empID, Request: step.Request})
	var ineligible *leave.IneligibleError
	switch {
	case errors.As(err, &ineligible):
		out.Outcome = "refused"
		for _, c := range result.Codes() {
			out.Codes = append(out.Codes, string(c))
		}
		return out, nil
	case err != nil:
		return out, err
	}
	out.Outcome = "submitted"
	out.RequestID = string(saved.ID)

	switch step.Decision {
	case decideApprove:
		if _, err := h.Requests.Approve(ctx, saved.ID, scenarioActor); err != nil {
			return out, err
		}
		out.Outcome = "approved"
	case decideReject:
		if _, err := h.Requests.Reject(ctx, saved.ID, scenarioActor, "Scenario rejection"); err != nil {
			return out, err
		}
		out.Outcome = "rejected"
	case decideNone:
	}
	return out, nil
}
