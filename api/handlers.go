/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the calendar, the eligibility rules and the leave workflow via
  REST. Handles HTTP request/response and JSON serialization, and
  delegates everything else to leave.RequestService and leave.Directory.

ENDPOINTS:
  Calendar:
    GET    /api/calendar/holidays?year=      Holidays of a year
    GET    /api/calendar/vacations           Institutional vacation ranges
    GET    /api/calendar/days/{date}         Classify one date

  Employees:
    GET    /api/employees                    List employees
    POST   /api/employees                    Create or replace employee
    GET    /api/employees/{id}               Employee details
    GET    /api/employees/{id}/counters/{year}  Counter + usage summary

  Leave:
    POST   /api/employees/{id}/requests/validate  Dry run, returns the result
    POST   /api/employees/{id}/requests      Submit (validate + persist + increment)
    GET    /api/employees/{id}/requests      Request history
    GET    /api/employees/{id}/audit         Audit trail
    GET    /api/requests/{id}                One request
    POST   /api/requests/{id}/approve        Approve a pending benefit leave
    POST   /api/requests/{id}/reject         Reject a pending benefit leave

  Configuration:
    GET    /api/benefits/catalog             Benefit rule table
    GET    /api/config                       Effective engine configuration

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, unknown kinds, invalid fields
  - 404: Employee or request not found
  - 409: Request not pending, or concurrent modification after retries
  - 422: Request is not eligible (body carries the full result)
  - 500: Internal errors

ACTOR:
  There is no authentication here. The acting user is taken from the
  X-Actor-ID header, or from actor_id in decision bodies.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// ActorHeader names the header carrying the acting user's ID.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Requests  *leave.RequestService
	Directory *leave.Directory
	Config    factory.EngineConfig
	Factory   *factory.ConfigFactory
	Logger    *slog.Logger

	// Ping reports store health for /api/healthz. Optional.
	Ping func(ctx context.Context) error

	now func() time.Time
}

// NewHandler creates a handler over the leave services.
func NewHandler(requests *leave.RequestService, directory *leave.Directory, cfg factory.EngineConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Requests:  requests,
		Directory: directory,
		Config:    cfg,
		Factory:   factory.NewConfigFactory(),
		Logger:    logger,
		now:       time.Now,
	}
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListHolidays returns the holidays of ?year= (default: current year).
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	writeJSON(w, http.StatusOK, HolidaysDTO{
		Year:     year,
		Holidays: h.Requests.Engine().Calendar().Holidays(year),
	})
}

// ListVacations returns the configured vacation ranges.
func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	vacations := h.Requests.Engine().Calendar().Vacations()
	dtos := make([]VacationDTO, len(vacations))
	for i, v := range vacations {
		dtos[i] = VacationDTO{Name: v.Name, Start: v.Start.String(), End: v.End.String()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vacations": dtos})
}

// ClassifyDay says whether a date is a business day and why not.
func (h *Handler) ClassifyDay(w http.ResponseWriter, r *http.Request) {
	d, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Requests.Engine().Calendar().Classify(d))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Get(r.Context(), employeeID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates an employee, or replaces one with the same ID.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := req.toEmployee()
	if err != nil {
		h.writeServiceError(w, r, "Invalid employee", err)
		return
	}

	saved, err := h.Directory.Save(r.Context(), emp, actor(r, ""))
	if err != nil {
		h.writeServiceError(w, r, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(saved))
}

// GetCounter returns an employee's counter for a year plus display amounts.
func (h *Handler) GetCounter(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	c, usage, err := h.Requests.Counter(r.Context(), employeeID(r), year)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get counter", err)
		return
	}
	writeJSON(w, http.StatusOK, toCounterDTO(c, usage))
}

// GetAuditTrail returns every audit entry recorded for an employee.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	id := employeeID(r)
	if _, err := h.Directory.Get(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "Failed to get employee", err)
		return
	}
	entries, err := h.Requests.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get audit trail", err)
		return
	}

	type auditDTO struct {
		ID        string         `json:"id"`
		Timestamp string         `json:"timestamp"`
		ActorID   string         `json:"actor_id,omitempty"`
		Action    string         `json:"action"`
		RequestID string         `json:"request_id,omitempty"`
		Payload   map[string]any `json:"payload,omitempty"`
	}
	dtos := make([]auditDTO, len(entries))
	for i, e := range entries {
		dtos[i] = auditDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			RequestID: string(e.RequestID),
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": dtos})
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// ValidateRequest runs the rules without persisting anything. An
// ineligible request is still a 200: the result says why.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLeaveRequest(w, r)
	if !ok {
		return
	}
	result, err := h.Requests.Validate(r.Context(), employeeID(r), req)
	if err != nil {
		h.writeServiceError(w, r, "Failed to validate request", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// SubmitRequest validates and persists a request.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLeaveRequest(w, r)
	if !ok {
		return
	}
	id := employeeID(r)

	saved, result, err := h.Requests.Submit(r.Context(), leave.SubmitInput{
		EmployeeID: id,
		Request:    req,
		ActorID:    actor(r, ""),
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitResponse{
		Request: toLeaveRequestDTO(saved),
		Result:  toResultDTO(result),
	})
}

// ListRequests returns an employee's requests ordered by start date.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Requests.ListRequests(r.Context(), employeeID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": toLeaveRequestDTOs(requests)})
}

// GetRequest returns a single stored request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.GetRequest(r.Context(), generic.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeDecision(w, r)
	if !ok {
		return
	}
	req, err := h.Requests.Approve(r.Context(), generic.RequestID(chi.URLParam(r, "id")), actor(r, body.ActorID))
	if err != nil {
		h.writeServiceError(w, r, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// RejectRequest rejects a pending request.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeDecision(w, r)
	if !ok {
		return
	}
	req, err := h.Requests.Reject(r.Context(), generic.RequestID(chi.URLParam(r, "id")), actor(r, body.ActorID), body.Reason)
	if err != nil {
		h.writeServiceError(w, r, "Failed to reject request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// ListBenefits returns the benefit catalog in display order.
func (h *Handler) ListBenefits(w http.ResponseWriter, r *http.Request) {
	rules := h.Requests.Engine().Catalog().Rules()
	dtos := make([]BenefitRuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toBenefitRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, map[string]any{"benefits": dtos})
}

// GetConfig returns the effective engine configuration in the same JSON
// shape the server loads it from.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(h.Config))
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var ineligible *leave.IneligibleError
	switch {
	case errors.As(err, &ineligible):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Request is not eligible",
			Code:    "NOT_ELIGIBLE",
			Details: toResultDTO(ineligible.Result),
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, generic.ErrInvalidTransition):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsRetryable(err):
		writeError(w, http.StatusConflict, "Concurrent modification, retry the request", err)
	default:
		h.Logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) decodeLeaveRequest(w http.ResponseWriter, r *http.Request) (eligibility.Request, bool) {
	var in LeaveRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return eligibility.Request{}, false
	}
	req, err := in.toRequest()
	if err != nil {
		h.writeServiceError(w, r, "Invalid leave request", err)
		return eligibility.Request{}, false
	}
	return req, true
}

// decodeDecision reads an optional decision body. An empty body is allowed.
func decodeDecision(w http.ResponseWriter, r *http.Request) (DecisionRequest, bool) {
	var body DecisionRequest
	if r.Body == nil {
		return body, true
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", fmt.Errorf("decision: %w", err))
		return body, false
	}
	return body, true
}

func employeeID(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}

// actor picks the explicit actor, then the header.
func actor(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return r.Header.Get(ActorHeader)
}
