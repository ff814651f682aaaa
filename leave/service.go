/*
Package leave is the caller workflow around the eligibility engine.

PURPOSE:
  Validators are side-effect free. This package owns everything that has
  side effects: persisting requests, applying quota increments, moving
  benefit requests through approval, and writing the audit trail.

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────────────┐
  │  WithTx ─▶ load employee ─▶ validate ─▶ save request ─▶ increment │
  │                                 │                                │
  │                                 └─ invalid: rollback, 422        │
  └──────────────────────────────────────────────────────────────────┘

  discretionary, hourly_permit  saved approved, counter incremented
  benefit                       saved pending; approval increments
  commission_*, medical_*       saved approved, no counter

CONCURRENCY:
  The read-check-increment sequence runs inside one store transaction
  with the validators reading through the transactional store. A
  transaction that loses a race returns generic.ErrConcurrentModification
  and the whole sequence is retried, up to MaxRetries times.

SEE ALSO:
  - eligibility/validator.go: The rules
  - quota/ledger.go: Counter increments
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/quota"
)

// ErrNotEligible is the sentinel behind IneligibleError.
var ErrNotEligible = errors.New("leave request is not eligible")

// IneligibleError carries the full validation result of a refused request.
type IneligibleError struct {
	Result eligibility.Result
}

func (e *IneligibleError) Error() string {
	codes := make([]string, 0, len(e.Result.Errors))
	for _, v := range e.Result.Errors {
		codes = append(codes, string(v.Code))
	}
	return fmt.Sprintf("%s: %s", ErrNotEligible, strings.Join(codes, ", "))
}

func (e *IneligibleError) Unwrap() error {
	return ErrNotEligible
}

// =============================================================================
// REQUEST SERVICE
// =============================================================================

// SubmitInput is one employee's leave request.
type SubmitInput struct {
	EmployeeID generic.EmployeeID
	Request    eligibility.Request
	ActorID    string // defaults to the employee
}

type RequestService struct {
	store  generic.TxStore
	engine *eligibility.Engine
	logger *slog.Logger

	MaxRetries int
	now        func() time.Time
}

// NewRequestService binds an engine to store. A nil logger discards output.
func NewRequestService(store generic.TxStore, cal *calendar.Calendar, cfg eligibility.Config, logger *slog.Logger) (*RequestService, error) {
	engine, err := eligibility.NewEngine(cal, cfg, quota.NewLedger(store), store)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RequestService{
		store:      store,
		engine:     engine,
		logger:     logger,
		MaxRetries: quota.DefaultMaxRetries,
		now:        time.Now,
	}, nil
}

// Engine exposes the calendar, rules and catalog the service validates with.
func (s *RequestService) Engine() *eligibility.Engine { return s.engine }

// Validate runs the rules without persisting anything.
func (s *RequestService) Validate(ctx context.Context, employeeID generic.EmployeeID, req eligibility.Request) (eligibility.Result, error) {
	if err := checkRequest(req); err != nil {
		return eligibility.Result{}, err
	}
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return eligibility.Result{}, err
	}
	return s.engine.Validate(ctx, emp, req)
}

// Submit validates and, when valid, persists the request and applies its
// quota increment atomically. An invalid request returns *IneligibleError
// and leaves the store untouched.
func (s *RequestService) Submit(ctx context.Context, in SubmitInput) (generic.LeaveRequest, eligibility.Result, error) {
	if err := checkRequest(in.Request); err != nil {
		return generic.LeaveRequest{}, eligibility.Result{}, err
	}
	actor := in.ActorID
	if actor == "" {
		actor = string(in.EmployeeID)
	}

	var (
		saved  generic.LeaveRequest
		result eligibility.Result
	)
	err := s.retry(ctx, "submit", in.EmployeeID, func() error {
		return s.store.WithTx(ctx, func(tx generic.Store) error {
			emp, err := tx.GetEmployee(ctx, in.EmployeeID)
			if err != nil {
				return err
			}

			// Lock the counter row before the validators read history.
			ledger := quota.NewLedger(tx)
			if _, err := ledger.Get(ctx, in.EmployeeID, in.Request.Start.Year()); err != nil {
				return err
			}
			result, err = s.engine.With(ledger, tx).Validate(ctx, emp, in.Request)
			if err != nil {
				return err
			}
			if !result.Valid {
				return &IneligibleError{Result: result}
			}

			saved = s.newRequest(in, result, actor)
			if err := tx.SaveRequest(ctx, saved); err != nil {
				return fmt.Errorf("failed to save request: %w", err)
			}
			if err := s.applyIncrement(ctx, ledger, saved); err != nil {
				return err
			}
			return tx.AppendAudit(ctx, s.audit(actor, generic.AuditRequestSubmitted, saved, map[string]any{
				"kind":   saved.Kind,
				"status": saved.Status,
				"start":  saved.Start.String(),
				"end":    saved.End.String(),
				"days":   saved.Days,
			}))
		})
	})

	var ineligible *IneligibleError
	switch {
	case errors.As(err, &ineligible):
		s.logger.InfoContext(ctx, "leave request refused",
			"employee_id", in.EmployeeID, "kind", in.Request.Kind, "codes", ineligible.Result.Codes())
		return generic.LeaveRequest{}, ineligible.Result, err
	case err != nil:
		return generic.LeaveRequest{}, eligibility.Result{}, err
	}

	s.logger.InfoContext(ctx, "leave request submitted",
		"employee_id", saved.EmployeeID, "kind", saved.Kind, "request_id", saved.ID, "status", saved.Status)
	return saved, result, nil
}

// Approve moves a pending request to approved. Benefit requests have
// their yearly cap re-checked and their days added to the counter.
func (s *RequestService) Approve(ctx context.Context, id generic.RequestID, approverID string) (generic.LeaveRequest, error) {
	var out generic.LeaveRequest
	err := s.retry(ctx, "approve", "", func() error {
		return s.store.WithTx(ctx, func(tx generic.Store) error {
			r, err := pendingRequest(ctx, tx, id)
			if err != nil {
				return err
			}

			if r.Kind == generic.KindBenefit {
				if err := s.commitBenefit(ctx, tx, r); err != nil {
					return err
				}
			}

			r.Status = generic.StatusApproved
			r.DecidedBy = approverID
			r.DecidedAt = s.now().UTC()
			if err := tx.UpdateRequest(ctx, r); err != nil {
				return fmt.Errorf("failed to update request: %w", err)
			}
			out = r
			return tx.AppendAudit(ctx, s.audit(approverID, generic.AuditRequestApproved, r, map[string]any{
				"days": r.Days,
			}))
		})
	})
	if err != nil {
		return generic.LeaveRequest{}, err
	}

	s.logger.InfoContext(ctx, "leave request approved",
		"employee_id", out.EmployeeID, "kind", out.Kind, "request_id", out.ID, "approver", approverID)
	return out, nil
}

// Reject moves a pending request to rejected. Counters are not touched;
// pending requests never incremented them.
func (s *RequestService) Reject(ctx context.Context, id generic.RequestID, rejecterID, reason string) (generic.LeaveRequest, error) {
	var out generic.LeaveRequest
	err := s.store.WithTx(ctx, func(tx generic.Store) error {
		r, err := pendingRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		r.Status = generic.StatusRejected
		r.DecidedBy = rejecterID
		r.DecidedAt = s.now().UTC()
		r.RejectionReason = reason
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		out = r
		return tx.AppendAudit(ctx, s.audit(rejecterID, generic.AuditRequestRejected, r, map[string]any{
			"reason": reason,
		}))
	})
	if err != nil {
		return generic.LeaveRequest{}, err
	}

	s.logger.InfoContext(ctx, "leave request rejected",
		"employee_id", out.EmployeeID, "kind", out.Kind, "request_id", out.ID, "rejecter", rejecterID)
	return out, nil
}

// GetRequest returns one stored request.
func (s *RequestService) GetRequest(ctx context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// ListRequests returns an employee's requests ordered by start date.
func (s *RequestService) ListRequests(ctx context.Context, employeeID generic.EmployeeID) ([]generic.LeaveRequest, error) {
	if _, err := s.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListRequests(ctx, generic.RequestFilter{EmployeeID: employeeID})
}

// Counter returns an employee's counter for a year with its usage summary.
func (s *RequestService) Counter(ctx context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, quota.Usage, error) {
	if _, err := s.store.GetEmployee(ctx, employeeID); err != nil {
		return generic.YearCounter{}, quota.Usage{}, err
	}
	c, err := quota.NewLedger(s.store).Get(ctx, employeeID, year)
	if err != nil {
		return generic.YearCounter{}, quota.Usage{}, err
	}
	return c, quota.Summarize(c, s.engine.Config().HourlyPermit.DurationHours), nil
}

// AuditTrail returns the audit entries recorded for an employee.
func (s *RequestService) AuditTrail(ctx context.Context, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	return s.store.ListAudit(ctx, employeeID)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *RequestService) retry(ctx context.Context, op string, employeeID generic.EmployeeID, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !generic.IsRetryable(err) || attempt >= s.MaxRetries {
			return err
		}
		s.logger.WarnContext(ctx, "retrying after concurrent modification",
			"op", op, "employee_id", employeeID, "attempt", attempt+1)
	}
}

func (s *RequestService) newRequest(in SubmitInput, res eligibility.Result, actor string) generic.LeaveRequest {
	req := in.Request
	r := generic.LeaveRequest{
		ID:         generic.RequestID(uuid.NewString()),
		EmployeeID: in.EmployeeID,
		Kind:       req.Kind,
		Start:      res.Start,
		End:        res.End,
		Days:       res.Days,
		Window:     req.Window,
		Reason:     req.Reason,
		Status:     generic.StatusApproved,
		CreatedBy:  actor,
		CreatedAt:  s.now().UTC(),
	}
	switch req.Kind {
	case generic.KindBenefit:
		r.Benefit = req.Benefit
		r.Status = generic.StatusPending
	case generic.KindCommissionFullDay, generic.KindCommissionEntry, generic.KindCommissionExit:
		r.Location = req.Location
	}
	return r
}

func (s *RequestService) applyIncrement(ctx context.Context, ledger *quota.Ledger, r generic.LeaveRequest) error {
	var err error
	switch r.Kind {
	case generic.KindDiscretionary:
		_, err = ledger.IncrementDiscretionary(ctx, r.EmployeeID, r.Start.Year(), r.Start, r.Days)
	case generic.KindHourlyPermit:
		_, err = ledger.IncrementHourlyPermit(ctx, r.EmployeeID, r.Start.Year(), generic.HalfMonthOf(r.Start))
	}
	return err
}

// commitBenefit re-checks the yearly cap against the counter as it is now
// and adds the request's days.
func (s *RequestService) commitBenefit(ctx context.Context, tx generic.Store, r generic.LeaveRequest) error {
	rule, ok := s.engine.Catalog().Rule(r.Benefit)
	if !ok {
		return fmt.Errorf("%w: %q", generic.ErrUnknownBenefitKind, r.Benefit)
	}
	emp, err := tx.GetEmployee(ctx, r.EmployeeID)
	if err != nil {
		return err
	}

	ledger := quota.NewLedger(tx)
	counter, err := ledger.Get(ctx, r.EmployeeID, r.Start.Year())
	if err != nil {
		return err
	}
	if violation, exceeded := eligibility.CheckAnnualCap(rule, emp.Category, counter, r.Days); exceeded {
		return &IneligibleError{Result: eligibility.NewResult(r.Start, r.End, r.Days, violation)}
	}

	_, err = ledger.IncrementCumulativeBenefit(ctx, r.EmployeeID, r.Start.Year(), r.Benefit, r.Days)
	return err
}

func (s *RequestService) audit(actor string, action generic.AuditAction, r generic.LeaveRequest, payload map[string]any) generic.AuditEntry {
	return generic.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.now().UTC(),
		ActorID:    actor,
		Action:     action,
		EmployeeID: r.EmployeeID,
		RequestID:  r.ID,
		Payload:    payload,
	}
}

func pendingRequest(ctx context.Context, tx generic.Store, id generic.RequestID) (generic.LeaveRequest, error) {
	r, err := tx.GetRequest(ctx, id)
	if err != nil {
		return generic.LeaveRequest{}, err
	}
	if r.Status != generic.StatusPending {
		return generic.LeaveRequest{}, fmt.Errorf("%w: request %s is %s", generic.ErrInvalidTransition, id, r.Status)
	}
	return r, nil
}

func checkRequest(req eligibility.Request) error {
	if req.Start.IsZero() {
		return fmt.Errorf("%w: start date is required", generic.ErrInvalidInput)
	}
	if req.Kind == generic.KindBenefit && req.Benefit == "" {
		return fmt.Errorf("%w: benefit kind is required", generic.ErrInvalidInput)
	}
	return nil
}
