package eligibility

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// Request is the input of every validator.
type Request struct {
	Kind    generic.LeaveKind
	Benefit generic.BenefitKind // KindBenefit only
	Start   generic.Date
	End     generic.Date // optional; defaults per kind

	Window       *generic.TimeWindow // hourly permits only
	DeclaredDays int                 // benefit: caller's own day count, 0 if not given
	Reason       string
	Location     string // commissions only
}

// Validator checks one leave kind.
type Validator interface {
	Validate(ctx context.Context, emp generic.Employee, req Request) (Result, error)
}

// CounterReader is the read side of quota.Ledger.
type CounterReader interface {
	Get(ctx context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error)
}

// =============================================================================
// ENGINE - Dispatch by leave kind
// =============================================================================

// Engine routes a request to the validator of its kind.
type Engine struct {
	cal      *calendar.Calendar
	cfg      Config
	catalog  *Catalog
	counters CounterReader
	requests generic.RequestReader

	validators map[generic.LeaveKind]Validator
}

func NewEngine(cal *calendar.Calendar, cfg Config, counters CounterReader, requests generic.RequestReader) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(cfg.Benefit.Rules)
	if err != nil {
		return nil, err
	}
	e := &Engine{cal: cal, cfg: cfg, catalog: catalog}
	return e.With(counters, requests), nil
}

// With returns an engine sharing calendar and rules but reading counters
// and history from other sources, typically a transactional store.
func (e *Engine) With(counters CounterReader, requests generic.RequestReader) *Engine {
	out := &Engine{cal: e.cal, cfg: e.cfg, catalog: e.catalog, counters: counters, requests: requests}
	passThrough := &PassThroughValidator{cal: e.cal}
	out.validators = map[generic.LeaveKind]Validator{
		generic.KindDiscretionary: &DiscretionaryValidator{cal: e.cal, cfg: e.cfg.Discretionary, counters: counters},
		generic.KindHourlyPermit:  &HourlyPermitValidator{cal: e.cal, cfg: e.cfg.HourlyPermit, requests: requests},
		generic.KindBenefit: &BenefitValidator{
			cal:      e.cal,
			cfg:      e.cfg.Benefit,
			catalog:  e.catalog,
			counters: counters,
			requests: requests,
		},
		generic.KindCommissionFullDay:  passThrough,
		generic.KindCommissionEntry:    passThrough,
		generic.KindCommissionExit:     passThrough,
		generic.KindMedicalCertificate: passThrough,
	}
	return out
}

// Validate runs the validator registered for req.Kind.
func (e *Engine) Validate(ctx context.Context, emp generic.Employee, req Request) (Result, error) {
	v, ok := e.validators[req.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", generic.ErrUnknownLeaveKind, req.Kind)
	}
	return v.Validate(ctx, emp, req)
}

func (e *Engine) Calendar() *calendar.Calendar { return e.cal }
func (e *Engine) Config() Config               { return e.cfg }
func (e *Engine) Catalog() *Catalog            { return e.catalog }
