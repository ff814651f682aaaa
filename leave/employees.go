package leave

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/generic"
)

// Directory keeps the employee records validators read.
type Directory struct {
	store  generic.TxStore
	logger *slog.Logger
	now    func() time.Time
}

func NewDirectory(store generic.TxStore, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Directory{store: store, logger: logger, now: time.Now}
}

// Save creates or replaces an employee. A missing ID is generated.
func (d *Directory) Save(ctx context.Context, e generic.Employee, actorID string) (generic.Employee, error) {
	if e.ID == "" {
		e.ID = generic.EmployeeID(uuid.NewString())
	}
	if err := checkEmployee(e); err != nil {
		return generic.Employee{}, err
	}

	err := d.store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("failed to save employee: %w", err)
		}
		return tx.AppendAudit(ctx, generic.AuditEntry{
			ID:         uuid.NewString(),
			Timestamp:  d.now().UTC(),
			ActorID:    actorID,
			Action:     generic.AuditEmployeeSaved,
			EmployeeID: e.ID,
			Payload: map[string]any{
				"category":    e.Category,
				"appointment": e.Appointment,
				"hire_date":   e.HireDate.String(),
				"active":      e.Active,
			},
		})
	})
	if err != nil {
		return generic.Employee{}, err
	}

	d.logger.InfoContext(ctx, "employee saved", "employee_id", e.ID, "appointment", e.Appointment)
	return e, nil
}

func (d *Directory) Get(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	return d.store.GetEmployee(ctx, id)
}

func (d *Directory) List(ctx context.Context) ([]generic.Employee, error) {
	return d.store.ListEmployees(ctx)
}

func checkEmployee(e generic.Employee) error {
	var problems []string
	if strings.TrimSpace(e.Name) == "" {
		problems = append(problems, "name is required")
	}
	if e.HireDate.IsZero() {
		problems = append(problems, "hire date is required")
	}
	if !e.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", e.Category))
	}
	if !e.Appointment.Valid() {
		problems = append(problems, fmt.Sprintf("unknown appointment %q", e.Appointment))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", generic.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
