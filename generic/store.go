/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the leave rules and the database. Rules
  read counters and request history through these interfaces; the caller
  workflow writes through them inside a transaction.

KEY INTERFACES:
  CounterStore:  YearCounter rows (lazy create, versioned save)
  RequestStore:  Leave request history
  EmployeeStore: Employee directory
  AuditLog:      Append-only record of who did what
  TxStore:       All of the above plus WithTx

COUNTER CONCURRENCY:
  Validation reads a counter and the later increment writes it. Two
  submissions for the same (employee, year) must not both validate against
  the pre-increment value. Two mechanisms guard this:
  - WithTx serializes the read-check-increment sequence (the sqlite store
    holds its writer lock; the postgres store locks the counter row).
  - SaveCounter only succeeds if the stored Version equals the counter's
    Version, so a stale write fails with ErrConcurrentModification.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL (pgx)
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// COUNTER STORE
// =============================================================================

type CounterStore interface {
	// GetOrCreateCounter returns the counter for (employee, year), inserting
	// the all-zero counter first if none exists. Inside WithTx the row is
	// held for the remainder of the transaction where the driver supports it.
	GetOrCreateCounter(ctx context.Context, employeeID EmployeeID, year int) (YearCounter, error)

	// SaveCounter writes c if the stored version equals c.Version and bumps
	// the stored version. Returns ErrConcurrentModification otherwise.
	SaveCounter(ctx context.Context, c YearCounter) error

	// ListCounters returns every counter for an employee, oldest year first.
	ListCounters(ctx context.Context, employeeID EmployeeID) ([]YearCounter, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

type RequestStore interface {
	SaveRequest(ctx context.Context, r LeaveRequest) error
	GetRequest(ctx context.Context, id RequestID) (LeaveRequest, error) // ErrRequestNotFound
	UpdateRequest(ctx context.Context, r LeaveRequest) error           // ErrRequestNotFound
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
}

// RequestReader is the read side validators depend on.
type RequestReader interface {
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error) // ErrEmployeeNotFound
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// =============================================================================
// AUDIT LOG - Separate from counters, tracks who did what when
// =============================================================================

type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string
	Action     AuditAction
	EmployeeID EmployeeID
	RequestID  RequestID
	Payload    map[string]any
}

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditEmployeeSaved    AuditAction = "employee_saved"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, employeeID EmployeeID) ([]AuditEntry, error)
}

// =============================================================================
// COMBINED STORES
// =============================================================================

type Store interface {
	CounterStore
	RequestStore
	EmployeeStore
	AuditLog
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
