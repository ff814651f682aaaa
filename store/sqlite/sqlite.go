/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore (counters, leave requests, employees, audit
  log) on SQLite. The PostgreSQL store in store/postgres follows the same
  schema with dialect differences only.

KEY TABLES:
  employees:      Directory records read by the validators
  year_counters:  One row per (employee, year), versioned
  leave_requests: Every submitted request of any kind
  audit_log:      Append-only trail of submissions and decisions

INDEXES:
  - idx_leave_requests_employee_kind_start: half-month permit counts (hot path)
  - idx_leave_requests_employee_benefit: duplicate benefit checks
  - idx_audit_log_employee: per-employee trail

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single pooled connection.
  WithTx holds the write lock for the whole callback, so a transaction's
  read-check-increment cannot interleave with another writer. Counters
  also carry a version; a stale save returns ErrConcurrentModification.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := quota.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT NOT NULL,
		category TEXT NOT NULL,
		appointment TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One row per employee and year. version backs optimistic locking.
	CREATE TABLE IF NOT EXISTS year_counters (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		discretionary_used INTEGER NOT NULL DEFAULT 0,
		discretionary_days_used INTEGER NOT NULL DEFAULT 0,
		last_discretionary TEXT,
		hourly_permits_first_half INTEGER NOT NULL DEFAULT 0,
		hourly_permits_second_half INTEGER NOT NULL DEFAULT 0,
		maternal_care_days INTEGER NOT NULL DEFAULT 0,
		family_medical_care_days INTEGER NOT NULL DEFAULT 0,
		other_benefit_days_json TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, year)
	);

	-- Dates are stored as YYYY-MM-DD so text comparison orders them.
	CREATE TABLE IF NOT EXISTS leave_requests (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		kind TEXT NOT NULL,
		benefit TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days INTEGER NOT NULL DEFAULT 0,
		window_from TEXT,
		window_to TEXT,
		reason TEXT,
		location TEXT,
		status TEXT NOT NULL,
		decided_by TEXT,
		decided_at TEXT,
		rejection_reason TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_kind_start
		ON leave_requests(employee_id, kind, start_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_benefit
		ON leave_requests(employee_id, benefit, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		employee_id TEXT,
		request_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_employee
		ON audit_log(employee_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COUNTER STORE
// =============================================================================

const counterColumns = `employee_id, year, discretionary_used, discretionary_days_used, last_discretionary,
	hourly_permits_first_half, hourly_permits_second_half, maternal_care_days,
	family_medical_care_days, other_benefit_days_json, version`

// GetOrCreateCounter returns the counter row, inserting the zero row if absent.
func (s *Store) GetOrCreateCounter(ctx context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getOrCreateCounter(ctx, s.db, employeeID, year)
}

// SaveCounter writes c if the stored version still equals c.Version.
func (s *Store) SaveCounter(ctx context.Context, c generic.YearCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCounter(ctx, s.db, c)
}

// ListCounters returns every counter of an employee ordered by year.
func (s *Store) ListCounters(ctx context.Context, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCounters(ctx, s.db, employeeID)
}

func getOrCreateCounter(ctx context.Context, q querier, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+counterColumns+" FROM year_counters WHERE employee_id = ? AND year = ?",
		employeeID, year)
	c, err := scanCounter(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return generic.YearCounter{}, err
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO year_counters (employee_id, year) VALUES (?, ?)",
		employeeID, year)
	if err != nil && !isUniqueConstraintError(err) {
		return generic.YearCounter{}, fmt.Errorf("failed to create counter: %w", err)
	}
	return generic.NewYearCounter(employeeID, year), nil
}

func saveCounter(ctx context.Context, q querier, c generic.YearCounter) error {
	others, err := json.Marshal(c.OtherBenefitDays)
	if err != nil {
		return fmt.Errorf("failed to encode benefit days: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE year_counters SET
			discretionary_used = ?,
			discretionary_days_used = ?,
			last_discretionary = ?,
			hourly_permits_first_half = ?,
			hourly_permits_second_half = ?,
			maternal_care_days = ?,
			family_medical_care_days = ?,
			other_benefit_days_json = ?,
			version = version + 1
		WHERE employee_id = ? AND year = ? AND version = ?
	`,
		c.DiscretionaryUsed, c.DiscretionaryDaysUsed, formatDate(c.LastDiscretionary),
		c.HourlyPermitsFirstHalf, c.HourlyPermitsSecondHalf,
		c.MaternalCareDays, c.FamilyMedicalCareDays, string(others),
		c.EmployeeID, c.Year, c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if c.Version != 0 {
		return generic.ErrConcurrentModification
	}

	// Version 0 and no row: first save of a counter never loaded.
	_, err = q.ExecContext(ctx, `
		INSERT INTO year_counters (`+counterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		c.EmployeeID, c.Year, c.DiscretionaryUsed, c.DiscretionaryDaysUsed, formatDate(c.LastDiscretionary),
		c.HourlyPermitsFirstHalf, c.HourlyPermitsSecondHalf,
		c.MaternalCareDays, c.FamilyMedicalCareDays, string(others),
	)
	if isUniqueConstraintError(err) {
		return generic.ErrConcurrentModification
	}
	if err != nil {
		return fmt.Errorf("failed to insert counter: %w", err)
	}
	return nil
}

func listCounters(ctx context.Context, q querier, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+counterColumns+" FROM year_counters WHERE employee_id = ? ORDER BY year",
		employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()

	var counters []generic.YearCounter
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCounter(row scanner) (generic.YearCounter, error) {
	var (
		c      generic.YearCounter
		last   sql.NullString
		others string
	)
	err := row.Scan(
		&c.EmployeeID, &c.Year, &c.DiscretionaryUsed, &c.DiscretionaryDaysUsed, &last,
		&c.HourlyPermitsFirstHalf, &c.HourlyPermitsSecondHalf, &c.MaternalCareDays,
		&c.FamilyMedicalCareDays, &others, &c.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan counter: %w", err)
	}
	if c.LastDiscretionary, err = parseDate(last); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(others), &c.OtherBenefitDays); err != nil {
		return c, fmt.Errorf("failed to decode benefit days: %w", err)
	}
	if c.OtherBenefitDays == nil {
		c.OtherBenefitDays = map[generic.BenefitKind]int{}
	}
	return c, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, employee_id, kind, benefit, start_date, end_date, days, window_from, window_to,
	reason, location, status, decided_by, decided_at, rejection_reason, created_by, created_at`

// SaveRequest inserts a request, or replaces the stored one with the same ID.
func (s *Store) SaveRequest(ctx context.Context, r generic.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func (s *Store) UpdateRequest(ctx context.Context, r generic.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequest(ctx, s.db, r)
}

// ListRequests returns matching requests ordered by start date, then insertion.
func (s *Store) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db, filter)
}

func saveRequest(ctx context.Context, q querier, r generic.LeaveRequest) error {
	from, to := formatWindow(r.Window)
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			benefit = excluded.benefit,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			days = excluded.days,
			window_from = excluded.window_from,
			window_to = excluded.window_to,
			reason = excluded.reason,
			location = excluded.location,
			status = excluded.status,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at,
			rejection_reason = excluded.rejection_reason
	`,
		r.ID, r.EmployeeID, r.Kind, nullString(string(r.Benefit)),
		r.Start.String(), r.End.String(), r.Days, from, to,
		nullString(r.Reason), nullString(r.Location), r.Status,
		nullString(r.DecidedBy), formatTime(r.DecidedAt), nullString(r.RejectionReason),
		nullString(r.CreatedBy), r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func getRequest(ctx context.Context, q querier, id generic.RequestID) (generic.LeaveRequest, error) {
	row := q.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.LeaveRequest{}, generic.ErrRequestNotFound
	}
	return r, err
}

func updateRequest(ctx context.Context, q querier, r generic.LeaveRequest) error {
	from, to := formatWindow(r.Window)
	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests SET
			benefit = ?, start_date = ?, end_date = ?, days = ?, window_from = ?, window_to = ?,
			reason = ?, location = ?, status = ?, decided_by = ?, decided_at = ?, rejection_reason = ?
		WHERE id = ?
	`,
		nullString(string(r.Benefit)), r.Start.String(), r.End.String(), r.Days, from, to,
		nullString(r.Reason), nullString(r.Location), r.Status,
		nullString(r.DecidedBy), formatTime(r.DecidedAt), nullString(r.RejectionReason),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrRequestNotFound
	}
	return nil
}

func listRequests(ctx context.Context, q querier, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	where, args := requestWhere(filter)
	rows, err := q.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests"+where+" ORDER BY start_date, seq",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []generic.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// requestWhere translates a filter into a WHERE clause. Zero fields are skipped.
func requestWhere(f generic.RequestFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.EmployeeID != "" {
		conds = append(conds, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Benefit != "" {
		conds = append(conds, "benefit = ?")
		args = append(args, f.Benefit)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(f.ExcludeStatuses) > 0 {
		marks := make([]string, len(f.ExcludeStatuses))
		for i, st := range f.ExcludeStatuses {
			marks[i] = "?"
			args = append(args, st)
		}
		conds = append(conds, "status NOT IN ("+strings.Join(marks, ", ")+")")
	}
	if p := f.StartWithin; p != nil {
		conds = append(conds, "start_date >= ? AND start_date <= ?")
		args = append(args, p.Start.String(), p.End.String())
	}
	if p := f.Overlapping; p != nil {
		conds = append(conds, "start_date <= ? AND end_date >= ?")
		args = append(args, p.End.String(), p.Start.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRequest(row scanner) (generic.LeaveRequest, error) {
	var (
		r                               generic.LeaveRequest
		benefit, windowFrom, windowTo   sql.NullString
		reason, location, decidedBy     sql.NullString
		decidedAt, rejection, createdBy sql.NullString
		start, end, createdAt           string
	)
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.Kind, &benefit, &start, &end, &r.Days, &windowFrom, &windowTo,
		&reason, &location, &r.Status, &decidedBy, &decidedAt, &rejection, &createdBy, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan request: %w", err)
	}

	r.Benefit = generic.BenefitKind(benefit.String)
	r.Reason = reason.String
	r.Location = location.String
	r.DecidedBy = decidedBy.String
	r.RejectionReason = rejection.String
	r.CreatedBy = createdBy.String

	if r.Start, err = generic.ParseDate(start); err != nil {
		return r, err
	}
	if r.End, err = generic.ParseDate(end); err != nil {
		return r, err
	}
	if r.Window, err = parseWindow(windowFrom, windowTo); err != nil {
		return r, err
	}
	if r.DecidedAt, err = parseTime(decidedAt); err != nil {
		return r, err
	}
	if r.CreatedAt, err = parseTime(sql.NullString{String: createdAt, Valid: true}); err != nil {
		return r, err
	}
	return r, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

const employeeColumns = `id, name, email, hire_date, category, appointment, active`

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, e generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, e)
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db)
}

func saveEmployee(ctx context.Context, q querier, e generic.Employee) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date,
			category = excluded.category,
			appointment = excluded.appointment,
			active = excluded.active,
			updated_at = excluded.updated_at
	`,
		e.ID, e.Name, nullString(e.Email), e.HireDate.String(),
		e.Category, e.Appointment, e.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func getEmployee(ctx context.Context, q querier, id generic.EmployeeID) (generic.Employee, error) {
	row := q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, err
}

func listEmployees(ctx context.Context, q querier) ([]generic.Employee, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []generic.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func scanEmployee(row scanner) (generic.Employee, error) {
	var (
		e        generic.Employee
		email    sql.NullString
		hireDate string
	)
	err := row.Scan(&e.ID, &e.Name, &email, &hireDate, &e.Category, &e.Appointment, &e.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan employee: %w", err)
	}
	e.Email = email.String
	if e.HireDate, err = generic.ParseDate(hireDate); err != nil {
		return e, err
	}
	return e, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, entry)
}

// ListAudit returns an employee's entries in append order. An empty ID lists all.
func (s *Store) ListAudit(ctx context.Context, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAudit(ctx, s.db, employeeID)
}

func appendAudit(ctx context.Context, q querier, entry generic.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, employee_id, request_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), nullString(entry.ActorID), entry.Action,
		nullString(string(entry.EmployeeID)), nullString(string(entry.RequestID)), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func listAudit(ctx context.Context, q querier, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	query := "SELECT id, timestamp, actor_id, action, employee_id, request_id, payload_json FROM audit_log"
	var args []any
	if employeeID != "" {
		query += " WHERE employee_id = ?"
		args = append(args, employeeID)
	}
	rows, err := q.QueryContext(ctx, query+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e                                generic.AuditEntry
			timestamp                        string
			actor, empID, reqID, payloadJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &timestamp, &actor, &e.Action, &empID, &reqID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ActorID = actor.String
		e.EmployeeID = generic.EmployeeID(empID.String)
		e.RequestID = generic.RequestID(reqID.String)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse audit timestamp: %w", err)
		}
		if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
// The write lock is held until commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open transaction. It never takes the
// parent's lock, which WithTx already holds.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetOrCreateCounter(ctx context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	return getOrCreateCounter(ctx, ts.tx, employeeID, year)
}

func (ts *txStore) SaveCounter(ctx context.Context, c generic.YearCounter) error {
	return saveCounter(ctx, ts.tx, c)
}

func (ts *txStore) ListCounters(ctx context.Context, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	return listCounters(ctx, ts.tx, employeeID)
}

func (ts *txStore) SaveRequest(ctx context.Context, r generic.LeaveRequest) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) UpdateRequest(ctx context.Context, r generic.LeaveRequest) error {
	return updateRequest(ctx, ts.tx, r)
}

func (ts *txStore) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	return listRequests(ctx, ts.tx, filter)
}

func (ts *txStore) SaveEmployee(ctx context.Context, e generic.Employee) error {
	return saveEmployee(ctx, ts.tx, e)
}

func (ts *txStore) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	return listEmployees(ctx, ts.tx)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	return appendAudit(ctx, ts.tx, entry)
}

func (ts *txStore) ListAudit(ctx context.Context, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	return listAudit(ctx, ts.tx, employeeID)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatDate(d generic.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDate(s sql.NullString) (generic.Date, error) {
	if !s.Valid || s.String == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s.String)
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s.String, err)
	}
	return t, nil
}

func formatWindow(w *generic.TimeWindow) (sql.NullString, sql.NullString) {
	if w == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: w.From.String(), Valid: true}, sql.NullString{String: w.To.String(), Valid: true}
}

func parseWindow(from, to sql.NullString) (*generic.TimeWindow, error) {
	if !from.Valid || !to.Valid {
		return nil, nil
	}
	f, err := generic.ParseClockTime(from.String)
	if err != nil {
		return nil, err
	}
	t, err := generic.ParseClockTime(to.String)
	if err != nil {
		return nil, err
	}
	return &generic.TimeWindow{From: f, To: t}, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
