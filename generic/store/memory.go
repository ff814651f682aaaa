// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	counters  map[counterKey]generic.YearCounter
	requests  map[generic.RequestID]generic.LeaveRequest
	order     []generic.RequestID
	employees map[generic.EmployeeID]generic.Employee
	audit     []generic.AuditEntry
}

type counterKey struct {
	EmployeeID generic.EmployeeID
	Year       int
}

func NewMemory() *Memory {
	return &Memory{
		counters:  make(map[counterKey]generic.YearCounter),
		requests:  make(map[generic.RequestID]generic.LeaveRequest),
		employees: make(map[generic.EmployeeID]generic.Employee),
	}
}

// -----------------------------------------------------------------------------
// Counters
// -----------------------------------------------------------------------------

func (m *Memory) GetOrCreateCounter(_ context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateCounterLocked(employeeID, year), nil
}

func (m *Memory) getOrCreateCounterLocked(employeeID generic.EmployeeID, year int) generic.YearCounter {
	k := counterKey{EmployeeID: employeeID, Year: year}
	c, ok := m.counters[k]
	if !ok {
		c = generic.NewYearCounter(employeeID, year)
		m.counters[k] = c
	}
	return c.Clone()
}

func (m *Memory) SaveCounter(_ context.Context, c generic.YearCounter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCounterLocked(c)
}

func (m *Memory) saveCounterLocked(c generic.YearCounter) error {
	k := counterKey{EmployeeID: c.EmployeeID, Year: c.Year}
	stored, ok := m.counters[k]
	if ok && stored.Version != c.Version {
		return generic.ErrConcurrentModification
	}
	if !ok && c.Version != 0 {
		return generic.ErrConcurrentModification
	}
	next := c.Clone()
	next.Version = c.Version + 1
	m.counters[k] = next
	return nil
}

func (m *Memory) ListCounters(_ context.Context, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCountersLocked(employeeID), nil
}

func (m *Memory) listCountersLocked(employeeID generic.EmployeeID) []generic.YearCounter {
	var result []generic.YearCounter
	for k, c := range m.counters {
		if k.EmployeeID == employeeID {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

func (m *Memory) SaveRequest(_ context.Context, r generic.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRequestLocked(r)
	return nil
}

func (m *Memory) saveRequestLocked(r generic.LeaveRequest) {
	if _, ok := m.requests[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.requests[r.ID] = r
}

func (m *Memory) GetRequest(_ context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return generic.LeaveRequest{}, generic.ErrRequestNotFound
	}
	return r, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r generic.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestLocked(r)
}

func (m *Memory) updateRequestLocked(r generic.LeaveRequest) error {
	if _, ok := m.requests[r.ID]; !ok {
		return generic.ErrRequestNotFound
	}
	m.requests[r.ID] = r
	return nil
}

// ListRequests returns matching requests ordered by start date, then insertion.
func (m *Memory) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequestsLocked(filter), nil
}

func (m *Memory) listRequestsLocked(filter generic.RequestFilter) []generic.LeaveRequest {
	var result []generic.LeaveRequest
	for _, id := range m.order {
		r := m.requests[id]
		if filter.Matches(r) {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

func (m *Memory) SaveEmployee(_ context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// -----------------------------------------------------------------------------
// Audit
// -----------------------------------------------------------------------------

func (m *Memory) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAuditLocked(employeeID), nil
}

func (m *Memory) listAuditLocked(employeeID generic.EmployeeID) []generic.AuditEntry {
	var result []generic.AuditEntry
	for _, e := range m.audit {
		if employeeID == "" || e.EmployeeID == employeeID {
			result = append(result, e)
		}
	}
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole of fn, so transactions are serial.
func (tm *TxMemory) WithTx(_ context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	counters  map[counterKey]generic.YearCounter
	requests  map[generic.RequestID]generic.LeaveRequest
	order     []generic.RequestID
	employees map[generic.EmployeeID]generic.Employee
	audit     []generic.AuditEntry
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		counters:  make(map[counterKey]generic.YearCounter, len(tm.counters)),
		requests:  make(map[generic.RequestID]generic.LeaveRequest, len(tm.requests)),
		order:     append([]generic.RequestID(nil), tm.order...),
		employees: make(map[generic.EmployeeID]generic.Employee, len(tm.employees)),
		audit:     append([]generic.AuditEntry(nil), tm.audit...),
	}
	for k, v := range tm.counters {
		s.counters[k] = v.Clone()
	}
	for k, v := range tm.requests {
		s.requests[k] = v
	}
	for k, v := range tm.employees {
		s.employees[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.counters = s.counters
	tm.requests = s.requests
	tm.order = s.order
	tm.employees = s.employees
	tm.audit = s.audit
}

// txMemoryView runs against the parent's maps while WithTx holds the lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetOrCreateCounter(_ context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	return tv.parent.getOrCreateCounterLocked(employeeID, year), nil
}

func (tv *txMemoryView) SaveCounter(_ context.Context, c generic.YearCounter) error {
	return tv.parent.saveCounterLocked(c)
}

func (tv *txMemoryView) ListCounters(_ context.Context, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	return tv.parent.listCountersLocked(employeeID), nil
}

func (tv *txMemoryView) SaveRequest(_ context.Context, r generic.LeaveRequest) error {
	tv.parent.saveRequestLocked(r)
	return nil
}

func (tv *txMemoryView) GetRequest(_ context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	r, ok := tv.parent.requests[id]
	if !ok {
		return generic.LeaveRequest{}, generic.ErrRequestNotFound
	}
	return r, nil
}

func (tv *txMemoryView) UpdateRequest(_ context.Context, r generic.LeaveRequest) error {
	return tv.parent.updateRequestLocked(r)
}

func (tv *txMemoryView) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	return tv.parent.listRequestsLocked(filter), nil
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, e generic.Employee) error {
	tv.parent.employees[e.ID] = e
	return nil
}

func (tv *txMemoryView) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	e, ok := tv.parent.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, nil
}

func (tv *txMemoryView) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	result := make([]generic.Employee, 0, len(tv.parent.employees))
	for _, e := range tv.parent.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	tv.parent.audit = append(tv.parent.audit, entry)
	return nil
}

func (tv *txMemoryView) ListAudit(_ context.Context, employeeID generic.EmployeeID) ([]generic.AuditEntry, error) {
	return tv.parent.listAuditLocked(employeeID), nil
}
