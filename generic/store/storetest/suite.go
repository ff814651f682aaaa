// Package storetest holds the behaviour every generic.TxStore must share.
// Each driver's tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
)

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) generic.TxStore

func Run(t *testing.T, newStore Factory) {
	t.Run("counters", func(t *testing.T) { testCounters(t, newStore(t)) })
	t.Run("counter conflicts", func(t *testing.T) { testCounterConflicts(t, newStore(t)) })
	t.Run("requests", func(t *testing.T) { testRequests(t, newStore(t)) })
	t.Run("request filters", func(t *testing.T) { testRequestFilters(t, newStore(t)) })
	t.Run("employees", func(t *testing.T) { testEmployees(t, newStore(t)) })
	t.Run("audit", func(t *testing.T) { testAudit(t, newStore(t)) })
	t.Run("tx commit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("tx rollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

var errAbort = errors.New("abort")

func date(s string) generic.Date { return generic.MustParseDate(s) }

func employee(id generic.EmployeeID) generic.Employee {
	return generic.Employee{
		ID:          id,
		Name:        "Employee " + string(id),
		Email:       string(id) + "@example.com",
		HireDate:    date("2015-01-15"),
		Category:    generic.CategoryTeaching,
		Appointment: generic.AppointmentPermanent,
		Active:      true,
	}
}

func request(id generic.RequestID, emp generic.EmployeeID, kind generic.LeaveKind, start, end string) generic.LeaveRequest {
	return generic.LeaveRequest{
		ID:         id,
		EmployeeID: emp,
		Kind:       kind,
		Start:      date(start),
		End:        date(end),
		Days:       1,
		Status:     generic.StatusApproved,
		CreatedBy:  string(emp),
		CreatedAt:  time.Date(2026, time.January, 20, 9, 30, 0, 0, time.UTC),
	}
}

// seed stores the employees requests reference.
func seed(t *testing.T, st generic.TxStore, ids ...generic.EmployeeID) {
	for _, id := range ids {
		require.NoError(t, st.SaveEmployee(context.Background(), employee(id)))
	}
}

// =============================================================================
// COUNTERS
// =============================================================================

func testCounters(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1")

	// GIVEN: No counter yet
	c, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)

	// THEN: The all-zero counter at version 0
	assert.Equal(t, generic.EmployeeID("emp-1"), c.EmployeeID)
	assert.Equal(t, 2026, c.Year)
	assert.Zero(t, c.DiscretionaryUsed)
	assert.True(t, c.LastDiscretionary.IsZero())
	assert.Zero(t, c.Version)

	// WHEN: Saving every field
	c.DiscretionaryUsed = 2
	c.DiscretionaryDaysUsed = 6
	c.LastDiscretionary = date("2026-03-09")
	c.HourlyPermitsFirstHalf = 1
	c.HourlyPermitsSecondHalf = 2
	c.MaternalCareDays = 5
	c.FamilyMedicalCareDays = 3
	c.OtherBenefitDays[generic.BenefitMarriage] = 4
	require.NoError(t, st.SaveCounter(ctx, c))

	// THEN: It reads back with the version bumped
	got, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	want := c.Clone()
	want.Version = 1
	assert.Equal(t, want, got)

	// AND: History lists years in order
	other, err := st.GetOrCreateCounter(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.NoError(t, st.SaveCounter(ctx, other))

	history, err := st.ListCounters(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2025, history[0].Year)
	assert.Equal(t, 2026, history[1].Year)

	none, err := st.ListCounters(ctx, "emp-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCounterConflicts(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1")

	// GIVEN: Two writers holding the same version
	a, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	b, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)

	// WHEN: Both save
	a.DiscretionaryUsed = 1
	require.NoError(t, st.SaveCounter(ctx, a))
	b.DiscretionaryUsed = 1
	err = st.SaveCounter(ctx, b)

	// THEN: The second loses
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
	got, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DiscretionaryUsed)
	assert.Equal(t, 1, got.Version)
}

// =============================================================================
// REQUESTS
// =============================================================================

func testRequests(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1")

	// GIVEN: A permit with a time window
	r := request("req-1", "emp-1", generic.KindHourlyPermit, "2026-02-03", "2026-02-03")
	r.Days = 0
	r.Window = &generic.TimeWindow{From: generic.ClockTime{Hour: 8}, To: generic.ClockTime{Hour: 11, Minute: 30}}
	r.Reason = "doctor"
	r.Status = generic.StatusPending
	require.NoError(t, st.SaveRequest(ctx, r))

	got, err := st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	// WHEN: Deciding it
	r.Status = generic.StatusRejected
	r.DecidedBy = "hr-1"
	r.DecidedAt = time.Date(2026, time.January, 21, 12, 0, 0, 0, time.UTC)
	r.RejectionReason = "staffing"
	require.NoError(t, st.UpdateRequest(ctx, r))

	// THEN: The update is stored
	got, err = st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	// AND: Missing records are reported
	_, err = st.GetRequest(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrRequestNotFound)
	err = st.UpdateRequest(ctx, request("nope", "emp-1", generic.KindDiscretionary, "2026-02-03", "2026-02-05"))
	assert.ErrorIs(t, err, generic.ErrRequestNotFound)
}

func testRequestFilters(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1", "emp-2")

	benefit := func(id generic.RequestID, kind generic.BenefitKind, status generic.RequestStatus, start, end string) generic.LeaveRequest {
		r := request(id, "emp-1", generic.KindBenefit, start, end)
		r.Benefit = kind
		r.Status = status
		return r
	}
	for _, r := range []generic.LeaveRequest{
		request("p-2", "emp-1", generic.KindHourlyPermit, "2026-02-20", "2026-02-20"),
		request("p-1", "emp-1", generic.KindHourlyPermit, "2026-02-03", "2026-02-03"),
		request("p-3", "emp-2", generic.KindHourlyPermit, "2026-02-04", "2026-02-04"),
		benefit("b-1", generic.BenefitMaternalCare, generic.StatusPending, "2026-03-02", "2026-03-06"),
		benefit("b-2", generic.BenefitMaternalCare, generic.StatusRejected, "2026-03-04", "2026-03-05"),
		benefit("b-3", generic.BenefitMarriage, generic.StatusApproved, "2026-03-05", "2026-03-09"),
	} {
		require.NoError(t, st.SaveRequest(ctx, r))
	}

	ids := func(filter generic.RequestFilter) []generic.RequestID {
		rs, err := st.ListRequests(ctx, filter)
		require.NoError(t, err)
		out := make([]generic.RequestID, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	firstHalf := generic.HalfMonthPeriod(date("2026-02-03"))
	overlap := generic.Period{Start: date("2026-03-05"), End: date("2026-03-05")}

	assert.Equal(t, []generic.RequestID{"p-1", "p-2", "b-1", "b-2", "b-3"}, ids(generic.RequestFilter{EmployeeID: "emp-1"}))
	assert.Equal(t, []generic.RequestID{"p-1", "p-2"}, ids(generic.RequestFilter{EmployeeID: "emp-1", Kind: generic.KindHourlyPermit}))
	assert.Equal(t, []generic.RequestID{"p-1"}, ids(generic.RequestFilter{EmployeeID: "emp-1", Kind: generic.KindHourlyPermit, StartWithin: &firstHalf}))
	assert.Equal(t, []generic.RequestID{"p-1", "p-3"}, ids(generic.RequestFilter{Kind: generic.KindHourlyPermit, StartWithin: &firstHalf}))
	assert.Equal(t, []generic.RequestID{"b-1", "b-2"}, ids(generic.RequestFilter{Benefit: generic.BenefitMaternalCare}))
	assert.Equal(t, []generic.RequestID{"b-1"}, ids(generic.RequestFilter{Status: generic.StatusPending}))
	assert.Equal(t, []generic.RequestID{"b-1", "b-3"}, ids(generic.RequestFilter{
		EmployeeID:      "emp-1",
		Kind:            generic.KindBenefit,
		ExcludeStatuses: []generic.RequestStatus{generic.StatusRejected},
		Overlapping:     &overlap,
	}))
	assert.Empty(t, ids(generic.RequestFilter{EmployeeID: "emp-3"}))
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func testEmployees(t *testing.T, st generic.TxStore) {
	ctx := context.Background()

	seed(t, st, "emp-2", "emp-1")

	got, err := st.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, employee("emp-1"), got)

	// WHEN: Saving again with new values
	changed := employee("emp-1")
	changed.Appointment = generic.AppointmentInterim
	changed.Category = generic.CategorySupport
	changed.Active = false
	require.NoError(t, st.SaveEmployee(ctx, changed))

	// THEN: The record is replaced
	got, err = st.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, changed, got)

	list, err := st.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generic.EmployeeID("emp-1"), list[0].ID)
	assert.Equal(t, generic.EmployeeID("emp-2"), list[1].ID)

	_, err = st.GetEmployee(ctx, "emp-9")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

// =============================================================================
// AUDIT
// =============================================================================

func testAudit(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1", "emp-2")

	at := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	entries := []generic.AuditEntry{
		{ID: "a-1", Timestamp: at, ActorID: "emp-1", Action: generic.AuditRequestSubmitted, EmployeeID: "emp-1", RequestID: "req-1",
			Payload: map[string]any{"kind": "benefit"}},
		{ID: "a-2", Timestamp: at.Add(time.Minute), ActorID: "hr-1", Action: generic.AuditRequestRejected, EmployeeID: "emp-1", RequestID: "req-1",
			Payload: map[string]any{"reason": "staffing"}},
		{ID: "a-3", Timestamp: at.Add(2 * time.Minute), ActorID: "hr-1", Action: generic.AuditEmployeeSaved, EmployeeID: "emp-2"},
	}
	for _, e := range entries {
		require.NoError(t, st.AppendAudit(ctx, e))
	}

	trail, err := st.ListAudit(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "a-1", trail[0].ID)
	assert.Equal(t, generic.AuditRequestRejected, trail[1].Action)
	assert.Equal(t, generic.RequestID("req-1"), trail[1].RequestID)
	assert.Equal(t, "hr-1", trail[1].ActorID)
	assert.Equal(t, "staffing", trail[1].Payload["reason"])
	assert.True(t, trail[1].Timestamp.Equal(at.Add(time.Minute)))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func testTxCommit(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1")

	// WHEN: A transaction writes a request and a counter and reads them back
	err := st.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveRequest(ctx, request("req-1", "emp-1", generic.KindDiscretionary, "2026-02-10", "2026-02-12")); err != nil {
			return err
		}
		c, err := tx.GetOrCreateCounter(ctx, "emp-1", 2026)
		if err != nil {
			return err
		}
		c.DiscretionaryUsed++
		if err := tx.SaveCounter(ctx, c); err != nil {
			return err
		}

		inside, err := tx.ListRequests(ctx, generic.RequestFilter{EmployeeID: "emp-1"})
		if err != nil {
			return err
		}
		assert.Len(t, inside, 1)
		again, err := tx.GetOrCreateCounter(ctx, "emp-1", 2026)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, again.DiscretionaryUsed)
		return nil
	})
	require.NoError(t, err)

	// THEN: Both writes are visible afterwards
	_, err = st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	c, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DiscretionaryUsed)
}

func testTxRollback(t *testing.T, st generic.TxStore) {
	ctx := context.Background()
	seed(t, st, "emp-1")

	// WHEN: A transaction writes everywhere then fails
	err := st.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveRequest(ctx, request("req-1", "emp-1", generic.KindDiscretionary, "2026-02-10", "2026-02-12")); err != nil {
			return err
		}
		c, err := tx.GetOrCreateCounter(ctx, "emp-1", 2026)
		if err != nil {
			return err
		}
		c.DiscretionaryUsed = 3
		if err := tx.SaveCounter(ctx, c); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", Timestamp: time.Now().UTC(), Action: generic.AuditRequestSubmitted, EmployeeID: "emp-1"}); err != nil {
			return err
		}
		return errAbort
	})

	// THEN: The error surfaces and nothing persists
	assert.ErrorIs(t, err, errAbort)
	_, err = st.GetRequest(ctx, "req-1")
	assert.ErrorIs(t, err, generic.ErrRequestNotFound)
	c, err := st.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Zero(t, c.DiscretionaryUsed)
	trail, err := st.ListAudit(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, trail)
}
