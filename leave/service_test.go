package leave

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/eligibility"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/generic/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) generic.Date { return generic.MustParseDate(s) }

func newTestService(t *testing.T, st generic.TxStore) *RequestService {
	t.Helper()
	svc, err := NewRequestService(st, calendar.MustNew(calendar.DefaultConfig()), eligibility.DefaultConfig(), nil)
	require.NoError(t, err)
	return svc
}

func seedEmployee(t *testing.T, st generic.TxStore, e generic.Employee) {
	t.Helper()
	require.NoError(t, st.SaveEmployee(context.Background(), e))
}

func teachingStaff() generic.Employee {
	return generic.Employee{
		ID:          "emp-1",
		Name:        "Ana",
		Email:       "ana@example.com",
		HireDate:    d("2015-01-15"),
		Category:    generic.CategoryTeaching,
		Appointment: generic.AppointmentPermanent,
		Active:      true,
	}
}

func submit(t *testing.T, svc *RequestService, req eligibility.Request) generic.LeaveRequest {
	t.Helper()
	r, res, err := svc.Submit(context.Background(), SubmitInput{EmployeeID: "emp-1", Request: req})
	require.NoError(t, err, res.Errors)
	return r
}

func maternal(start, end string) eligibility.Request {
	return eligibility.Request{Kind: generic.KindBenefit, Benefit: generic.BenefitMaternalCare, Start: d(start), End: d(end)}
}

// flakyStore fails the first n transactions with a version conflict.
type flakyStore struct {
	*store.TxMemory
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	f.mu.Lock()
	f.attempts++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return generic.ErrConcurrentModification
	}
	return f.TxMemory.WithTx(ctx, fn)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_Discretionary_PersistsAndIncrements(t *testing.T) {
	// GIVEN: An eligible employee
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	// WHEN: Submitting a discretionary leave
	r, res, err := svc.Submit(ctx, SubmitInput{
		EmployeeID: "emp-1",
		Request:    eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10"), Reason: "family"},
	})

	// THEN: The request is stored approved with the computed span
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, generic.StatusApproved, r.Status)
	assert.Equal(t, d("2026-02-12"), r.End)
	assert.Equal(t, 3, r.Days)
	assert.Equal(t, "emp-1", r.CreatedBy)

	stored, err := st.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "family", stored.Reason)

	// AND: The counter moved
	c, usage, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DiscretionaryUsed)
	assert.Equal(t, 3, c.DiscretionaryDaysUsed)
	assert.Equal(t, d("2026-02-10"), c.LastDiscretionary)
	assert.Equal(t, 1, usage.DiscretionaryRequests)
	assert.Equal(t, "3 days", usage.DiscretionaryDays.String())
}

func TestSubmit_Ineligible_LeavesStoreUntouched(t *testing.T) {
	// GIVEN: One discretionary leave already taken
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()
	submit(t, svc, eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10")})

	// WHEN: Submitting another one the next day
	_, res, err := svc.Submit(ctx, SubmitInput{
		EmployeeID: "emp-1",
		Request:    eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-11")},
	})

	// THEN: The error carries the full result
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotEligible))
	var ineligible *IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.True(t, ineligible.Result.Has(eligibility.CodeSeparationTooShort))
	assert.False(t, res.Valid)
	assert.Contains(t, err.Error(), string(eligibility.CodeSeparationTooShort))

	// AND: Nothing was written
	requests, err := svc.ListRequests(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	c, _, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DiscretionaryUsed)
	trail, err := svc.AuditTrail(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestSubmit_HourlyPermits_HalfMonthBucket(t *testing.T) {
	// GIVEN: Two permits in the first half of February
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	window := &generic.TimeWindow{From: generic.ClockTime{Hour: 8}, To: generic.ClockTime{Hour: 11}}
	first := submit(t, svc, eligibility.Request{Kind: generic.KindHourlyPermit, Start: d("2026-02-03"), Window: window})
	submit(t, svc, eligibility.Request{Kind: generic.KindHourlyPermit, Start: d("2026-02-05")})

	// WHEN: Asking for a third
	_, _, err := svc.Submit(ctx, SubmitInput{
		EmployeeID: "emp-1",
		Request:    eligibility.Request{Kind: generic.KindHourlyPermit, Start: d("2026-02-10")},
	})

	// THEN: HALF_MONTH_LIMIT
	var ineligible *IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, []eligibility.Code{eligibility.CodeHalfMonthLimit}, ineligible.Result.Codes())

	// AND: The stored permit kept its window and the bucket counts two
	assert.Equal(t, window, first.Window)
	assert.Equal(t, 0, first.Days)
	c, usage, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, c.HourlyPermitsFirstHalf)
	assert.Equal(t, 0, c.HourlyPermitsSecondHalf)
	assert.Equal(t, "6 hours", usage.HourlyPermitHours.String())

	// AND: The second half of the month is a fresh bucket
	submit(t, svc, eligibility.Request{Kind: generic.KindHourlyPermit, Start: d("2026-02-17")})
}

func TestSubmit_Commission_ApprovedWithoutCounter(t *testing.T) {
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)

	r := submit(t, svc, eligibility.Request{
		Kind:     generic.KindCommissionFullDay,
		Start:    d("2026-02-10"),
		End:      d("2026-02-11"),
		Location: "Regional office",
	})

	assert.Equal(t, generic.StatusApproved, r.Status)
	assert.Equal(t, "Regional office", r.Location)
	assert.Equal(t, 2, r.Days)

	c, _, err := svc.Counter(context.Background(), "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, c.DiscretionaryUsed)
}

func TestSubmit_InputErrors(t *testing.T) {
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	t.Run("unknown employee", func(t *testing.T) {
		_, _, err := svc.Submit(ctx, SubmitInput{
			EmployeeID: "ghost",
			Request:    eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10")},
		})
		assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
	})

	t.Run("missing start", func(t *testing.T) {
		_, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "emp-1", Request: eligibility.Request{Kind: generic.KindDiscretionary}})
		assert.ErrorIs(t, err, generic.ErrInvalidInput)
	})

	t.Run("benefit without kind", func(t *testing.T) {
		_, err := svc.Validate(ctx, "emp-1", eligibility.Request{Kind: generic.KindBenefit, Start: d("2026-02-10")})
		assert.ErrorIs(t, err, generic.ErrInvalidInput)
	})

	t.Run("unknown leave kind", func(t *testing.T) {
		_, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "emp-1", Request: eligibility.Request{Kind: "sabbatical", Start: d("2026-02-10")}})
		assert.ErrorIs(t, err, generic.ErrUnknownLeaveKind)
		assert.True(t, generic.IsClientError(err))
	})
}

func TestValidate_DoesNotPersist(t *testing.T) {
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	res, err := svc.Validate(ctx, "emp-1", eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10")})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	requests, err := st.ListRequests(ctx, generic.RequestFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Empty(t, requests)
}

// =============================================================================
// BENEFIT LIFECYCLE
// =============================================================================

func TestBenefit_PendingThenApproved(t *testing.T) {
	// GIVEN: A maternal-care request
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	r := submit(t, svc, maternal("2026-02-09", "2026-02-13"))

	// THEN: It waits for approval without touching the counter
	assert.Equal(t, generic.StatusPending, r.Status)
	assert.Equal(t, generic.BenefitMaternalCare, r.Benefit)
	c, _, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, c.MaternalCareDays)

	// WHEN: HR approves it
	approved, err := svc.Approve(ctx, r.ID, "hr-1")

	// THEN: The days are counted and the decision recorded
	require.NoError(t, err)
	assert.Equal(t, generic.StatusApproved, approved.Status)
	assert.Equal(t, "hr-1", approved.DecidedBy)
	assert.False(t, approved.DecidedAt.IsZero())
	c, _, err = svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaternalCareDays)

	// AND: A second approval is an invalid transition
	_, err = svc.Approve(ctx, r.ID, "hr-1")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	trail, err := svc.AuditTrail(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, generic.AuditRequestSubmitted, trail[0].Action)
	assert.Equal(t, generic.AuditRequestApproved, trail[1].Action)
	assert.Equal(t, "hr-1", trail[1].ActorID)
	assert.Equal(t, r.ID, trail[1].RequestID)
}

func TestBenefit_ApproveRechecksAnnualCap(t *testing.T) {
	// GIVEN: Three pending maternal-care requests of 5, 2 and 3 days.
	// Each fits the 7-day cap alone.
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	a := submit(t, svc, maternal("2026-02-09", "2026-02-13"))
	b := submit(t, svc, maternal("2026-02-23", "2026-02-24"))
	c := submit(t, svc, maternal("2026-03-02", "2026-03-04"))

	// WHEN: Approving all three in order
	_, err := svc.Approve(ctx, a.ID, "hr-1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, b.ID, "hr-1")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, c.ID, "hr-1")

	// THEN: The third exceeds the yearly total and stays pending
	var ineligible *IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, []eligibility.Code{eligibility.CodeAnnualCapExceeded}, ineligible.Result.Codes())

	stored, err := svc.GetRequest(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusPending, stored.Status)

	counter, _, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 7, counter.MaternalCareDays)
}

func TestBenefit_NonCumulativeApprovalGoesToExtensionMap(t *testing.T) {
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	r := submit(t, svc, eligibility.Request{
		Kind: generic.KindBenefit, Benefit: generic.BenefitMarriage, Start: d("2026-02-09"), End: d("2026-02-11"),
	})
	_, err := svc.Approve(ctx, r.ID, "hr-1")
	require.NoError(t, err)

	c, usage, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, c.BenefitDaysUsed(generic.BenefitMarriage))
	assert.Equal(t, "3 days", usage.BenefitDays[generic.BenefitMarriage].String())
}

func TestBenefit_Reject(t *testing.T) {
	// GIVEN: A pending request
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()
	r := submit(t, svc, maternal("2026-02-09", "2026-02-13"))

	// WHEN: HR rejects it
	rejected, err := svc.Reject(ctx, r.ID, "hr-2", "missing paperwork")

	// THEN: The reason is stored and the counter stays at zero
	require.NoError(t, err)
	assert.Equal(t, generic.StatusRejected, rejected.Status)
	assert.Equal(t, "missing paperwork", rejected.RejectionReason)
	assert.Equal(t, "hr-2", rejected.DecidedBy)
	c, _, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, c.MaternalCareDays)

	// AND: The same dates can be requested again
	submit(t, svc, maternal("2026-02-09", "2026-02-13"))

	// AND: Rejected requests cannot move again
	_, err = svc.Reject(ctx, r.ID, "hr-2", "again")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	_, err = svc.Approve(ctx, r.ID, "hr-2")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestApprove_UnknownRequest(t *testing.T) {
	svc := newTestService(t, store.NewTxMemory())

	_, err := svc.Approve(context.Background(), "missing", "hr-1")

	assert.ErrorIs(t, err, generic.ErrRequestNotFound)
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestSubmit_RetriesConcurrentModification(t *testing.T) {
	// GIVEN: A store whose first two transactions lose a race
	st := &flakyStore{TxMemory: store.NewTxMemory(), failures: 2}
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)

	// WHEN: Submitting
	r := submit(t, svc, eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10")})

	// THEN: The third attempt commits exactly once
	assert.Equal(t, 3, st.attempts)
	assert.Equal(t, generic.StatusApproved, r.Status)
	c, _, err := svc.Counter(context.Background(), "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DiscretionaryUsed)
}

func TestSubmit_GivesUpAfterMaxRetries(t *testing.T) {
	st := &flakyStore{TxMemory: store.NewTxMemory(), failures: 10}
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	svc.MaxRetries = 2

	_, _, err := svc.Submit(context.Background(), SubmitInput{
		EmployeeID: "emp-1",
		Request:    eligibility.Request{Kind: generic.KindDiscretionary, Start: d("2026-02-10")},
	})

	assert.True(t, generic.IsRetryable(err))
	assert.Equal(t, 3, st.attempts)
}

func TestSubmit_ConcurrentPermits_NeverExceedLimit(t *testing.T) {
	// GIVEN: Ten simultaneous permit submissions in one half-month
	st := store.NewTxMemory()
	seedEmployee(t, st, teachingStaff())
	svc := newTestService(t, st)
	ctx := context.Background()

	days := []string{"2026-02-03", "2026-02-04", "2026-02-05", "2026-02-06", "2026-02-09",
		"2026-02-10", "2026-02-11", "2026-02-12", "2026-02-13", "2026-02-03"}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for _, day := range days {
		wg.Add(1)
		go func(day string) {
			defer wg.Done()
			_, _, err := svc.Submit(ctx, SubmitInput{
				EmployeeID: "emp-1",
				Request:    eligibility.Request{Kind: generic.KindHourlyPermit, Start: d(day)},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.Is(err, ErrNotEligible) {
				refused++
			}
		}(day)
	}
	wg.Wait()

	// THEN: Exactly the limit is accepted and the counter agrees
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 8, refused)
	c, _, err := svc.Counter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, c.HourlyPermitsFirstHalf)
}
