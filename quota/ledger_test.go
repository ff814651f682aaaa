package quota_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/generic/store"
	"github.com/warp/leave-engine/quota"
)

// conflictingStore fails the first n saves with a version conflict.
type conflictingStore struct {
	*store.Memory
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) SaveCounter(ctx context.Context, c generic.YearCounter) error {
	s.mu.Lock()
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return generic.ErrConcurrentModification
	}
	s.mu.Unlock()
	return s.Memory.SaveCounter(ctx, c)
}

func TestLedger_Get_CreatesZeroCounter(t *testing.T) {
	// GIVEN: No counter exists
	// WHEN: Reading it
	// THEN: An all-zero counter comes back and is persisted

	mem := store.NewMemory()
	ledger := quota.NewLedger(mem)
	ctx := context.Background()

	c, err := ledger.Get(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, c.DiscretionaryUsed)
	assert.True(t, c.LastDiscretionary.IsZero())
	assert.Equal(t, 0, c.BenefitDaysUsed(generic.BenefitMaternalCare))

	history, err := ledger.History(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLedger_Increments(t *testing.T) {
	ledger := quota.NewLedger(store.NewMemory())
	ctx := context.Background()
	day := generic.MustParseDate("2026-02-10")

	_, err := ledger.IncrementDiscretionary(ctx, "emp-1", 2026, day, 3)
	require.NoError(t, err)
	_, err = ledger.IncrementHourlyPermit(ctx, "emp-1", 2026, generic.SecondHalf)
	require.NoError(t, err)
	_, err = ledger.IncrementCumulativeBenefit(ctx, "emp-1", 2026, generic.BenefitMaternalCare, 2)
	require.NoError(t, err)
	_, err = ledger.IncrementCumulativeBenefit(ctx, "emp-1", 2026, generic.BenefitFamilyMedicalCare, 4)
	require.NoError(t, err)
	c, err := ledger.IncrementCumulativeBenefit(ctx, "emp-1", 2026, generic.BenefitMarriage, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, c.DiscretionaryUsed)
	assert.Equal(t, 3, c.DiscretionaryDaysUsed)
	assert.Equal(t, day, c.LastDiscretionary)
	assert.Equal(t, 0, c.HourlyPermits(generic.FirstHalf))
	assert.Equal(t, 1, c.HourlyPermits(generic.SecondHalf))
	assert.Equal(t, 2, c.MaternalCareDays)
	assert.Equal(t, 4, c.FamilyMedicalCareDays)
	assert.Equal(t, 5, c.OtherBenefitDays[generic.BenefitMarriage])
	assert.Equal(t, 5, c.Version)

	// Other years untouched
	other, err := ledger.Get(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, other.DiscretionaryUsed)
}

func TestLedger_InvalidHalfMonth(t *testing.T) {
	ledger := quota.NewLedger(store.NewMemory())

	_, err := ledger.IncrementHourlyPermit(context.Background(), "emp-1", 2026, generic.HalfMonth(3))
	assert.Error(t, err)
}

func TestLedger_RetriesOnConflict(t *testing.T) {
	// GIVEN: The store reports two version conflicts
	// WHEN: Incrementing
	// THEN: The ledger retries and the increment lands exactly once

	s := &conflictingStore{Memory: store.NewMemory(), conflicts: 2}
	ledger := quota.NewLedger(s)

	c, err := ledger.IncrementDiscretionary(context.Background(), "emp-1", 2026, generic.MustParseDate("2026-02-10"), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DiscretionaryUsed)
	assert.Equal(t, 3, s.saves)
}

func TestLedger_GivesUpAfterMaxRetries(t *testing.T) {
	s := &conflictingStore{Memory: store.NewMemory(), conflicts: 10}
	ledger := quota.NewLedger(s)
	ledger.MaxRetries = 1

	_, err := ledger.IncrementDiscretionary(context.Background(), "emp-1", 2026, generic.MustParseDate("2026-02-10"), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrConcurrentModification))
	assert.Equal(t, 2, s.saves)
}

func TestLedger_ConcurrentIncrements(t *testing.T) {
	// GIVEN: Many goroutines incrementing the same counter
	// THEN: No increment is lost

	ledger := quota.NewLedger(store.NewMemory())
	ledger.MaxRetries = 100
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.IncrementHourlyPermit(ctx, "emp-1", 2026, generic.FirstHalf)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := ledger.Get(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, 20, c.HourlyPermitsFirstHalf)
}

func TestSummarize(t *testing.T) {
	c := generic.NewYearCounter("emp-1", 2026)
	c.DiscretionaryUsed = 2
	c.DiscretionaryDaysUsed = 6
	c.HourlyPermitsFirstHalf = 1
	c.HourlyPermitsSecondHalf = 2
	c.MaternalCareDays = 3

	u := quota.Summarize(c, 3)

	assert.Equal(t, 2, u.DiscretionaryRequests)
	assert.True(t, u.DiscretionaryDays.Value.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, generic.UnitDays, u.DiscretionaryDays.Unit)
	assert.Equal(t, 3, u.HourlyPermits)
	assert.True(t, u.HourlyPermitHours.Value.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, generic.UnitHours, u.HourlyPermitHours.Unit)
	require.Contains(t, u.BenefitDays, generic.BenefitMaternalCare)
	assert.NotContains(t, u.BenefitDays, generic.BenefitMarriage)
}
