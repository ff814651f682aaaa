package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/generic/store"
	"github.com/warp/leave-engine/generic/store/storetest"
)

func TestTxMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.TxStore { return store.NewTxMemory() })
}

func TestMemory_CountersAreCopies(t *testing.T) {
	// GIVEN: A stored counter
	m := store.NewMemory()
	ctx := context.Background()
	c, err := m.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)

	// WHEN: The caller mutates its copy without saving
	c.OtherBenefitDays[generic.BenefitMarriage] = 3

	// THEN: The stored counter is unaffected
	again, err := m.GetOrCreateCounter(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Zero(t, again.BenefitDaysUsed(generic.BenefitMarriage))
}

func TestMemory_SaveWithoutLoadConflicts(t *testing.T) {
	m := store.NewMemory()
	c := generic.NewYearCounter("emp-1", 2026)
	c.Version = 4

	err := m.SaveCounter(context.Background(), c)

	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
}
