/*
Package quota reads and mutates per-employee-per-year usage counters.

PURPOSE:
  The Ledger is the only writer of generic.YearCounter. Validators read
  through Get; the leave service applies increments after a request has
  been found eligible.

CONCURRENCY:
  Every increment is load -> mutate -> versioned save. A save that loses
  the version race returns generic.ErrConcurrentModification and the
  ledger reloads and reapplies the mutation, up to MaxRetries times.
  Callers that need validate-and-increment to be atomic run the whole
  sequence inside generic.TxStore.WithTx with a Ledger bound to the
  transactional store.

SEE ALSO:
  - generic/types.go: YearCounter
  - leave/service.go: The caller workflow
*/
package quota

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// DefaultMaxRetries is how many times a conflicting save is retried.
const DefaultMaxRetries = 3

type Ledger struct {
	store      generic.CounterStore
	MaxRetries int
}

func NewLedger(store generic.CounterStore) *Ledger {
	return &Ledger{store: store, MaxRetries: DefaultMaxRetries}
}

// Get returns the counter, creating the all-zero counter if absent.
// A missing counter is never an error.
func (l *Ledger) Get(ctx context.Context, employeeID generic.EmployeeID, year int) (generic.YearCounter, error) {
	c, err := l.store.GetOrCreateCounter(ctx, employeeID, year)
	if err != nil {
		return generic.YearCounter{}, fmt.Errorf("failed to load counter %s/%d: %w", employeeID, year, err)
	}
	return c, nil
}

// IncrementDiscretionary records one discretionary request of the given
// number of business days and moves the last-request date.
func (l *Ledger) IncrementDiscretionary(ctx context.Context, employeeID generic.EmployeeID, year int, requestDate generic.Date, days int) (generic.YearCounter, error) {
	return l.update(ctx, employeeID, year, func(c *generic.YearCounter) {
		c.DiscretionaryUsed++
		c.DiscretionaryDaysUsed += days
		c.LastDiscretionary = requestDate
	})
}

// IncrementHourlyPermit adds one permit to the half-month bucket.
func (l *Ledger) IncrementHourlyPermit(ctx context.Context, employeeID generic.EmployeeID, year int, half generic.HalfMonth) (generic.YearCounter, error) {
	if !half.Valid() {
		return generic.YearCounter{}, fmt.Errorf("invalid half-month period %d", int(half))
	}
	return l.update(ctx, employeeID, year, func(c *generic.YearCounter) {
		if half == generic.FirstHalf {
			c.HourlyPermitsFirstHalf++
		} else {
			c.HourlyPermitsSecondHalf++
		}
	})
}

// IncrementCumulativeBenefit adds days to the benefit's running total.
// The two capped kinds have dedicated fields; the rest go to the extension map.
func (l *Ledger) IncrementCumulativeBenefit(ctx context.Context, employeeID generic.EmployeeID, year int, kind generic.BenefitKind, days int) (generic.YearCounter, error) {
	return l.update(ctx, employeeID, year, func(c *generic.YearCounter) {
		switch kind {
		case generic.BenefitMaternalCare:
			c.MaternalCareDays += days
		case generic.BenefitFamilyMedicalCare:
			c.FamilyMedicalCareDays += days
		default:
			if c.OtherBenefitDays == nil {
				c.OtherBenefitDays = map[generic.BenefitKind]int{}
			}
			c.OtherBenefitDays[kind] += days
		}
	})
}

// History returns every counter recorded for an employee.
func (l *Ledger) History(ctx context.Context, employeeID generic.EmployeeID) ([]generic.YearCounter, error) {
	return l.store.ListCounters(ctx, employeeID)
}

func (l *Ledger) update(ctx context.Context, employeeID generic.EmployeeID, year int, mutate func(*generic.YearCounter)) (generic.YearCounter, error) {
	for attempt := 0; ; attempt++ {
		c, err := l.Get(ctx, employeeID, year)
		if err != nil {
			return generic.YearCounter{}, err
		}
		mutate(&c)

		err = l.store.SaveCounter(ctx, c)
		if err == nil {
			c.Version++
			return c, nil
		}
		if !generic.IsRetryable(err) || attempt >= l.MaxRetries {
			return generic.YearCounter{}, fmt.Errorf("failed to save counter %s/%d: %w", employeeID, year, err)
		}
	}
}
