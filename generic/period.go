package generic

import "fmt"

// =============================================================================
// PERIOD - Closed date interval
// =============================================================================

// Period is the closed interval [Start, End].
// Vacation ranges, half-month periods and request spans are all Periods.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps uses the closed-interval test: a.Start <= b.End && a.End >= b.Start.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

// Valid reports End >= Start.
func (p Period) Valid() bool { return !p.End.Before(p.Start) }

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// HALF-MONTH PERIOD (quincena)
// =============================================================================

// HalfMonth identifies the first (days 1-15) or second (16-end) half of a month.
type HalfMonth int

const (
	FirstHalf  HalfMonth = 1
	SecondHalf HalfMonth = 2
)

func (h HalfMonth) Valid() bool { return h == FirstHalf || h == SecondHalf }

func (h HalfMonth) String() string { return fmt.Sprintf("%d", int(h)) }

// HalfMonthOf returns the half-month index of a date.
func HalfMonthOf(d Date) HalfMonth {
	if d.Day() <= 15 {
		return FirstHalf
	}
	return SecondHalf
}

// HalfMonthPeriod returns the bounds of the half-month containing d.
func HalfMonthPeriod(d Date) Period {
	if HalfMonthOf(d) == FirstHalf {
		return Period{
			Start: StartOfMonth(d.Year(), d.Month()),
			End:   NewDate(d.Year(), d.Month(), 15),
		}
	}
	return Period{
		Start: NewDate(d.Year(), d.Month(), 16),
		End:   EndOfMonth(d.Year(), d.Month()),
	}
}
