/*
errors.go - Centralized error types for the leave engine

ERROR CATEGORIES:
  1. Configuration errors - malformed calendar or rule configuration (hard stop)
  2. Store errors - persistence failures, optimistic-lock conflicts
  3. Lookup errors - missing employees or requests

Eligibility violations are NOT errors. They are reported as values in
eligibility.Result so the caller sees every violation at once.

SEE ALSO:
  - calendar/calendar.go: Returns CalendarConfigError
  - quota/ledger.go: Retries on ErrConcurrentModification
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCalendarMisconfigured is returned when a business-day search exceeds
	// its iteration cap. The holiday/vacation configuration is malformed.
	ErrCalendarMisconfigured = errors.New("calendar misconfigured: business-day search did not terminate")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrCounterExists is returned when creating a counter that another writer created first.
	ErrCounterExists = errors.New("year counter already exists")

	ErrEmployeeNotFound = errors.New("employee not found")
	ErrRequestNotFound  = errors.New("leave request not found")

	// ErrInvalidTransition is returned when a request status change is not allowed.
	ErrInvalidTransition = errors.New("invalid request status transition")

	ErrUnknownLeaveKind   = errors.New("unknown leave kind")
	ErrUnknownBenefitKind = errors.New("unknown benefit kind")

	// ErrInvalidConfig is returned by configuration parsing and validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput is returned for malformed employee or request fields.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CalendarConfigError describes a business-day walk that hit the iteration cap.
type CalendarConfigError struct {
	From      Date
	Direction string // "forward" or "backward"
	Wanted    int    // business days requested
	Found     int    // business days found before giving up
	Cap       int    // calendar days walked
}

func (e *CalendarConfigError) Error() string {
	return fmt.Sprintf("calendar misconfigured: walking %s from %s found %d of %d business days within %d calendar days",
		e.Direction, e.From, e.Found, e.Wanted, e.Cap)
}

func (e *CalendarConfigError) Unwrap() error {
	return ErrCalendarMisconfigured
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownLeaveKind) ||
		errors.Is(err, ErrUnknownBenefitKind) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}
