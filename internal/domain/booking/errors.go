package booking

import "errors"

var (
	// ErrConflict: the requested interval overlaps a committed one. Client
	// retries with a different slot. The response never names the other
	// party's appointment.
	ErrConflict = errors.New("calendar conflict")

	// ErrReservationExpired: the tentative hold lapsed before confirmation.
	// Client retries from scratch.
	ErrReservationExpired = errors.New("reservation expired")

	// ErrPaymentDeclined: the processor refused the hold capture. Terminal
	// for this attempt; never retried behind the scenes.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrLedgerWriteFailure: infrastructure failure recording entries.
	// Retried internally with backoff before it is ever surfaced.
	ErrLedgerWriteFailure = errors.New("ledger write failure")

	// ErrInvariantViolation: a money or calendar invariant broke. Indicates
	// a bug; processing of the affected appointment halts, never silently
	// corrected.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotFound          = errors.New("appointment not found")
)
