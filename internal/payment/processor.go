// Package payment is the boundary to the external payment processor. The
// core treats every operation as fallible, retryable and idempotent by key.
package payment

import "context"

type AuthorizeHoldInput struct {
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	PaymentMethod  string
}

type SettleHoldInput struct {
	IdempotencyKey string
	HoldToken      string

	// CaptureCents is taken from the hold; the remainder releases back to
	// the client. Zero releases the entire hold.
	CaptureCents int64
}

type ChargeInput struct {
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	PaymentMethod  string
}

type TransferInput struct {
	IdempotencyKey string
	AccountID      string
	AmountCents    int64
	Currency       string
}

type Processor interface {
	// AuthorizeHold places an uncaptured hold on the client's payment
	// method and returns the hold token used to settle it later. A refusal
	// surfaces as booking.ErrPaymentDeclined.
	AuthorizeHold(ctx context.Context, in AuthorizeHoldInput) (string, error)

	// SettleHold captures part of a previously authorized hold and releases
	// the rest. A hold settles exactly once.
	SettleHold(ctx context.Context, in SettleHoldInput) error

	// Charge debits the client's saved payment method immediately and
	// returns the processor's charge id.
	Charge(ctx context.Context, in ChargeInput) (string, error)

	// Transfer moves settled funds to a provider's connected account and
	// returns the processor's transfer id.
	Transfer(ctx context.Context, in TransferInput) (string, error)
}
