package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/domain/booking"
)

// StripeProcessor implements Processor on Stripe. Holds are manual-capture
// PaymentIntents: authorized at booking, then either partially captured
// (Stripe releases the uncaptured remainder) or canceled outright when the
// appointment settles. Completion charges and tips are separate
// create-and-confirm intents against the saved payment method. Every call
// carries the caller's idempotency key and a bounded timeout, so the caller
// may retry freely without double-charging.
type StripeProcessor struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewStripeProcessor(apiKey string, timeout time.Duration, log *zap.Logger) *StripeProcessor {
	stripe.Key = apiKey
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StripeProcessor{timeout: timeout, log: log}
}

func (p *StripeProcessor) AuthorizeHold(ctx context.Context, in AuthorizeHoldInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.AmountCents),
		Currency:      stripe.String(strings.ToLower(in.Currency)),
		PaymentMethod: stripe.String(in.PaymentMethod),
		Confirm:       stripe.Bool(true),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(in.IdempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		if isDecline(err) {
			p.log.Info("payment hold declined", zap.String("key", in.IdempotencyKey))
			return "", booking.ErrPaymentDeclined
		}
		return "", fmt.Errorf("authorize hold: %w", err)
	}

	if pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod ||
		pi.Status == stripe.PaymentIntentStatusCanceled {
		return "", booking.ErrPaymentDeclined
	}

	return pi.ID, nil
}

// SettleHold resolves a manual-capture intent. An uncaptured intent cannot be
// refunded, so a full release is a cancel and a partial keep is a capture
// with amount_to_capture; Stripe returns the remainder automatically.
func (p *StripeProcessor) SettleHold(ctx context.Context, in SettleHoldInput) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if in.CaptureCents <= 0 {
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = ctx
		params.IdempotencyKey = stripe.String(in.IdempotencyKey)

		if _, err := paymentintent.Cancel(in.HoldToken, params); err != nil {
			return fmt.Errorf("release hold %s: %w", in.HoldToken, err)
		}
		return nil
	}

	params := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(in.CaptureCents),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(in.IdempotencyKey)

	if _, err := paymentintent.Capture(in.HoldToken, params); err != nil {
		return fmt.Errorf("capture hold %s: %w", in.HoldToken, err)
	}
	return nil
}

func (p *StripeProcessor) Charge(ctx context.Context, in ChargeInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.AmountCents),
		Currency:      stripe.String(strings.ToLower(in.Currency)),
		PaymentMethod: stripe.String(in.PaymentMethod),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(in.IdempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		if isDecline(err) {
			p.log.Info("charge declined", zap.String("key", in.IdempotencyKey))
			return "", booking.ErrPaymentDeclined
		}
		return "", fmt.Errorf("charge: %w", err)
	}

	if pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod ||
		pi.Status == stripe.PaymentIntentStatusCanceled {
		return "", booking.ErrPaymentDeclined
	}

	return pi.ID, nil
}

func (p *StripeProcessor) Transfer(ctx context.Context, in TransferInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(in.AmountCents),
		Currency:    stripe.String(strings.ToLower(in.Currency)),
		Destination: stripe.String(in.AccountID),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(in.IdempotencyKey)

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("transfer to %s: %w", in.AccountID, err)
	}
	return tr.ID, nil
}

func isDecline(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Type == stripe.ErrorTypeCard
	}
	return false
}
