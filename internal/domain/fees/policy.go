package fees

import (
	"fmt"

	"github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
)

// Draft is a ledger entry computed by the policy engine before it is given an
// id and an idempotency key.
type Draft struct {
	Kind        EntryKind
	AmountCents int64
	Currency    string
}

// Policy maps an appointment event to the ledger entries it triggers. It is
// pure: same appointment, same event, same output. Rates come from
// configuration, never hardcoded.
type Policy struct {
	ReservationHoldRate Rate
	ServiceFeeRate      Rate
	CommissionRate      Rate
	CancellationFeeRate Rate
}

// HoldAmount is the escrow captured at confirmation. Cancellation and
// completion reconcile against exactly this amount, so every caller must use
// this method rather than re-applying the rate.
func (p Policy) HoldAmount(priceCents int64) int64 {
	return p.ReservationHoldRate.Apply(priceCents)
}

// ComputeEntries returns the entries an event produces. For every event that
// releases escrow, the released amounts must sum exactly to the hold captured
// at confirmation; a mismatch is an ErrInvariantViolation, not something to
// paper over.
//
// shortNotice only matters for EventCancelled: whether the cancellation fell
// inside the configured short-notice window before the appointment start.
func (p Policy) ComputeEntries(ap *models.Appointment, ev booking.Event, shortNotice bool) ([]Draft, error) {
	price := ap.PriceCents
	hold := p.HoldAmount(price)
	cur := ap.Currency

	switch ev.Kind {
	case booking.EventConfirmed:
		return []Draft{
			{Kind: KindReservationHold, AmountCents: hold, Currency: cur},
		}, nil

	case booking.EventCompleted:
		commission := p.CommissionRate.Apply(price)
		serviceFee := p.ServiceFeeRate.Apply(price)

		entries := []Draft{
			{Kind: KindServicePayment, AmountCents: price, Currency: cur},
			{Kind: KindServiceFee, AmountCents: serviceFee, Currency: cur},
			{Kind: KindCommission, AmountCents: commission, Currency: cur},
		}

		// The hold is applied against the commission; the remainder is
		// refunded to the client. If the commission exceeds the hold the
		// shortfall rides on the completion charge and nothing is refunded.
		applied := commission
		if applied > hold {
			applied = hold
		}
		refund := hold - applied
		if refund > 0 {
			entries = append(entries, Draft{Kind: KindRefund, AmountCents: refund, Currency: cur})
		}

		if applied+refund != hold {
			return nil, escrowViolation(ev, hold, applied+refund)
		}
		return entries, nil

	case booking.EventCancelled:
		if !shortNotice {
			// Full hold back to the client, no fee.
			return []Draft{
				{Kind: KindRefund, AmountCents: hold, Currency: cur},
			}, nil
		}

		fee := p.CancellationFeeRate.Apply(price)
		if fee > hold {
			fee = hold
		}
		refund := hold - fee

		entries := []Draft{
			{Kind: KindCancellationFee, AmountCents: fee, Currency: cur},
		}
		if refund > 0 {
			entries = append(entries, Draft{Kind: KindRefund, AmountCents: refund, Currency: cur})
		}

		if fee+refund != hold {
			return nil, escrowViolation(ev, hold, fee+refund)
		}
		return entries, nil

	case booking.EventNoShow:
		// The entire hold, fee plus forfeited remainder, accrues to the
		// provider. Nothing is refunded.
		return []Draft{
			{Kind: KindCancellationFee, AmountCents: hold, Currency: cur},
		}, nil

	case booking.EventTip:
		if ev.TipCents <= 0 {
			return nil, fmt.Errorf("tip amount must be positive: %d", ev.TipCents)
		}
		return []Draft{
			{Kind: KindTip, AmountCents: ev.TipCents, Currency: cur},
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown event kind %q", booking.ErrInvariantViolation, ev.Kind)
}

// RefundToClient extracts the client-refund portion of a computed entry set,
// which is what the payment processor is instructed to return from the hold.
func RefundToClient(entries []Draft) int64 {
	var total int64
	for _, e := range entries {
		if e.Kind == KindRefund {
			total += e.AmountCents
		}
	}
	return total
}

func escrowViolation(ev booking.Event, held, released int64) error {
	return fmt.Errorf("%w: event %s released %d of %d held",
		booking.ErrInvariantViolation, ev.Kind, released, held)
}
