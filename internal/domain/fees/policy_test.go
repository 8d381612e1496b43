package fees

import (
	"errors"
	"testing"

	"github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
)

func defaultPolicy() Policy {
	return Policy{
		ReservationHoldRate: FromFloat(0.25),
		ServiceFeeRate:      FromFloat(0.10),
		CommissionRate:      FromFloat(0.15),
		CancellationFeeRate: FromFloat(0.15),
	}
}

func appointment(priceCents int64) *models.Appointment {
	return &models.Appointment{
		ID:         "ap-1",
		ProviderID: "prov-1",
		ClientID:   "client-1",
		PriceCents: priceCents,
		Currency:   "USD",
	}
}

func amountOf(t *testing.T, entries []Draft, kind EntryKind) int64 {
	t.Helper()
	for _, e := range entries {
		if e.Kind == kind {
			return e.AmountCents
		}
	}
	t.Fatalf("no entry of kind %s", kind)
	return 0
}

func hasKind(entries []Draft, kind EntryKind) bool {
	for _, e := range entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestPolicy_Completed(t *testing.T) {
	t.Parallel()

	p := defaultPolicy()
	ap := appointment(10000)

	entries, err := p.ComputeEntries(ap, booking.Event{Kind: booking.EventCompleted}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := amountOf(t, entries, KindServicePayment); got != 10000 {
		t.Errorf("service payment = %d, want 10000", got)
	}
	if got := amountOf(t, entries, KindServiceFee); got != 1000 {
		t.Errorf("service fee = %d, want 1000", got)
	}
	if got := amountOf(t, entries, KindCommission); got != 1500 {
		t.Errorf("commission = %d, want 1500", got)
	}
	// Hold was 2500, commission takes 1500, client gets 1000 back.
	if got := amountOf(t, entries, KindRefund); got != 1000 {
		t.Errorf("refund = %d, want 1000", got)
	}

	// Provider nets price minus commission.
	var net int64
	for _, e := range entries {
		net += ProviderSign(e.Kind) * e.AmountCents
	}
	if net != 8500 {
		t.Errorf("provider net = %d, want 8500", net)
	}
}

func TestPolicy_CommissionConsumesWholeHold(t *testing.T) {
	t.Parallel()

	// Commission above the hold: nothing left to refund.
	p := Policy{
		ReservationHoldRate: FromFloat(0.10),
		ServiceFeeRate:      FromFloat(0.10),
		CommissionRate:      FromFloat(0.15),
		CancellationFeeRate: FromFloat(0.15),
	}

	entries, err := p.ComputeEntries(appointment(10000), booking.Event{Kind: booking.EventCompleted}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hasKind(entries, KindRefund) {
		t.Errorf("expected no refund entry when commission exceeds hold")
	}
}

func TestPolicy_Cancelled(t *testing.T) {
	t.Parallel()

	p := defaultPolicy()
	ap := appointment(10000)

	t.Run("short notice splits hold into fee and refund", func(t *testing.T) {
		entries, err := p.ComputeEntries(ap, booking.Event{Kind: booking.EventCancelled}, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		fee := amountOf(t, entries, KindCancellationFee)
		refund := amountOf(t, entries, KindRefund)
		if fee != 1500 {
			t.Errorf("cancellation fee = %d, want 1500", fee)
		}
		if refund != 1000 {
			t.Errorf("refund = %d, want 1000", refund)
		}
		if fee+refund != p.HoldAmount(ap.PriceCents) {
			t.Errorf("fee+refund = %d, want hold %d", fee+refund, p.HoldAmount(ap.PriceCents))
		}
	})

	t.Run("timely cancel refunds the whole hold", func(t *testing.T) {
		entries, err := p.ComputeEntries(ap, booking.Event{Kind: booking.EventCancelled}, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected single entry, got %d", len(entries))
		}
		if got := amountOf(t, entries, KindRefund); got != 2500 {
			t.Errorf("refund = %d, want 2500", got)
		}
	})

	t.Run("fee is clamped to the hold", func(t *testing.T) {
		clamped := Policy{
			ReservationHoldRate: FromFloat(0.10),
			ServiceFeeRate:      FromFloat(0.10),
			CommissionRate:      FromFloat(0.15),
			CancellationFeeRate: FromFloat(0.15),
		}

		entries, err := clamped.ComputeEntries(ap, booking.Event{Kind: booking.EventCancelled}, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := amountOf(t, entries, KindCancellationFee); got != 1000 {
			t.Errorf("cancellation fee = %d, want hold 1000", got)
		}
		if hasKind(entries, KindRefund) {
			t.Errorf("expected no refund when the fee consumes the hold")
		}
	})
}

func TestPolicy_NoShow(t *testing.T) {
	t.Parallel()

	p := defaultPolicy()
	entries, err := p.ComputeEntries(appointment(10000), booking.Event{Kind: booking.EventNoShow}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The full hold accrues to the provider, nothing comes back.
	if len(entries) != 1 {
		t.Fatalf("expected single entry, got %d", len(entries))
	}
	if got := amountOf(t, entries, KindCancellationFee); got != 2500 {
		t.Errorf("forfeited hold = %d, want 2500", got)
	}
}

func TestPolicy_Tip(t *testing.T) {
	t.Parallel()

	p := defaultPolicy()

	entries, err := p.ComputeEntries(appointment(10000), booking.Event{Kind: booking.EventTip, TipCents: 1200}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := amountOf(t, entries, KindTip); got != 1200 {
		t.Errorf("tip = %d, want 1200", got)
	}
	if ProviderSign(KindTip) != 1 {
		t.Errorf("tips must pass through to the provider in full")
	}

	if _, err := p.ComputeEntries(appointment(10000), booking.Event{Kind: booking.EventTip}, false); err == nil {
		t.Errorf("expected error for non-positive tip")
	}
}

func TestPolicy_UnknownEvent(t *testing.T) {
	t.Parallel()

	_, err := defaultPolicy().ComputeEntries(appointment(100), booking.Event{Kind: "exploded"}, false)
	if !errors.Is(err, booking.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestRefundToClient(t *testing.T) {
	t.Parallel()

	entries := []Draft{
		{Kind: KindCancellationFee, AmountCents: 1500},
		{Kind: KindRefund, AmountCents: 1000},
	}
	if got := RefundToClient(entries); got != 1000 {
		t.Errorf("RefundToClient = %d, want 1000", got)
	}
}

func TestRate_Apply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		rate   float64
		amount int64
		want   int64
	}{
		{"exact", 0.25, 10000, 2500},
		{"one cent", 0.15, 1, 0},           // 0.15 rounds down
		{"half down to even", 0.25, 10, 2}, // 2.5 -> 2
		{"half up to even", 0.25, 14, 4},   // 3.5 -> 4
		{"odd price", 0.15, 9999, 1500},    // 1499.85 -> 1500
		{"tiny rate", 0.0001, 10000, 1},
		{"zero", 0.25, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromFloat(tc.rate).Apply(tc.amount); got != tc.want {
				t.Errorf("FromFloat(%v).Apply(%d) = %d, want %d", tc.rate, tc.amount, got, tc.want)
			}
		})
	}
}
