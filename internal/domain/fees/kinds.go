package fees

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	// KindReservationHold: money captured from the client at confirmation,
	// held in escrow, not yet revenue.
	KindReservationHold EntryKind = "reservation_hold"

	// KindServicePayment: the gross service price credited to the provider
	// when the job completes.
	KindServicePayment EntryKind = "service_payment"

	// KindServiceFee: platform fee charged to the client on completion,
	// separate from the commission.
	KindServiceFee EntryKind = "service_fee"

	// KindCommission: the platform's cut of provider earnings.
	KindCommission EntryKind = "commission"

	// KindCancellationFee: short-notice cancellation or no-show fee,
	// credited to the provider out of the held reservation.
	KindCancellationFee EntryKind = "cancellation_fee"

	// KindTip: passes through 100% to the provider.
	KindTip EntryKind = "tip"

	// KindRefund: escrow returned to the client.
	KindRefund EntryKind = "refund"

	// KindPayout: settlement sweep of a provider balance.
	KindPayout EntryKind = "payout"
)

// ProviderSign maps an entry kind to its sign in a provider balance.
// ReservationHold, ServiceFee and Refund are client/platform flows and do not
// touch the provider's receivable.
func ProviderSign(kind EntryKind) int64 {
	switch kind {
	case KindServicePayment, KindCancellationFee, KindTip:
		return +1
	case KindCommission, KindPayout:
		return -1
	default:
		return 0
	}
}
