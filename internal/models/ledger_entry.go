package models

import "time"

// Payout settlement tags. Only entries of kind "payout" carry a status; the
// tag is the single permitted mutation on a ledger row and never changes an
// amount.
const (
	PayoutPending  = "pending"
	PayoutSettled  = "settled"
	PayoutReversed = "reversed"
)

// LedgerEntry is append-only. Corrections are new offsetting entries, never
// updates or deletes.
type LedgerEntry struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// Empty for payout entries, which settle a provider balance rather than
	// a single appointment.
	AppointmentID string `gorm:"size:36;index" json:"appointment_id"`
	ProviderID    string `gorm:"size:36;index" json:"provider_id"`

	Kind string `gorm:"size:30;not null" json:"kind"`

	// Minor units. Signed: reversal entries carry the negated amount of the
	// entry they offset.
	AmountCents int64  `json:"amount_cents"`
	Currency    string `gorm:"size:3;default:'USD'" json:"currency"`

	IdempotencyKey string `gorm:"size:64;uniqueIndex;not null" json:"idempotency_key"`
	TriggerEventID string `gorm:"size:64" json:"trigger_event_id"`

	// Payout bookkeeping.
	Status     string `gorm:"size:20" json:"status,omitempty"`
	TransferID string `gorm:"size:100" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
