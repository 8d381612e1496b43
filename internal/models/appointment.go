package models

import "time"

type Appointment struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	ClientID   string `gorm:"size:36;index" json:"client_id"`
	ProviderID string `gorm:"size:36;index" json:"provider_id"`
	ServiceID  string `gorm:"size:36" json:"service_id"`

	PriceCents int64  `json:"price_cents"`
	Currency   string `gorm:"size:3;default:'USD'" json:"currency"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status string `gorm:"size:20;default:'confirmed'" json:"status"`

	// Reservation hold token from the payment processor; needed to settle
	// the hold when the appointment resolves.
	HoldToken string `gorm:"size:100" json:"-"`

	// Saved payment method for the completion charge and tips.
	PaymentMethod string `gorm:"size:100" json:"-"`

	// Set when ledger recording for a transition exhausted its retries. The
	// pending event is replayed by a background job; the booking itself is
	// already in its target state.
	FeesPending    bool   `gorm:"default:false;index" json:"fees_pending"`
	PendingEvent   string `gorm:"size:20" json:"-"`
	PendingEventID string `gorm:"size:64" json:"-"`

	Notes       string     `gorm:"size:255" json:"notes"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
