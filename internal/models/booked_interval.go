package models

import "time"

const (
	IntervalTentative = "tentative"
	IntervalConfirmed = "confirmed"
)

// BookedInterval is one committed (or tentatively held) block on a provider
// calendar. Intervals are half-open [start, end): two intervals sharing a
// boundary instant do not overlap.
type BookedInterval struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ProviderID string `gorm:"size:36;index:idx_provider_start" json:"provider_id"`

	StartTime time.Time `gorm:"index:idx_provider_start" json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Empty while the interval is a tentative hold.
	AppointmentID string `gorm:"size:36;index" json:"appointment_id"`

	Status string `gorm:"size:20;default:'tentative'" json:"status"`

	// Only set for tentative holds; confirmed intervals never expire.
	ExpiresAt *time.Time `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}
