package models

import "time"

// AppointmentEvent is the state history of an appointment. The unique index on
// (appointment_id, trigger_event_id) is what makes transition replays no-ops:
// an upstream webhook retried with the same trigger id hits the same row.
type AppointmentEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID  string `gorm:"size:36;index;uniqueIndex:idx_appointment_trigger" json:"appointment_id"`
	TriggerEventID string `gorm:"size:64;uniqueIndex:idx_appointment_trigger" json:"trigger_event_id"`

	FromStatus string `gorm:"size:20" json:"from_status"`
	ToStatus   string `gorm:"size:20" json:"to_status"`

	CreatedAt time.Time `json:"created_at"`
}
