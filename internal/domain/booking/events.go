package booking

import "time"

// EventKind is what happened to an appointment, as seen by the fee policy
// engine and the ledger.
type EventKind string

const (
	EventConfirmed EventKind = "confirmed"
	EventCompleted EventKind = "completed"
	EventCancelled EventKind = "cancelled"
	EventNoShow    EventKind = "no_show"
	EventTip       EventKind = "tip"
)

// Event is one state-machine trigger. TriggerID is supplied by the caller
// (or derived deterministically for automatic transitions) and is what makes
// replays of the same upstream delivery idempotent.
type Event struct {
	Kind      EventKind
	TriggerID string
	At        time.Time

	// Only for EventTip.
	TipCents int64
}
