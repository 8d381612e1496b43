// Package notify hands events to the external notification dispatcher.
// Delivery is fire-and-forget and best effort: nothing here sits on the
// booking critical path, and a full queue drops rather than blocks.
package notify

import (
	"time"

	"go.uber.org/zap"
)

const (
	EventAppointmentConfirmed = "AppointmentConfirmed"
	EventAppointmentCancelled = "AppointmentCancelled"
	EventAppointmentCompleted = "AppointmentCompleted"
	EventAppointmentNoShow    = "AppointmentNoShow"
	EventAppointmentReminder  = "AppointmentReminder"
	EventPayoutIssued         = "PayoutIssued"
)

type Event struct {
	Type          string         `json:"type"`
	AppointmentID string         `json:"appointment_id,omitempty"`
	ProviderID    string         `json:"provider_id,omitempty"`
	ClientID      string         `json:"client_id,omitempty"`
	At            time.Time      `json:"at"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Sink is where events end up; the real transport (push/SMS/email) lives in
// the external dispatcher service.
type Sink interface {
	Deliver(ev Event) error
}

type Dispatcher struct {
	sink  Sink
	queue chan Event
	log   *zap.Logger
}

func NewDispatcher(sink Sink, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan Event, 256),
		log:   log,
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for ev := range d.queue {
		if err := d.sink.Deliver(ev); err != nil {
			d.log.Warn("notification delivery failed",
				zap.String("type", ev.Type),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
	default:
		// Queue full: drop. Notifications never break the API.
		d.log.Warn("notification queue full, dropping event", zap.String("type", ev.Type))
	}
}

// ZapSink logs events instead of delivering them; the default when no
// dispatcher endpoint is configured.
type ZapSink struct {
	Log *zap.Logger
}

func (s ZapSink) Deliver(ev Event) error {
	s.Log.Info("notification",
		zap.String("type", ev.Type),
		zap.String("appointment_id", ev.AppointmentID),
		zap.String("provider_id", ev.ProviderID))
	return nil
}
