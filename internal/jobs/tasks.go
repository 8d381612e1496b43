// Package jobs owns everything that runs off the request path: periodic
// sweeps, the daily payout cycle, and per-appointment reminders, all driven
// through asynq on redis.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCalendarSweep       = "calendar:sweep"
	TypeBookingAutoComplete = "booking:autocomplete"
	TypeLedgerRetry         = "ledger:retry"
	TypePayoutRun           = "payout:run"
	TypePayoutReconcile     = "payout:reconcile"
	TypeBookingReminder     = "booking:reminder"
)

type ReminderPayload struct {
	AppointmentID string `json:"appointment_id"`
}

func NewReminderTask(appointmentID string, runAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ReminderPayload{AppointmentID: appointmentID})
	if err != nil {
		return nil, nil, err
	}

	task := asynq.NewTask(TypeBookingReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(runAt),
		asynq.TaskID("reminder:" + appointmentID),
	}
	return task, opts, nil
}
