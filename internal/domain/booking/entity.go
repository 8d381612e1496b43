package booking

import (
	"time"

	"github.com/chafukay/byootify/internal/models"
)

// ===============================
// Domain Actions
// ===============================

func Cancel(ap *models.Appointment, now time.Time) error {
	if err := CanCancel(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCancelled)
	ap.CancelledAt = &now
	return nil
}

func Complete(ap *models.Appointment, now time.Time) error {
	if err := CanComplete(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCompleted)
	ap.CompletedAt = &now
	return nil
}

func MarkNoShow(ap *models.Appointment, now time.Time) error {
	if err := CanMarkNoShow(Status(ap.Status)); err != nil {
		return err
	}
	// A no-show can only be marked once the interval has passed.
	if now.Before(ap.EndTime) {
		return ErrInvalidTransition
	}

	ap.Status = string(StatusNoShow)
	ap.CancelledAt = &now
	return nil
}

// Interval returns the appointment's calendar interval, the sole source used
// to mutate the provider calendar.
func IntervalOf(ap *models.Appointment) Interval {
	return Interval{Start: ap.StartTime, End: ap.EndTime}
}
