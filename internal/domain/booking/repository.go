package booking

import (
	"context"
	"time"

	"github.com/chafukay/byootify/internal/models"
)

type Repository interface {
	// -------- Provider --------
	GetProvider(
		ctx context.Context,
		id string,
	) (*models.Provider, error)

	// -------- Service --------
	GetService(
		ctx context.Context,
		providerID string,
		serviceID string,
	) (*models.Service, error)

	// -------- Appointment --------
	CreateAppointment(
		ctx context.Context,
		ap *models.Appointment,
		ev *models.AppointmentEvent,
	) error

	GetAppointment(
		ctx context.Context,
		id string,
	) (*models.Appointment, error)

	// UpdateAppointment persists a state change together with its history
	// row; both or neither.
	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
		ev *models.AppointmentEvent,
	) error

	// SaveAppointment persists field changes that are not state transitions
	// (fees-pending bookkeeping).
	SaveAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	HasTriggerEvent(
		ctx context.Context,
		appointmentID string,
		triggerEventID string,
	) (bool, error)

	// -------- Sweeps --------
	ListConfirmedEndedBefore(
		ctx context.Context,
		cutoff time.Time,
	) ([]models.Appointment, error)

	ListFeesPending(
		ctx context.Context,
		limit int,
	) ([]models.Appointment, error)

	// -------- Listings --------
	ListForProviderBetween(
		ctx context.Context,
		providerID string,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)

	// -------- Working hours --------
	GetWorkingHours(
		ctx context.Context,
		providerID string,
		weekday int,
	) (*models.WorkingHours, error)

	UpsertWorkingHours(
		ctx context.Context,
		wh *models.WorkingHours,
	) error

	IsWithinWorkingHours(
		ctx context.Context,
		providerID string,
		start time.Time,
		end time.Time,
	) (bool, error)
}
