package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/timezone"
)

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Provider
// --------------------------------------------------

func (r *BookingGormRepository) GetProvider(
	ctx context.Context,
	id string,
) (*models.Provider, error) {

	var provider models.Provider
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// --------------------------------------------------
// Service
// --------------------------------------------------

func (r *BookingGormRepository) GetService(
	ctx context.Context,
	providerID string,
	serviceID string,
) (*models.Service, error) {

	var service models.Service
	if err := r.db.WithContext(ctx).
		Where("id = ? AND provider_id = ? AND active = true", serviceID, providerID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &service, nil
}

// --------------------------------------------------
// Appointment
// --------------------------------------------------

func (r *BookingGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
	ev *models.AppointmentEvent,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ap).Error; err != nil {
			return err
		}
		return tx.Create(ev).Error
	})
}

func (r *BookingGormRepository) GetAppointment(
	ctx context.Context,
	id string,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ap, nil
}

func (r *BookingGormRepository) UpdateAppointment(
	ctx context.Context,
	ap *models.Appointment,
	ev *models.AppointmentEvent,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ap).Error; err != nil {
			return err
		}
		return tx.Create(ev).Error
	})
}

func (r *BookingGormRepository) SaveAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.db.WithContext(ctx).Save(ap).Error
}

func (r *BookingGormRepository) HasTriggerEvent(
	ctx context.Context,
	appointmentID string,
	triggerEventID string,
) (bool, error) {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AppointmentEvent{}).
		Where("appointment_id = ? AND trigger_event_id = ?", appointmentID, triggerEventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// --------------------------------------------------
// Sweeps
// --------------------------------------------------

func (r *BookingGormRepository) ListConfirmedEndedBefore(
	ctx context.Context,
	cutoff time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_time < ?", "confirmed", cutoff).
		Order("end_time ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *BookingGormRepository) ListFeesPending(
	ctx context.Context,
	limit int,
) ([]models.Appointment, error) {

	var apps []models.Appointment
	if err := r.db.WithContext(ctx).
		Where("fees_pending = true").
		Order("updated_at ASC").
		Limit(limit).
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// --------------------------------------------------
// Listings
// --------------------------------------------------

func (r *BookingGormRepository) ListForProviderBetween(
	ctx context.Context,
	providerID string,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment
	if err := r.db.WithContext(ctx).
		Where(
			"provider_id = ? AND start_time >= ? AND start_time < ?",
			providerID, start, end,
		).
		Order("start_time ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// --------------------------------------------------
// Working hours
// --------------------------------------------------

func (r *BookingGormRepository) GetWorkingHours(
	ctx context.Context,
	providerID string,
	weekday int,
) (*models.WorkingHours, error) {

	var wh models.WorkingHours
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND weekday = ?", providerID, weekday).
		First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

func (r *BookingGormRepository) UpsertWorkingHours(
	ctx context.Context,
	wh *models.WorkingHours,
) error {
	var existing models.WorkingHours
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND weekday = ?", wh.ProviderID, wh.Weekday).
		First(&existing).Error

	if err == nil {
		wh.ID = existing.ID
		wh.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(wh).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(wh).Error
}

// IsWithinWorkingHours evaluates the slot in the provider's timezone. The
// usecase passes instants in UTC; the stored wall-clock strings only mean
// anything on the provider's local clock.
func (r *BookingGormRepository) IsWithinWorkingHours(
	ctx context.Context,
	providerID string,
	start time.Time,
	end time.Time,
) (bool, error) {

	var provider models.Provider
	if err := r.db.WithContext(ctx).
		Where("id = ?", providerID).
		First(&provider).Error; err != nil {
		return false, nil
	}
	loc := timezone.Location(provider.Timezone)

	weekday := int(start.In(loc).Weekday())

	var wh models.WorkingHours
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND weekday = ?", providerID, weekday).
		First(&wh).Error; err != nil {
		return false, nil
	}

	iv := domain.Interval{Start: start, End: end}
	return domain.WithinWorkingHours(&wh, loc, iv), nil
}

// Compile-time check
var _ domain.Repository = (*BookingGormRepository)(nil)
