package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

// ======================================================
// INPUT
// ======================================================

type RequestBookingInput struct {
	ClientID   string
	ProviderID string
	ServiceID  string

	Start         time.Time
	PaymentMethod string
	Notes         string

	// Trigger event id for this request; the handler derives it from the
	// client's Idempotency-Key header or generates one.
	TriggerEventID string
}

// ======================================================
// USE CASE
// ======================================================

// RequestBooking drives Requested -> Confirmed: tentative calendar
// reservation, payment hold capture, promotion of the hold, then the ledger
// record. A rejected request leaves nothing behind but an audit entry.
type RequestBooking struct {
	repo      domain.Repository
	calendar  *calendar.Store
	payments  payment.Processor
	recorder  *FeeRecorder
	notifier  *notify.Dispatcher
	audit     *audit.Dispatcher
	reminders ReminderScheduler
	clock     clock.Clock
	log       *zap.Logger

	minAdvance time.Duration
}

// ReminderScheduler enqueues the pre-appointment reminder delivered through
// the notification dispatcher.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, appointmentID string, runAt time.Time) error
}

func NewRequestBooking(
	repo domain.Repository,
	cal *calendar.Store,
	payments payment.Processor,
	recorder *FeeRecorder,
	notifier *notify.Dispatcher,
	auditD *audit.Dispatcher,
	reminders ReminderScheduler,
	clk clock.Clock,
	minAdvance time.Duration,
	log *zap.Logger,
) *RequestBooking {
	return &RequestBooking{
		repo:       repo,
		calendar:   cal,
		payments:   payments,
		recorder:   recorder,
		notifier:   notifier,
		audit:      auditD,
		reminders:  reminders,
		clock:      clk,
		minAdvance: minAdvance,
		log:        log,
	}
}

const reminderLead = time.Hour

// ======================================================
// EXECUTE
// ======================================================

func (uc *RequestBooking) Execute(
	ctx context.Context,
	in RequestBookingInput,
) (*models.Appointment, error) {

	provider, err := uc.repo.GetProvider(ctx, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, domain.ErrNotFound
	}

	svc, err := uc.repo.GetService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	now := uc.clock.Now()
	if in.Start.Before(now.Add(uc.minAdvance)) {
		return nil, ErrTooSoon
	}

	iv := domain.Interval{
		Start: in.Start,
		End:   in.Start.Add(time.Duration(svc.DurationMin) * time.Minute),
	}

	ok, err := uc.repo.IsWithinWorkingHours(ctx, in.ProviderID, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOutsideWorkingHours
	}

	// Atomic per-provider admission; the losing side of a race on this slot
	// gets ErrConflict here.
	if _, err := uc.calendar.TryReserve(ctx, in.ProviderID, iv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			uc.rejected(in, "slot_conflict")
		}
		return nil, err
	}

	appointmentID := uuid.NewString()

	holdAmount := uc.recorder.policy.HoldAmount(svc.PriceCents)
	holdToken, err := uc.payments.AuthorizeHold(ctx, payment.AuthorizeHoldInput{
		IdempotencyKey: "hold:" + in.TriggerEventID,
		AmountCents:    holdAmount,
		Currency:       svc.Currency,
		PaymentMethod:  in.PaymentMethod,
	})
	if err != nil {
		uc.releaseQuietly(ctx, in.ProviderID, iv)
		if errors.Is(err, domain.ErrPaymentDeclined) {
			uc.rejected(in, "payment_declined")
		}
		return nil, err
	}

	if err := uc.calendar.Confirm(ctx, in.ProviderID, iv, appointmentID); err != nil {
		// Authorization outlived the tentative hold. Release the money and
		// make the client start over.
		uc.voidQuietly(ctx, holdToken, in.TriggerEventID)
		if errors.Is(err, domain.ErrReservationExpired) {
			uc.rejected(in, "reservation_expired")
		}
		return nil, err
	}

	ap := &models.Appointment{
		ID:         appointmentID,
		ClientID:   in.ClientID,
		ProviderID: in.ProviderID,
		ServiceID:  svc.ID,
		PriceCents: svc.PriceCents,
		Currency:   svc.Currency,
		StartTime:  iv.Start,
		EndTime:    iv.End,
		Status:     string(domain.InitialStatus()),
		HoldToken:  holdToken,
		Notes:      in.Notes,

		// The saved method pays the completion charge and any tip later.
		PaymentMethod: in.PaymentMethod,
	}
	ev := &models.AppointmentEvent{
		AppointmentID:  ap.ID,
		TriggerEventID: in.TriggerEventID,
		FromStatus:     string(domain.StatusRequested),
		ToStatus:       string(domain.StatusConfirmed),
	}

	if err := uc.repo.CreateAppointment(ctx, ap, ev); err != nil {
		uc.releaseQuietly(ctx, in.ProviderID, iv)
		uc.voidQuietly(ctx, holdToken, in.TriggerEventID)
		return nil, err
	}

	if _, _, err := uc.recorder.record(ctx, ap, domain.Event{
		Kind:      domain.EventConfirmed,
		TriggerID: in.TriggerEventID,
		At:        now,
	}); err != nil {
		return nil, err
	}

	uc.notifier.Dispatch(notify.Event{
		Type:          notify.EventAppointmentConfirmed,
		AppointmentID: ap.ID,
		ProviderID:    ap.ProviderID,
		ClientID:      ap.ClientID,
		At:            now,
	})

	if uc.reminders != nil {
		if err := uc.reminders.ScheduleReminder(ctx, ap.ID, ap.StartTime.Add(-reminderLead)); err != nil {
			uc.log.Warn("failed to schedule reminder", zap.String("appointment_id", ap.ID), zap.Error(err))
		}
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.ClientID,
		Action:   "booking_confirmed",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}

// rejected is the only trace a discarded request leaves.
func (uc *RequestBooking) rejected(in RequestBookingInput, reason string) {
	uc.audit.Dispatch(audit.Event{
		ActorID: &in.ClientID,
		Action:  "booking_rejected",
		Entity:  "appointment",
		Metadata: map[string]any{
			"provider_id": in.ProviderID,
			"service_id":  in.ServiceID,
			"start":       in.Start,
			"reason":      reason,
		},
	})
}

func (uc *RequestBooking) releaseQuietly(ctx context.Context, providerID string, iv domain.Interval) {
	if err := uc.calendar.Release(ctx, providerID, iv); err != nil {
		uc.log.Error("failed to release reservation after aborted booking",
			zap.String("provider_id", providerID), zap.Error(err))
	}
}

func (uc *RequestBooking) voidQuietly(ctx context.Context, holdToken string, triggerID string) {
	err := uc.payments.SettleHold(ctx, payment.SettleHoldInput{
		IdempotencyKey: "void:" + triggerID,
		HoldToken:      holdToken,
	})
	if err != nil {
		uc.log.Error("failed to release hold after aborted booking",
			zap.String("hold_token", holdToken), zap.Error(err))
	}
}
