package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

type CancelBooking struct {
	repo     domain.Repository
	calendar *calendar.Store
	payments payment.Processor
	recorder *FeeRecorder
	notifier *notify.Dispatcher
	audit    *audit.Dispatcher
	clock    clock.Clock
	log      *zap.Logger
}

func NewCancelBooking(
	repo domain.Repository,
	cal *calendar.Store,
	payments payment.Processor,
	recorder *FeeRecorder,
	notifier *notify.Dispatcher,
	auditD *audit.Dispatcher,
	clk clock.Clock,
	log *zap.Logger,
) *CancelBooking {
	return &CancelBooking{
		repo:     repo,
		calendar: cal,
		payments: payments,
		recorder: recorder,
		notifier: notifier,
		audit:    auditD,
		clock:    clk,
		log:      log,
	}
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	actorID string,
	appointmentID string,
	triggerEventID string,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if actorID != ap.ClientID && actorID != ap.ProviderID {
		// Same answer as a missing appointment: one party's booking details
		// are never exposed to another user.
		return nil, domain.ErrNotFound
	}

	// Replay of an already-applied trigger is a no-op, not an error;
	// upstream delivery is at-least-once.
	seen, err := uc.repo.HasTriggerEvent(ctx, ap.ID, triggerEventID)
	if err != nil {
		return nil, err
	}
	if seen {
		return ap, nil
	}

	now := uc.clock.Now()
	if err := domain.Cancel(ap, now); err != nil {
		return nil, err
	}

	ev := &models.AppointmentEvent{
		AppointmentID:  ap.ID,
		TriggerEventID: triggerEventID,
		FromStatus:     string(domain.StatusConfirmed),
		ToStatus:       string(domain.StatusCancelled),
	}
	if err := uc.repo.UpdateAppointment(ctx, ap, ev); err != nil {
		return nil, err
	}

	if err := uc.calendar.Release(ctx, ap.ProviderID, domain.IntervalOf(ap)); err != nil {
		uc.log.Error("failed to release interval for cancelled booking",
			zap.String("appointment_id", ap.ID), zap.Error(err))
	}

	drafts, _, err := uc.recorder.record(ctx, ap, domain.Event{
		Kind:      domain.EventCancelled,
		TriggerID: triggerEventID,
		At:        now,
	})
	if err != nil {
		return nil, err
	}

	// Settle the authorization: capture the cancellation fee (zero on a
	// timely cancel voids the whole hold) and let the remainder release
	// back to the client.
	if ap.HoldToken != "" {
		hold := uc.recorder.policy.HoldAmount(ap.PriceCents)
		capture := hold - fees.RefundToClient(drafts)
		err := uc.payments.SettleHold(ctx, payment.SettleHoldInput{
			IdempotencyKey: "settle:" + triggerEventID,
			HoldToken:      ap.HoldToken,
			CaptureCents:   capture,
		})
		if err != nil {
			uc.log.Warn("hold settlement failed, will be retried by key",
				zap.String("appointment_id", ap.ID), zap.Error(err))
		}
	}

	uc.notifier.Dispatch(notify.Event{
		Type:          notify.EventAppointmentCancelled,
		AppointmentID: ap.ID,
		ProviderID:    ap.ProviderID,
		ClientID:      ap.ClientID,
		At:            now,
	})

	uc.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "booking_cancelled",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}
