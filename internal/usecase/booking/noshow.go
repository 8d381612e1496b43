package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

// MarkNoShow records a client no-show: only the provider may report it, only
// after the interval has passed, and the entire reservation hold forfeits to
// the provider. No refund is issued.
type MarkNoShow struct {
	repo     domain.Repository
	calendar *calendar.Store
	payments payment.Processor
	recorder *FeeRecorder
	notifier *notify.Dispatcher
	audit    *audit.Dispatcher
	clock    clock.Clock
	log      *zap.Logger
}

func NewMarkNoShow(
	repo domain.Repository,
	cal *calendar.Store,
	payments payment.Processor,
	recorder *FeeRecorder,
	notifier *notify.Dispatcher,
	auditD *audit.Dispatcher,
	clk clock.Clock,
	log *zap.Logger,
) *MarkNoShow {
	return &MarkNoShow{
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

func (uc *MarkNoShow) Execute(
	ctx context.Context,
	providerID string,
	appointmentID string,
	triggerEventID string,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if providerID != ap.ProviderID {
		return nil, domain.ErrNotFound
	}

	seen, err := uc.repo.HasTriggerEvent(ctx, ap.ID, triggerEventID)
	if err != nil {
		return nil, err
	}
	if seen {
		return ap, nil
	}

	now := uc.clock.Now()
	if now.Before(ap.EndTime) {
		// A client is not a no-show until the booked window has passed.
		return nil, ErrIntervalNotOver
	}
	if err := domain.MarkNoShow(ap, now); err != nil {
		return nil, err
	}

	ev := &models.AppointmentEvent{
		AppointmentID:  ap.ID,
		TriggerEventID: triggerEventID,
		FromStatus:     string(domain.StatusConfirmed),
		ToStatus:       string(domain.StatusNoShow),
	}
	if err := uc.repo.UpdateAppointment(ctx, ap, ev); err != nil {
		return nil, err
	}

	if err := uc.calendar.Release(ctx, ap.ProviderID, domain.IntervalOf(ap)); err != nil {
		uc.log.Error("failed to release interval for no-show",
			zap.String("appointment_id", ap.ID), zap.Error(err))
	}

	if _, _, err := uc.recorder.record(ctx, ap, domain.Event{
		Kind:      domain.EventNoShow,
		TriggerID: triggerEventID,
		At:        now,
	}); err != nil {
		return nil, err
	}

	// The full hold forfeits: capture everything, nothing releases.
	if ap.HoldToken != "" {
		err := uc.payments.SettleHold(ctx, payment.SettleHoldInput{
			IdempotencyKey: "settle:" + triggerEventID,
			HoldToken:      ap.HoldToken,
			CaptureCents:   uc.recorder.policy.HoldAmount(ap.PriceCents),
		})
		if err != nil {
			uc.log.Warn("hold settlement failed, will be retried by key",
				zap.String("appointment_id", ap.ID), zap.Error(err))
		}
	}

	uc.notifier.Dispatch(notify.Event{
		Type:          notify.EventAppointmentNoShow,
		AppointmentID: ap.ID,
		ProviderID:    ap.ProviderID,
		ClientID:      ap.ClientID,
		At:            now,
	})

	uc.audit.Dispatch(audit.Event{
		ActorID:  &providerID,
		Action:   "booking_no_show",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}
