package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

type CompleteBooking struct {
	repo     domain.Repository
	payments payment.Processor
	recorder *FeeRecorder
	notifier *notify.Dispatcher
	audit    *audit.Dispatcher
	clock    clock.Clock
	log      *zap.Logger

	autoGrace time.Duration
}

func NewCompleteBooking(
	repo domain.Repository,
	payments payment.Processor,
	recorder *FeeRecorder,
	notifier *notify.Dispatcher,
	auditD *audit.Dispatcher,
	clk clock.Clock,
	autoGrace time.Duration,
	log *zap.Logger,
) *CompleteBooking {
	return &CompleteBooking{
		repo:      repo,
		payments:  payments,
		recorder:  recorder,
		notifier:  notifier,
		audit:     auditD,
		clock:     clk,
		autoGrace: autoGrace,
		log:       log,
	}
}

func (uc *CompleteBooking) Execute(
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
	if err := domain.Complete(ap, now); err != nil {
		return nil, err
	}

	ev := &models.AppointmentEvent{
		AppointmentID:  ap.ID,
		TriggerEventID: triggerEventID,
		FromStatus:     string(domain.StatusConfirmed),
		ToStatus:       string(domain.StatusCompleted),
	}
	if err := uc.repo.UpdateAppointment(ctx, ap, ev); err != nil {
		return nil, err
	}

	drafts, _, err := uc.recorder.record(ctx, ap, domain.Event{
		Kind:      domain.EventCompleted,
		TriggerID: triggerEventID,
		At:        now,
	})
	if err != nil {
		return nil, err
	}

	uc.settleWithClient(ctx, ap, drafts, triggerEventID)

	uc.notifier.Dispatch(notify.Event{
		Type:          notify.EventAppointmentCompleted,
		AppointmentID: ap.ID,
		ProviderID:    ap.ProviderID,
		ClientID:      ap.ClientID,
		At:            now,
	})

	uc.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "booking_completed",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}

// settleWithClient moves the real money for a completion: the applied escrow
// is captured from the hold (the remainder releases to the client), and the
// completion charge (price plus service fee less the escrow applied) lands
// on the client's saved payment method as a fresh charge. Both calls are
// keyed, so a retry never double-moves funds.
func (uc *CompleteBooking) settleWithClient(ctx context.Context, ap *models.Appointment, drafts []fees.Draft, triggerEventID string) {
	var serviceFee int64
	for _, d := range drafts {
		if d.Kind == fees.KindServiceFee {
			serviceFee = d.AmountCents
		}
	}

	hold := uc.recorder.policy.HoldAmount(ap.PriceCents)
	refund := fees.RefundToClient(drafts)
	applied := hold - refund

	if ap.HoldToken != "" {
		err := uc.payments.SettleHold(ctx, payment.SettleHoldInput{
			IdempotencyKey: "settle:" + triggerEventID,
			HoldToken:      ap.HoldToken,
			CaptureCents:   applied,
		})
		if err != nil {
			uc.log.Warn("hold settlement failed, will be retried by key",
				zap.String("appointment_id", ap.ID), zap.Error(err))
		}
	}

	if charge := ap.PriceCents + serviceFee - applied; charge > 0 {
		_, err := uc.payments.Charge(ctx, payment.ChargeInput{
			IdempotencyKey: "charge:" + triggerEventID,
			AmountCents:    charge,
			Currency:       ap.Currency,
			PaymentMethod:  ap.PaymentMethod,
		})
		if err != nil {
			uc.log.Warn("completion charge failed, will be retried by key",
				zap.String("appointment_id", ap.ID), zap.Error(err))
		}
	}
}

// AutoComplete finishes confirmed appointments whose interval ended more than
// the grace period ago. The trigger id is derived from the appointment id, so
// repeated sweeps replay as no-ops.
func (uc *CompleteBooking) AutoComplete(ctx context.Context) (int, error) {
	cutoff := uc.clock.Now().Add(-uc.autoGrace)

	due, err := uc.repo.ListConfirmedEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range due {
		ap := &due[i]
		if _, err := uc.Execute(ctx, ap.ProviderID, ap.ID, "auto-complete:"+ap.ID); err != nil {
			uc.log.Error("auto-complete failed",
				zap.String("appointment_id", ap.ID), zap.Error(err))
			continue
		}
		completed++
	}
	return completed, nil
}
