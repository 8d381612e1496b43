package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/payment"
)

// AddTip charges the client a tip on a completed appointment and records it;
// tips pass through 100% to the provider.
type AddTip struct {
	repo     domain.Repository
	payments payment.Processor
	recorder *FeeRecorder
	audit    *audit.Dispatcher
	clock    clock.Clock
	log      *zap.Logger
}

func NewAddTip(
	repo domain.Repository,
	payments payment.Processor,
	recorder *FeeRecorder,
	auditD *audit.Dispatcher,
	clk clock.Clock,
	log *zap.Logger,
) *AddTip {
	return &AddTip{
		repo:     repo,
		payments: payments,
		recorder: recorder,
		audit:    auditD,
		clock:    clk,
		log:      log,
	}
}

func (uc *AddTip) Execute(
	ctx context.Context,
	clientID string,
	appointmentID string,
	amountCents int64,
	paymentMethod string,
	triggerEventID string,
) (*models.Appointment, error) {

	if amountCents <= 0 {
		return nil, httperr.ErrBusiness("invalid_amount")
	}

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if clientID != ap.ClientID {
		return nil, domain.ErrNotFound
	}
	if domain.Status(ap.Status) != domain.StatusCompleted {
		return nil, ErrNotCompleted
	}

	seen, err := uc.repo.HasTriggerEvent(ctx, ap.ID, triggerEventID)
	if err != nil {
		return nil, err
	}
	if seen {
		return ap, nil
	}

	if paymentMethod == "" {
		paymentMethod = ap.PaymentMethod
	}
	if _, err := uc.payments.Charge(ctx, payment.ChargeInput{
		IdempotencyKey: "tip:" + triggerEventID,
		AmountCents:    amountCents,
		Currency:       ap.Currency,
		PaymentMethod:  paymentMethod,
	}); err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	// Not a state transition, but the history row is what makes a replayed
	// tip request idempotent.
	ev := &models.AppointmentEvent{
		AppointmentID:  ap.ID,
		TriggerEventID: triggerEventID,
		FromStatus:     string(domain.StatusCompleted),
		ToStatus:       string(domain.StatusCompleted),
	}
	if err := uc.repo.UpdateAppointment(ctx, ap, ev); err != nil {
		return nil, err
	}

	if _, _, err := uc.recorder.record(ctx, ap, domain.Event{
		Kind:      domain.EventTip,
		TriggerID: triggerEventID,
		At:        now,
		TipCents:  amountCents,
	}); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &clientID,
		Action:   "tip_added",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]any{"amount_cents": amountCents},
	})

	return ap, nil
}
