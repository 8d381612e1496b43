package booking

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/models"
)

// FeeRecorder turns an appointment event into ledger entries and writes them.
// Ledger writes are the side effect of record, not of calendar admission:
// transient failures retry with bounded exponential backoff, and once the
// attempts are exhausted the appointment is flagged fees-pending for the
// background flush. The state transition itself is never rolled back, and
// calendar admission is never re-attempted.
type FeeRecorder struct {
	repo        domain.Repository
	ledger      *ledger.Ledger
	policy      fees.Policy
	shortNotice time.Duration
	maxAttempts int
	clock       clock.Clock
	log         *zap.Logger
}

func NewFeeRecorder(
	repo domain.Repository,
	lg *ledger.Ledger,
	policy fees.Policy,
	shortNotice time.Duration,
	maxAttempts int,
	clk clock.Clock,
	log *zap.Logger,
) *FeeRecorder {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &FeeRecorder{
		repo:        repo,
		ledger:      lg,
		policy:      policy,
		shortNotice: shortNotice,
		maxAttempts: maxAttempts,
		clock:       clk,
		log:         log,
	}
}

// isShortNotice is derived from persisted appointment fields only, so the
// background flush reaches the same answer as the original attempt.
func (r *FeeRecorder) isShortNotice(ap *models.Appointment) bool {
	if ap.CancelledAt == nil {
		return false
	}
	return ap.StartTime.Sub(*ap.CancelledAt) <= r.shortNotice
}

// record computes and writes the entries for ev. Returns the computed drafts
// (callers need the refund portion for the processor), whether the write was
// deferred to the background flush, and any non-retryable error.
func (r *FeeRecorder) record(ctx context.Context, ap *models.Appointment, ev domain.Event) ([]fees.Draft, bool, error) {
	drafts, err := r.policy.ComputeEntries(ap, ev, r.isShortNotice(ap))
	if err != nil {
		// Invariant violations halt this appointment's processing; they are
		// bugs, never corrected silently.
		r.log.Error("fee computation invariant violation",
			zap.String("appointment_id", ap.ID),
			zap.String("event", string(ev.Kind)),
			zap.Error(err))
		return nil, false, err
	}

	op := func() error {
		_, err := r.ledger.Record(ctx, ap, ev.TriggerID, drafts)
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(op, bo); err != nil {
		r.log.Error("ledger write retries exhausted, deferring",
			zap.String("appointment_id", ap.ID),
			zap.String("event", string(ev.Kind)),
			zap.Error(err))

		ap.FeesPending = true
		ap.PendingEvent = string(ev.Kind)
		ap.PendingEventID = ev.TriggerID
		if saveErr := r.repo.SaveAppointment(ctx, ap); saveErr != nil {
			return drafts, true, errors.Join(domain.ErrLedgerWriteFailure, saveErr)
		}
		return drafts, true, nil
	}

	return drafts, false, nil
}
