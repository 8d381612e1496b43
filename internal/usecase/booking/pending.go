package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/ledger"
)

// FlushPendingFees replays ledger recording for appointments whose write was
// deferred after retry exhaustion. The fee engine is pure and the trigger ids
// are persisted, so a flush reproduces exactly the entries the original
// attempt would have written.
type FlushPendingFees struct {
	repo     domain.Repository
	ledger   *ledger.Ledger
	recorder *FeeRecorder
	clock    clock.Clock
	log      *zap.Logger
}

func NewFlushPendingFees(
	repo domain.Repository,
	lg *ledger.Ledger,
	recorder *FeeRecorder,
	clk clock.Clock,
	log *zap.Logger,
) *FlushPendingFees {
	return &FlushPendingFees{
		repo:     repo,
		ledger:   lg,
		recorder: recorder,
		clock:    clk,
		log:      log,
	}
}

const flushBatchSize = 100

func (uc *FlushPendingFees) Execute(ctx context.Context) (int, error) {
	pending, err := uc.repo.ListFeesPending(ctx, flushBatchSize)
	if err != nil {
		return 0, err
	}

	flushed := 0
	for i := range pending {
		ap := &pending[i]

		ev := domain.Event{
			Kind:      domain.EventKind(ap.PendingEvent),
			TriggerID: ap.PendingEventID,
			At:        uc.clock.Now(),
		}

		drafts, err := uc.recorder.policy.ComputeEntries(ap, ev, uc.recorder.isShortNotice(ap))
		if err != nil {
			uc.log.Error("pending fee computation failed",
				zap.String("appointment_id", ap.ID), zap.Error(err))
			continue
		}

		if _, err := uc.ledger.Record(ctx, ap, ev.TriggerID, drafts); err != nil {
			// Still failing; the next sweep tries again.
			uc.log.Warn("pending ledger write still failing",
				zap.String("appointment_id", ap.ID), zap.Error(err))
			continue
		}

		ap.FeesPending = false
		ap.PendingEvent = ""
		ap.PendingEventID = ""
		if err := uc.repo.SaveAppointment(ctx, ap); err != nil {
			uc.log.Error("failed to clear fees-pending flag",
				zap.String("appointment_id", ap.ID), zap.Error(err))
			continue
		}
		flushed++
	}

	if flushed > 0 {
		uc.log.Info("flushed pending ledger writes", zap.Int("count", flushed))
	}
	return flushed, nil
}
