package payout

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

// ProviderSource supplies the payout account for a provider id.
type ProviderSource interface {
	GetProvider(ctx context.Context, id string) (*models.Provider, error)
}

// Scheduler sweeps settled provider balances into next-day deposits.
//
// Crash safety: the Payout ledger entry is written, tagged pending, BEFORE
// the external transfer is attempted. Both the entry's idempotency key and
// the transfer's are derived from (provider, cycle), so a crashed or repeated
// run resumes instead of paying twice. Reconcile later marks entries settled,
// or reverses any whose transfer never went through so the balance returns
// for the next cycle.
type Scheduler struct {
	ledger    *ledger.Ledger
	repo      ledger.Repository
	providers ProviderSource
	payments  payment.Processor
	notifier  *notify.Dispatcher
	audit     *audit.Dispatcher
	clock     clock.Clock
	log       *zap.Logger

	settlementHold time.Duration
}

func NewScheduler(
	lg *ledger.Ledger,
	repo ledger.Repository,
	providers ProviderSource,
	payments payment.Processor,
	notifier *notify.Dispatcher,
	auditD *audit.Dispatcher,
	clk clock.Clock,
	settlementHold time.Duration,
	log *zap.Logger,
) *Scheduler {
	if settlementHold <= 0 {
		settlementHold = 24 * time.Hour
	}
	return &Scheduler{
		ledger:         lg,
		repo:           repo,
		providers:      providers,
		payments:       payments,
		notifier:       notifier,
		audit:          auditD,
		clock:          clk,
		settlementHold: settlementHold,
		log:            log,
	}
}

// cutoff returns the entry-age threshold for the current cycle: with the
// default one-day hold, everything recorded before the start of today (UTC)
// is payable.
func (s *Scheduler) cutoff(now time.Time) time.Time {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return startOfDay.Add(24*time.Hour - s.settlementHold)
}

// Run executes one settlement cycle.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := s.cutoff(now)
	cycle := cutoff.Format("2006-01-02")

	providerIDs, err := s.repo.ProviderIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, providerID := range providerIDs {
		if err := s.payProvider(ctx, providerID, cutoff, cycle, now); err != nil {
			s.log.Error("payout failed",
				zap.String("provider_id", providerID),
				zap.String("cycle", cycle),
				zap.Error(err))
			continue
		}
		paid++
	}
	return paid, nil
}

// payProvider sweeps one provider's balances. Each currency is its own
// deposit: the ledger keeps currencies apart and so must the transfers.
func (s *Scheduler) payProvider(ctx context.Context, providerID string, cutoff time.Time, cycle string, now time.Time) error {
	balances, err := s.ledger.BalancesFor(ctx, providerID, cutoff)
	if err != nil {
		return err
	}

	currencies := make([]string, 0, len(balances))
	for cur, balance := range balances {
		if balance > 0 {
			currencies = append(currencies, cur)
		}
	}
	if len(currencies) == 0 {
		return nil
	}
	sort.Strings(currencies)

	provider, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	if provider.PayoutAccountID == "" {
		s.log.Warn("provider has no payout account, skipping",
			zap.String("provider_id", providerID))
		return nil
	}

	for _, cur := range currencies {
		if err := s.payOut(ctx, provider, cur, balances[cur], cycle, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) payOut(ctx context.Context, provider *models.Provider, currency string, balance int64, cycle string, now time.Time) error {
	providerID := provider.ID

	key := ledger.IdempotencyKey("payout:"+providerID, fees.KindPayout, cycle+":"+currency)
	entries, err := s.ledger.Append(ctx, providerID, []models.LedgerEntry{{
		ID:             uuid.NewString(),
		ProviderID:     providerID,
		Kind:           string(fees.KindPayout),
		AmountCents:    balance,
		Currency:       currency,
		IdempotencyKey: key,
		TriggerEventID: "cycle:" + cycle + ":" + currency,
		Status:         models.PayoutPending,
		CreatedAt:      now,
	}})
	if err != nil {
		return err
	}

	entry := entries[0]
	if entry.Status != models.PayoutPending || entry.TransferID != "" {
		// Replay of an already-handled cycle.
		return nil
	}

	transferID, err := s.payments.Transfer(ctx, payment.TransferInput{
		IdempotencyKey: "transfer:" + key,
		AccountID:      provider.PayoutAccountID,
		AmountCents:    entry.AmountCents,
		Currency:       entry.Currency,
	})
	if err != nil {
		// Entry stays pending; Reconcile reverses it and the balance comes
		// back next cycle.
		return err
	}

	if err := s.repo.SetPayoutStatus(ctx, entry.ID, models.PayoutPending, transferID); err != nil {
		return err
	}

	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventPayoutIssued,
		ProviderID: providerID,
		At:         now,
		Metadata:   map[string]any{"amount_cents": entry.AmountCents, "cycle": cycle},
	})

	s.audit.Dispatch(audit.Event{
		Action:   "payout_issued",
		Entity:   "ledger_entry",
		EntityID: &entry.ID,
		Metadata: map[string]any{"provider_id": providerID, "amount_cents": entry.AmountCents},
	})

	return nil
}

// Reconcile settles pending payouts whose transfer went through and reverses
// the rest, restoring their balance for the next cycle.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	pending, err := s.repo.ListPayoutsByStatus(ctx, models.PayoutPending)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, entry := range pending {
		if entry.TransferID != "" {
			if err := s.repo.SetPayoutStatus(ctx, entry.ID, models.PayoutSettled, entry.TransferID); err != nil {
				return err
			}
			continue
		}

		// Give the in-flight cycle time to finish before declaring failure.
		if now.Sub(entry.CreatedAt) < time.Hour {
			continue
		}

		reversalKey := ledger.IdempotencyKey("payout:"+entry.ProviderID, fees.KindPayout, entry.TriggerEventID+":reversal")
		if _, err := s.ledger.Append(ctx, entry.ProviderID, []models.LedgerEntry{{
			ID:             uuid.NewString(),
			ProviderID:     entry.ProviderID,
			Kind:           string(fees.KindPayout),
			AmountCents:    -entry.AmountCents,
			Currency:       entry.Currency,
			IdempotencyKey: reversalKey,
			TriggerEventID: entry.TriggerEventID + ":reversal",
			Status:         models.PayoutSettled,
			CreatedAt:      now,
		}}); err != nil {
			return err
		}

		if err := s.repo.SetPayoutStatus(ctx, entry.ID, models.PayoutReversed, ""); err != nil {
			return err
		}

		s.log.Warn("reversed unsettled payout",
			zap.String("provider_id", entry.ProviderID),
			zap.Int64("amount_cents", entry.AmountCents))
	}

	return nil
}
