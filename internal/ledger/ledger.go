package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/keylock"
	"github.com/chafukay/byootify/internal/models"
)

// ErrDuplicateKey is returned by repositories when an insert hits the unique
// index on idempotency_key.
var ErrDuplicateKey = errors.New("ledger: duplicate idempotency key")

type Repository interface {
	// InsertEntries writes all entries or none.
	InsertEntries(
		ctx context.Context,
		entries []models.LedgerEntry,
	) error

	FindByKeys(
		ctx context.Context,
		keys []string,
	) ([]models.LedgerEntry, error)

	ListByAppointment(
		ctx context.Context,
		appointmentID string,
	) ([]models.LedgerEntry, error)

	ListByProvider(
		ctx context.Context,
		providerID string,
		upTo time.Time,
	) ([]models.LedgerEntry, error)

	// ProviderIDs lists providers having at least one entry before upTo.
	ProviderIDs(
		ctx context.Context,
		upTo time.Time,
	) ([]string, error)

	ListPayoutsByStatus(
		ctx context.Context,
		status string,
	) ([]models.LedgerEntry, error)

	// SetPayoutStatus updates the settlement tag (and transfer reference) on
	// a payout entry. The only mutation the ledger permits; amounts are
	// immutable.
	SetPayoutStatus(
		ctx context.Context,
		entryID string,
		status string,
		transferID string,
	) error
}

// Namespace for deterministic idempotency keys.
var keyNamespace = uuid.MustParse("8e7a2f1c-4b6d-4c1e-9f3a-5d2b8c9e0a71")

// IdempotencyKey derives the at-most-once key for (appointment, kind,
// trigger). Replays of the same trigger always produce the same key.
func IdempotencyKey(appointmentID string, kind fees.EntryKind, triggerEventID string) string {
	return uuid.NewSHA1(keyNamespace, []byte(appointmentID+"|"+string(kind)+"|"+triggerEventID)).String()
}

// Ledger is the append-only, idempotent record of money movements. Appends
// are serialized per appointment; reads never block writers.
type Ledger struct {
	repo  Repository
	locks *keylock.KeyLock
	clock clock.Clock
	log   *zap.Logger
}

func New(repo Repository, clk clock.Clock, log *zap.Logger) *Ledger {
	return &Ledger{
		repo:  repo,
		locks: keylock.New(),
		clock: clk,
		log:   log,
	}
}

// Record materializes fee-policy drafts for one appointment event and appends
// them. Drafts become entries with deterministic ids and idempotency keys, so
// recording the same event twice is a no-op that returns the prior entries.
func (l *Ledger) Record(ctx context.Context, ap *models.Appointment, triggerEventID string, drafts []fees.Draft) ([]models.LedgerEntry, error) {
	now := l.clock.Now()

	entries := make([]models.LedgerEntry, 0, len(drafts))
	for _, d := range drafts {
		key := IdempotencyKey(ap.ID, d.Kind, triggerEventID)
		entries = append(entries, models.LedgerEntry{
			ID:             uuid.NewSHA1(keyNamespace, []byte("entry|"+key)).String(),
			AppointmentID:  ap.ID,
			ProviderID:     ap.ProviderID,
			Kind:           string(d.Kind),
			AmountCents:    d.AmountCents,
			Currency:       d.Currency,
			IdempotencyKey: key,
			TriggerEventID: triggerEventID,
			CreatedAt:      now,
		})
	}

	return l.Append(ctx, ap.ID, entries)
}

// Append writes entries all-or-nothing. If any idempotency key already
// exists the whole batch is treated as a replay: nothing is written and the
// previously recorded entries come back instead of an error.
func (l *Ledger) Append(ctx context.Context, serializeKey string, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	l.locks.Lock(serializeKey)
	defer l.locks.Unlock(serializeKey)

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.IdempotencyKey)
	}

	prior, err := l.repo.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(prior) > 0 {
		l.log.Debug("ledger append replayed",
			zap.String("key", serializeKey),
			zap.Int("prior_entries", len(prior)))
		return prior, nil
	}

	if err := l.repo.InsertEntries(ctx, entries); err != nil {
		// Lost a race with another writer outside this process; the unique
		// index is the backstop. Re-read and return what won.
		if errors.Is(err, ErrDuplicateKey) {
			return l.repo.FindByKeys(ctx, keys)
		}
		return nil, err
	}
	return entries, nil
}

// BalancesFor computes the provider's unsettled balance per currency from
// signed entries up to upTo. Cents in different currencies never sum into
// one figure. Derived on demand, never stored: the ledger is the only source
// of truth.
func (l *Ledger) BalancesFor(ctx context.Context, providerID string, upTo time.Time) (map[string]int64, error) {
	entries, err := l.repo.ListByProvider(ctx, providerID, upTo)
	if err != nil {
		return nil, err
	}

	balances := map[string]int64{}
	for _, e := range entries {
		balances[e.Currency] += fees.ProviderSign(fees.EntryKind(e.Kind)) * e.AmountCents
	}
	return balances, nil
}

// EntriesFor lists all entries recorded against an appointment.
func (l *Ledger) EntriesFor(ctx context.Context, appointmentID string) ([]models.LedgerEntry, error) {
	return l.repo.ListByAppointment(ctx, appointmentID)
}

// ProviderEntries lists a provider's entries up to a point in time, the read
// model behind the earnings report.
func (l *Ledger) ProviderEntries(ctx context.Context, providerID string, upTo time.Time) ([]models.LedgerEntry, error) {
	return l.repo.ListByProvider(ctx, providerID, upTo)
}
