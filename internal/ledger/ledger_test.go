package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/models"
)

// ------------------------------
// Fake repository
// ------------------------------

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func (r *fakeLedgerRepo) InsertEntries(_ context.Context, entries []models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		for _, existing := range r.entries {
			if existing.IdempotencyKey == e.IdempotencyKey {
				return ErrDuplicateKey
			}
		}
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeLedgerRepo) FindByKeys(_ context.Context, keys []string) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range r.entries {
		for _, k := range keys {
			if e.IdempotencyKey == k {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByAppointment(_ context.Context, appointmentID string) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range r.entries {
		if e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByProvider(_ context.Context, providerID string, upTo time.Time) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range r.entries {
		if e.ProviderID == providerID && e.CreatedAt.Before(upTo) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ProviderIDs(_ context.Context, upTo time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]bool{}
	var out []string
	for _, e := range r.entries {
		if e.ProviderID != "" && e.CreatedAt.Before(upTo) && !seen[e.ProviderID] {
			seen[e.ProviderID] = true
			out = append(out, e.ProviderID)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListPayoutsByStatus(_ context.Context, status string) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range r.entries {
		if e.Kind == string(fees.KindPayout) && e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) SetPayoutStatus(_ context.Context, entryID, status, transferID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ID == entryID {
			r.entries[i].Status = status
			r.entries[i].TransferID = transferID
			return nil
		}
	}
	return booking.ErrNotFound
}

func (r *fakeLedgerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ------------------------------
// Tests
// ------------------------------

func newTestLedger() (*Ledger, *fakeLedgerRepo, *clock.Fixed) {
	repo := &fakeLedgerRepo{}
	clk := clock.NewFixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	return New(repo, clk, zap.NewNop()), repo, clk
}

func testAppointment() *models.Appointment {
	return &models.Appointment{
		ID:         "ap-1",
		ProviderID: "prov-1",
		ClientID:   "client-1",
		PriceCents: 10000,
		Currency:   "USD",
	}
}

func TestLedger_RecordIsIdempotent(t *testing.T) {
	t.Parallel()

	lg, repo, _ := newTestLedger()
	ap := testAppointment()

	drafts := []fees.Draft{
		{Kind: fees.KindServicePayment, AmountCents: 10000, Currency: "USD"},
		{Kind: fees.KindCommission, AmountCents: 1500, Currency: "USD"},
	}

	first, err := lg.Record(context.Background(), ap, "evt-1", drafts)
	if err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("entries = %d, want 2", len(first))
	}

	for i := 0; i < 5; i++ {
		replay, err := lg.Record(context.Background(), ap, "evt-1", drafts)
		if err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
		if len(replay) != 2 {
			t.Fatalf("replay entries = %d, want 2", len(replay))
		}
	}

	if repo.count() != 2 {
		t.Fatalf("stored entries = %d, want 2", repo.count())
	}
}

func TestLedger_DistinctTriggersProduceDistinctEntries(t *testing.T) {
	t.Parallel()

	lg, repo, _ := newTestLedger()
	ap := testAppointment()

	drafts := []fees.Draft{{Kind: fees.KindTip, AmountCents: 500, Currency: "USD"}}

	if _, err := lg.Record(context.Background(), ap, "tip-1", drafts); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := lg.Record(context.Background(), ap, "tip-2", drafts); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if repo.count() != 2 {
		t.Fatalf("stored entries = %d, want 2", repo.count())
	}
}

func TestLedger_AppendLostRaceReReads(t *testing.T) {
	t.Parallel()

	lg, repo, clk := newTestLedger()

	entry := models.LedgerEntry{
		ID:             "e-1",
		ProviderID:     "prov-1",
		Kind:           string(fees.KindTip),
		AmountCents:    500,
		Currency:       "USD",
		IdempotencyKey: "key-1",
		CreatedAt:      clk.Now(),
	}
	// Simulate another process winning the insert between our read and write.
	repo.entries = append(repo.entries, entry)

	got, err := lg.Append(context.Background(), "prov-1", []models.LedgerEntry{{
		ID:             "e-2",
		ProviderID:     "prov-1",
		Kind:           string(fees.KindTip),
		AmountCents:    500,
		Currency:       "USD",
		IdempotencyKey: "key-1",
		CreatedAt:      clk.Now(),
	}})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e-1" {
		t.Fatalf("expected the prior entry back, got %+v", got)
	}
	if repo.count() != 1 {
		t.Fatalf("stored entries = %d, want 1", repo.count())
	}
}

func TestLedger_BalancesFor(t *testing.T) {
	t.Parallel()

	lg, _, clk := newTestLedger()
	ap := testAppointment()

	// Completion: price to the provider, commission out, plus a tip.
	if _, err := lg.Record(context.Background(), ap, "evt-1", []fees.Draft{
		{Kind: fees.KindReservationHold, AmountCents: 2500, Currency: "USD"},
		{Kind: fees.KindServicePayment, AmountCents: 10000, Currency: "USD"},
		{Kind: fees.KindServiceFee, AmountCents: 1000, Currency: "USD"},
		{Kind: fees.KindCommission, AmountCents: 1500, Currency: "USD"},
		{Kind: fees.KindRefund, AmountCents: 1000, Currency: "USD"},
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := lg.Record(context.Background(), ap, "tip-1", []fees.Draft{
		{Kind: fees.KindTip, AmountCents: 700, Currency: "USD"},
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	// A tip in another currency stays in its own bucket.
	if _, err := lg.Record(context.Background(), ap, "tip-2", []fees.Draft{
		{Kind: fees.KindTip, AmountCents: 300, Currency: "CAD"},
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	balances, err := lg.BalancesFor(context.Background(), "prov-1", clk.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	// 10000 - 1500 + 700; hold, service fee and refund are provider-neutral.
	if balances["USD"] != 9200 {
		t.Fatalf("USD balance = %d, want 9200", balances["USD"])
	}
	if balances["CAD"] != 300 {
		t.Fatalf("CAD balance = %d, want 300", balances["CAD"])
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %v, want two currencies", balances)
	}
}

func TestIdempotencyKey_Deterministic(t *testing.T) {
	t.Parallel()

	a := IdempotencyKey("ap-1", fees.KindCommission, "evt-1")
	b := IdempotencyKey("ap-1", fees.KindCommission, "evt-1")
	if a != b {
		t.Fatalf("same inputs must give same key: %s != %s", a, b)
	}

	if IdempotencyKey("ap-1", fees.KindCommission, "evt-2") == a {
		t.Fatalf("different trigger must give different key")
	}
	if IdempotencyKey("ap-1", fees.KindRefund, "evt-1") == a {
		t.Fatalf("different kind must give different key")
	}
}
