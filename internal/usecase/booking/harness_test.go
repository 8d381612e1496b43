package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
)

// ------------------------------
// Fake booking repository
// ------------------------------

type fakeRepo struct {
	mu           sync.Mutex
	providers    map[string]*models.Provider
	services     map[string]*models.Service
	appointments map[string]*models.Appointment
	events       []models.AppointmentEvent
	hours        map[int]*models.WorkingHours
	withinHours  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		providers:    map[string]*models.Provider{},
		services:     map[string]*models.Service{},
		appointments: map[string]*models.Appointment{},
		hours:        map[int]*models.WorkingHours{},
		withinHours:  true,
	}
}

func (r *fakeRepo) GetProvider(_ context.Context, id string) (*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetService(_ context.Context, providerID, serviceID string) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[serviceID]
	if !ok || s.ProviderID != providerID || !s.Active {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) CreateAppointment(_ context.Context, ap *models.Appointment, ev *models.AppointmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ap
	r.appointments[ap.ID] = &cp
	r.events = append(r.events, *ev)
	return nil
}

func (r *fakeRepo) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ap
	return &cp, nil
}

func (r *fakeRepo) UpdateAppointment(_ context.Context, ap *models.Appointment, ev *models.AppointmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ap
	r.appointments[ap.ID] = &cp
	r.events = append(r.events, *ev)
	return nil
}

func (r *fakeRepo) SaveAppointment(_ context.Context, ap *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ap
	r.appointments[ap.ID] = &cp
	return nil
}

func (r *fakeRepo) HasTriggerEvent(_ context.Context, appointmentID, triggerEventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.AppointmentID == appointmentID && ev.TriggerEventID == triggerEventID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListConfirmedEndedBefore(_ context.Context, cutoff time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, ap := range r.appointments {
		if ap.Status == string(domain.StatusConfirmed) && ap.EndTime.Before(cutoff) {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListFeesPending(_ context.Context, limit int) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, ap := range r.appointments {
		if ap.FeesPending && len(out) < limit {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListForProviderBetween(_ context.Context, providerID string, start, end time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, ap := range r.appointments {
		if ap.ProviderID == providerID && !ap.StartTime.Before(start) && ap.StartTime.Before(end) {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetWorkingHours(_ context.Context, _ string, weekday int) (*models.WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh, ok := r.hours[weekday]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *wh
	return &cp, nil
}

func (r *fakeRepo) UpsertWorkingHours(_ context.Context, wh *models.WorkingHours) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *wh
	r.hours[wh.Weekday] = &cp
	return nil
}

func (r *fakeRepo) IsWithinWorkingHours(_ context.Context, _ string, _, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withinHours, nil
}

func (r *fakeRepo) stored(id string) *models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appointments[id]
}

// ------------------------------
// Stub calendar repository
// ------------------------------

type stubCalendarRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.BookedInterval
}

func (r *stubCalendarRepo) ListActive(_ context.Context, providerID string, now time.Time) ([]models.BookedInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BookedInterval
	for _, iv := range r.rows {
		if iv.ProviderID != providerID {
			continue
		}
		if iv.Status == models.IntervalTentative && iv.ExpiresAt != nil && !now.Before(*iv.ExpiresAt) {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

func (r *stubCalendarRepo) Insert(_ context.Context, iv *models.BookedInterval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	iv.ID = r.nextID
	r.rows = append(r.rows, *iv)
	return nil
}

func (r *stubCalendarRepo) Find(_ context.Context, providerID string, start, end time.Time) (*models.BookedInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		iv := r.rows[i]
		if iv.ProviderID == providerID && iv.StartTime.Equal(start) && iv.EndTime.Equal(end) {
			cp := iv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubCalendarRepo) Save(_ context.Context, iv *models.BookedInterval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == iv.ID {
			r.rows[i] = *iv
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubCalendarRepo) Delete(_ context.Context, providerID string, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, iv := range r.rows {
		if iv.ProviderID == providerID && iv.StartTime.Equal(start) && iv.EndTime.Equal(end) {
			continue
		}
		kept = append(kept, iv)
	}
	r.rows = kept
	return nil
}

func (r *stubCalendarRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.rows[:0]
	for _, iv := range r.rows {
		if iv.Status == models.IntervalTentative && iv.ExpiresAt != nil && !now.Before(*iv.ExpiresAt) {
			n++
			continue
		}
		kept = append(kept, iv)
	}
	r.rows = kept
	return n, nil
}

func (r *stubCalendarRepo) ListBetween(_ context.Context, providerID string, start, end time.Time) ([]models.BookedInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BookedInterval
	for _, iv := range r.rows {
		if iv.ProviderID == providerID && iv.StartTime.Before(end) && iv.EndTime.After(start) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (r *stubCalendarRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ------------------------------
// Stub ledger repository
// ------------------------------

type stubLedgerRepo struct {
	mu         sync.Mutex
	entries    []models.LedgerEntry
	failInsert bool
}

func (r *stubLedgerRepo) InsertEntries(_ context.Context, entries []models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert {
		return errors.New("ledger storage down")
	}
	for _, e := range entries {
		for _, existing := range r.entries {
			if existing.IdempotencyKey == e.IdempotencyKey {
				return ledger.ErrDuplicateKey
			}
		}
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *stubLedgerRepo) FindByKeys(_ context.Context, keys []string) ([]models.LedgerEntry, error) {
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

func (r *stubLedgerRepo) ListByAppointment(_ context.Context, appointmentID string) ([]models.LedgerEntry, error) {
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

func (r *stubLedgerRepo) ListByProvider(_ context.Context, providerID string, upTo time.Time) ([]models.LedgerEntry, error) {
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

func (r *stubLedgerRepo) ProviderIDs(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

func (r *stubLedgerRepo) ListPayoutsByStatus(_ context.Context, _ string) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (r *stubLedgerRepo) SetPayoutStatus(_ context.Context, _, _, _ string) error {
	return nil
}

func (r *stubLedgerRepo) kinds(appointmentID string) map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, e := range r.entries {
		if e.AppointmentID == appointmentID {
			out[e.Kind] += e.AmountCents
		}
	}
	return out
}

func (r *stubLedgerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ------------------------------
// Stub processor and reminders
// ------------------------------

type stubProcessor struct {
	mu          sync.Mutex
	holds       []payment.AuthorizeHoldInput
	settles     []payment.SettleHoldInput
	charges     []payment.ChargeInput
	declineHold bool
}

func (p *stubProcessor) AuthorizeHold(_ context.Context, in payment.AuthorizeHoldInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declineHold {
		return "", domain.ErrPaymentDeclined
	}
	p.holds = append(p.holds, in)
	return "hold-token", nil
}

func (p *stubProcessor) SettleHold(_ context.Context, in payment.SettleHoldInput) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settles = append(p.settles, in)
	return nil
}

func (p *stubProcessor) Charge(_ context.Context, in payment.ChargeInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charges = append(p.charges, in)
	return "pi_charge", nil
}

func (p *stubProcessor) Transfer(_ context.Context, _ payment.TransferInput) (string, error) {
	return "tr_1", nil
}

// settledFor returns the amount captured from the hold under the given
// idempotency key, or -1 when no settlement carried it.
func (p *stubProcessor) settledFor(key string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.settles {
		if s.IdempotencyKey == key {
			return s.CaptureCents
		}
	}
	return -1
}

// chargedFor returns the amount charged under the given idempotency key, or
// -1 when no charge carried it.
func (p *stubProcessor) chargedFor(key string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.charges {
		if c.IdempotencyKey == key {
			return c.AmountCents
		}
	}
	return -1
}

type stubReminders struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
}

func (s *stubReminders) ScheduleReminder(_ context.Context, appointmentID string, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduled == nil {
		s.scheduled = map[string]time.Time{}
	}
	s.scheduled[appointmentID] = runAt
	return nil
}

// ------------------------------
// Harness
// ------------------------------

type harness struct {
	repo       *fakeRepo
	calRepo    *stubCalendarRepo
	ledgerRepo *stubLedgerRepo
	calendar   *calendar.Store
	ledger     *ledger.Ledger
	recorder   *FeeRecorder
	processor  *stubProcessor
	reminders  *stubReminders
	clk        *clock.Fixed

	request      *RequestBooking
	cancel       *CancelBooking
	complete     *CompleteBooking
	noshow       *MarkNoShow
	tip          *AddTip
	flush        *FlushPendingFees
	availability *GetAvailability
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zap.NewNop()
	clk := clock.NewFixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	repo := newFakeRepo()
	calRepo := &stubCalendarRepo{}
	ledgerRepo := &stubLedgerRepo{}

	cal := calendar.NewStore(calRepo, clk, nil, 10*time.Minute, log)
	lg := ledger.New(ledgerRepo, clk, log)

	policy := fees.Policy{
		ReservationHoldRate: fees.FromFloat(0.25),
		ServiceFeeRate:      fees.FromFloat(0.10),
		CommissionRate:      fees.FromFloat(0.15),
		CancellationFeeRate: fees.FromFloat(0.15),
	}
	// Single attempt keeps the deferral path fast in tests.
	recorder := NewFeeRecorder(repo, lg, policy, 24*time.Hour, 1, clk, log)

	processor := &stubProcessor{}
	reminders := &stubReminders{}
	notifier := notify.NewDispatcher(notify.ZapSink{Log: log}, log)
	auditD := audit.NewDispatcher(audit.New(nil), log)

	h := &harness{
		repo:       repo,
		calRepo:    calRepo,
		ledgerRepo: ledgerRepo,
		calendar:   cal,
		ledger:     lg,
		recorder:   recorder,
		processor:  processor,
		reminders:  reminders,
		clk:        clk,
	}

	h.request = NewRequestBooking(repo, cal, processor, recorder, notifier, auditD, reminders, clk, 2*time.Hour, log)
	h.cancel = NewCancelBooking(repo, cal, processor, recorder, notifier, auditD, clk, log)
	h.complete = NewCompleteBooking(repo, processor, recorder, notifier, auditD, clk, 30*time.Minute, log)
	h.noshow = NewMarkNoShow(repo, cal, processor, recorder, notifier, auditD, clk, log)
	h.tip = NewAddTip(repo, processor, recorder, auditD, clk, log)
	h.flush = NewFlushPendingFees(repo, lg, recorder, clk, log)
	h.availability = NewGetAvailability(repo, cal, nil, clk)

	repo.providers["prov-1"] = &models.Provider{
		ID: "prov-1", DisplayName: "Keisha", Timezone: "UTC", PayoutAccountID: "acct_1", Active: true,
	}
	repo.services["svc-1"] = &models.Service{
		ID: "svc-1", ProviderID: "prov-1", Name: "Box braids",
		DurationMin: 60, PriceCents: 10000, Currency: "USD", Active: true,
	}

	return h
}

func (h *harness) defaultInput(startOffset time.Duration) RequestBookingInput {
	return RequestBookingInput{
		ClientID:       "client-1",
		ProviderID:     "prov-1",
		ServiceID:      "svc-1",
		Start:          h.clk.Now().Add(startOffset),
		PaymentMethod:  "pm_card",
		TriggerEventID: "req-1",
	}
}

// book drives a confirmed appointment through the request path.
func (h *harness) book(t *testing.T, startOffset time.Duration) *models.Appointment {
	t.Helper()
	ap, err := h.request.Execute(context.Background(), h.defaultInput(startOffset))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	return ap
}
