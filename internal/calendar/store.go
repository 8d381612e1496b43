package calendar

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/cache"
	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/keylock"
	"github.com/chafukay/byootify/internal/models"
)

// Repository is the persistence contract for provider calendars. It makes no
// atomicity promise of its own: the Store's per-provider keylock is what
// serializes the check-and-insert on admission, so all writers for a provider
// must go through one Store instance.
type Repository interface {
	// ListActive returns confirmed intervals plus tentative holds that have
	// not expired as of now.
	ListActive(
		ctx context.Context,
		providerID string,
		now time.Time,
	) ([]models.BookedInterval, error)

	Insert(
		ctx context.Context,
		iv *models.BookedInterval,
	) error

	Find(
		ctx context.Context,
		providerID string,
		start time.Time,
		end time.Time,
	) (*models.BookedInterval, error)

	Save(
		ctx context.Context,
		iv *models.BookedInterval,
	) error

	Delete(
		ctx context.Context,
		providerID string,
		start time.Time,
		end time.Time,
	) error

	DeleteExpired(
		ctx context.Context,
		now time.Time,
	) (int64, error)

	ListBetween(
		ctx context.Context,
		providerID string,
		start time.Time,
		end time.Time,
	) ([]models.BookedInterval, error)
}

// Store owns all mutation of provider calendars. Admission is serialized per
// provider through a keyed lock; different providers proceed fully in
// parallel, and no operation ever holds two provider locks.
type Store struct {
	repo    Repository
	locks   *keylock.KeyLock
	clock   clock.Clock
	cache   *cache.Cache
	holdTTL time.Duration
	log     *zap.Logger
}

const DefaultHoldTTL = 10 * time.Minute

func NewStore(repo Repository, clk clock.Clock, c *cache.Cache, holdTTL time.Duration, log *zap.Logger) *Store {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &Store{
		repo:    repo,
		locks:   keylock.New(),
		clock:   clk,
		cache:   c,
		holdTTL: holdTTL,
		log:     log,
	}
}

// TryReserve admits iv as a tentative hold if it is disjoint from every
// committed interval, otherwise booking.ErrConflict. The check and the insert
// happen under the provider's lock: two concurrent reservations for
// overlapping slots can never both succeed.
func (s *Store) TryReserve(ctx context.Context, providerID string, iv booking.Interval) (*models.BookedInterval, error) {
	if !iv.Valid() {
		return nil, booking.ErrConflict
	}

	s.locks.Lock(providerID)
	defer s.locks.Unlock(providerID)

	now := s.clock.Now()

	active, err := s.repo.ListActive(ctx, providerID, now)
	if err != nil {
		return nil, err
	}

	for _, existing := range active {
		if iv.Overlaps(booking.Interval{Start: existing.StartTime, End: existing.EndTime}) {
			return nil, booking.ErrConflict
		}
	}

	expires := now.Add(s.holdTTL)
	hold := &models.BookedInterval{
		ProviderID: providerID,
		StartTime:  iv.Start,
		EndTime:    iv.End,
		Status:     models.IntervalTentative,
		ExpiresAt:  &expires,
	}
	if err := s.repo.Insert(ctx, hold); err != nil {
		return nil, err
	}

	s.invalidate(ctx, providerID, iv)
	return hold, nil
}

// Confirm promotes a still-valid tentative hold to a durable booking and ties
// it to the appointment. A lapsed hold yields booking.ErrReservationExpired;
// the caller starts over.
func (s *Store) Confirm(ctx context.Context, providerID string, iv booking.Interval, appointmentID string) error {
	s.locks.Lock(providerID)
	defer s.locks.Unlock(providerID)

	existing, err := s.repo.Find(ctx, providerID, iv.Start, iv.End)
	if err != nil {
		// Swept already: the hold is gone.
		if errors.Is(err, booking.ErrNotFound) {
			return booking.ErrReservationExpired
		}
		return err
	}
	if existing == nil {
		return booking.ErrReservationExpired
	}

	if existing.Status == models.IntervalTentative {
		if existing.ExpiresAt != nil && !s.clock.Now().Before(*existing.ExpiresAt) {
			return booking.ErrReservationExpired
		}
	}

	existing.Status = models.IntervalConfirmed
	existing.AppointmentID = appointmentID
	existing.ExpiresAt = nil
	return s.repo.Save(ctx, existing)
}

// Release removes a hold or a confirmed interval, freeing the slot.
func (s *Store) Release(ctx context.Context, providerID string, iv booking.Interval) error {
	s.locks.Lock(providerID)
	defer s.locks.Unlock(providerID)

	if err := s.repo.Delete(ctx, providerID, iv.Start, iv.End); err != nil {
		return err
	}
	s.invalidate(ctx, providerID, iv)
	return nil
}

// SweepExpired drops tentative holds whose expiry has passed. Runs from a
// background job, never from a request path.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("released expired tentative holds", zap.Int64("count", n))
	}
	return n, nil
}

// DayIntervals returns the committed intervals touching [dayStart, dayEnd),
// the read path for availability.
func (s *Store) DayIntervals(ctx context.Context, providerID string, dayStart, dayEnd time.Time) ([]models.BookedInterval, error) {
	return s.repo.ListBetween(ctx, providerID, dayStart, dayEnd)
}

func (s *Store) invalidate(ctx context.Context, providerID string, iv booking.Interval) {
	for day := iv.Start; !day.After(iv.End); day = day.AddDate(0, 0, 1) {
		s.cache.InvalidateProviderDay(ctx, providerID, day.Format("2006-01-02"))
	}
}
