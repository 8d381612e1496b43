package booking

import (
	"context"
	"time"

	"github.com/chafukay/byootify/internal/cache"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/timezone"
)

type AvailabilityInput struct {
	ProviderID string
	ServiceID  string
	Date       time.Time
}

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type GetAvailability struct {
	repo     domain.Repository
	calendar *calendar.Store
	cache    *cache.Cache
	clock    clock.Clock
}

func NewGetAvailability(
	repo domain.Repository,
	cal *calendar.Store,
	c *cache.Cache,
	clk clock.Clock,
) *GetAvailability {
	return &GetAvailability{repo: repo, calendar: cal, cache: c, clock: clk}
}

func (uc *GetAvailability) Execute(
	ctx context.Context,
	in AvailabilityInput,
) ([]TimeSlot, error) {

	provider, err := uc.repo.GetProvider(ctx, in.ProviderID)
	if err != nil {
		return nil, httperr.ErrBusiness("provider_not_found")
	}

	svc, err := uc.repo.GetService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	// The date arrives as bare year/month/day; pin those components to the
	// provider's zone instead of converting the instant, which would shift
	// the calendar day for providers west of UTC.
	loc := timezone.Location(provider.Timezone)
	day := time.Date(
		in.Date.Year(), in.Date.Month(), in.Date.Day(),
		0, 0, 0, 0,
		loc,
	)
	dayKey := day.Format("2006-01-02")

	var cached []TimeSlot
	if uc.cache.GetAvailability(ctx, in.ProviderID, in.ServiceID, dayKey, &cached) {
		return cached, nil
	}

	weekday := int(day.Weekday())
	wh, err := uc.repo.GetWorkingHours(ctx, in.ProviderID, weekday)
	if err != nil || !wh.Active {
		return []TimeSlot{}, nil
	}

	dayStart, ok1 := domain.ClockAt(wh.StartTime, day, loc)
	dayEnd, ok2 := domain.ClockAt(wh.EndTime, day, loc)
	if !ok1 || !ok2 {
		// Unparseable stored times mean a closed day, not midnight.
		return []TimeSlot{}, nil
	}

	hasBreak := wh.BreakStart != "" && wh.BreakEnd != ""
	var breakStart, breakEnd time.Time
	if hasBreak {
		breakStart, ok1 = domain.ClockAt(wh.BreakStart, day, loc)
		breakEnd, ok2 = domain.ClockAt(wh.BreakEnd, day, loc)
		if !ok1 || !ok2 {
			return []TimeSlot{}, nil
		}
	}

	booked, err := uc.calendar.DayIntervals(ctx, in.ProviderID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := uc.activeIntervals(booked)

	slotDuration := time.Duration(svc.DurationMin) * time.Minute
	slots := []TimeSlot{}

	for cur := dayStart; !cur.Add(slotDuration).After(dayEnd); cur = cur.Add(slotDuration) {
		slot := domain.Interval{Start: cur, End: cur.Add(slotDuration)}

		if hasBreak && slot.Overlaps(domain.Interval{Start: breakStart, End: breakEnd}) {
			continue
		}

		conflict := false
		for _, b := range busy {
			if slot.Overlaps(b) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		slots = append(slots, TimeSlot{
			Start: slot.Start.Format("15:04"),
			End:   slot.End.Format("15:04"),
		})
	}

	uc.cache.SetAvailability(ctx, in.ProviderID, in.ServiceID, dayKey, slots)
	return slots, nil
}

// activeIntervals filters out tentative holds that have already lapsed; the
// sweep will remove them, but availability must not count them busy in the
// meantime.
func (uc *GetAvailability) activeIntervals(booked []models.BookedInterval) []domain.Interval {
	now := uc.clock.Now()
	out := make([]domain.Interval, 0, len(booked))
	for _, b := range booked {
		if b.Status == models.IntervalTentative && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt) {
			continue
		}
		out = append(out, domain.Interval{Start: b.StartTime, End: b.EndTime})
	}
	return out
}
