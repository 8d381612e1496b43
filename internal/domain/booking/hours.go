package booking

import (
	"time"

	"github.com/chafukay/byootify/internal/models"
)

// ParseClock parses a wall-clock string ("15:04") stored on a working-hours
// row. Malformed strings are a data error, never silently midnight.
func ParseClock(hm string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// ClockAt pins a wall-clock string to the calendar day of ref in loc.
func ClockAt(hm string, ref time.Time, loc *time.Location) (time.Time, bool) {
	h, m, ok := ParseClock(hm)
	if !ok {
		return time.Time{}, false
	}
	ref = ref.In(loc)
	return time.Date(ref.Year(), ref.Month(), ref.Day(), h, m, 0, 0, loc), true
}

// WithinWorkingHours reports whether the interval fits inside the provider's
// working window for the day, outside any break. The interval's instants are
// evaluated in loc, the provider's timezone, so the stored wall-clock strings
// and the requested slot live on the same clock. Rows with unparseable times
// count as closed.
func WithinWorkingHours(wh *models.WorkingHours, loc *time.Location, iv Interval) bool {
	if wh == nil || !wh.Active {
		return false
	}

	start := iv.Start.In(loc)
	end := iv.End.In(loc)

	workStart, ok1 := ClockAt(wh.StartTime, start, loc)
	workEnd, ok2 := ClockAt(wh.EndTime, start, loc)
	if !ok1 || !ok2 {
		return false
	}
	if start.Before(workStart) || end.After(workEnd) {
		return false
	}

	if wh.BreakStart != "" && wh.BreakEnd != "" {
		breakStart, ok1 := ClockAt(wh.BreakStart, start, loc)
		breakEnd, ok2 := ClockAt(wh.BreakEnd, start, loc)
		if !ok1 || !ok2 {
			return false
		}
		br := Interval{Start: breakStart, End: breakEnd}
		if iv.Overlaps(br) {
			return false
		}
	}

	return true
}
