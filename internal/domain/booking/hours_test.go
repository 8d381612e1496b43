package booking

import (
	"testing"
	"time"

	"github.com/chafukay/byootify/internal/models"
)

func TestWithinWorkingHours(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	wh := &models.WorkingHours{
		Weekday:    2,
		StartTime:  "09:00",
		EndTime:    "17:00",
		BreakStart: "12:00",
		BreakEnd:   "13:00",
		Active:     true,
	}

	// Tuesday 2026-03-10. 19:00 UTC is 15:00 in New York.
	utcSlot := func(h int) Interval {
		start := time.Date(2026, 3, 10, h, 0, 0, 0, time.UTC)
		return Interval{Start: start, End: start.Add(time.Hour)}
	}

	t.Run("afternoon slot expressed in UTC fits local hours", func(t *testing.T) {
		t.Parallel()
		if !WithinWorkingHours(wh, ny, utcSlot(19)) {
			t.Fatal("15:00-16:00 local should fit 09:00-17:00")
		}
	})

	t.Run("evaluating in the wrong zone rejects a valid slot", func(t *testing.T) {
		t.Parallel()
		if WithinWorkingHours(wh, time.UTC, utcSlot(19)) {
			t.Fatal("19:00 UTC is outside a 09:00-17:00 UTC window")
		}
	})

	t.Run("before opening", func(t *testing.T) {
		t.Parallel()
		if WithinWorkingHours(wh, ny, utcSlot(12)) { // 08:00 local
			t.Fatal("08:00 local is before opening")
		}
	})

	t.Run("past closing", func(t *testing.T) {
		t.Parallel()
		if WithinWorkingHours(wh, ny, utcSlot(21)) { // 17:00-18:00 local
			t.Fatal("17:00-18:00 local starts at closing")
		}
	})

	t.Run("break overlap rejected", func(t *testing.T) {
		t.Parallel()
		if WithinWorkingHours(wh, ny, utcSlot(16)) { // 12:00-13:00 local
			t.Fatal("slot over the break should be rejected")
		}
	})

	t.Run("ends exactly at closing", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 10, 16, 0, 0, 0, ny)
		iv := Interval{Start: start, End: start.Add(time.Hour)}
		if !WithinWorkingHours(wh, ny, iv) {
			t.Fatal("16:00-17:00 local should fit up to closing")
		}
	})

	t.Run("inactive day", func(t *testing.T) {
		t.Parallel()
		closed := *wh
		closed.Active = false
		if WithinWorkingHours(&closed, ny, utcSlot(19)) {
			t.Fatal("inactive day must reject all slots")
		}
	})

	t.Run("malformed stored time counts as closed", func(t *testing.T) {
		t.Parallel()
		bad := *wh
		bad.StartTime = "9am"
		if WithinWorkingHours(&bad, ny, utcSlot(19)) {
			t.Fatal("unparseable start time must not default to midnight")
		}
	})
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	if h, m, ok := ParseClock("09:30"); !ok || h != 9 || m != 30 {
		t.Fatalf("ParseClock(09:30) = %d:%d ok=%v", h, m, ok)
	}
	for _, bad := range []string{"", "9:30pm", "25:00", "12:60", "noon"} {
		if _, _, ok := ParseClock(bad); ok {
			t.Fatalf("ParseClock(%q) accepted", bad)
		}
	}
}
