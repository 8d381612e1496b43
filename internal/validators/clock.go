package validators

import "time"

// IsClockTime reports whether s is a wall-clock string in 24h "15:04" form,
// the format working-hours rows are stored in.
func IsClockTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
