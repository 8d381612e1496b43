package booking

import "time"

// Interval is half-open: [Start, End). Back-to-back appointments sharing a
// boundary instant are valid.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
