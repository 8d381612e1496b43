package booking

import "github.com/chafukay/byootify/internal/httperr"

var (
	ErrTooSoon             = httperr.ErrBusiness("too_soon")
	ErrOutsideWorkingHours = httperr.ErrBusiness("outside_working_hours")
	ErrNotCompleted        = httperr.ErrBusiness("not_completed")
	ErrIntervalNotOver     = httperr.ErrBusiness("interval_not_over")
)
