package booking

// ===============================
// Appointment Status
// ===============================

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ===============================
// Transition guards
// ===============================

func CanCancel(current Status) error {
	if current != StatusConfirmed {
		return ErrInvalidTransition
	}
	return nil
}

func CanComplete(current Status) error {
	if current != StatusConfirmed {
		return ErrInvalidTransition
	}
	return nil
}

func CanMarkNoShow(current Status) error {
	if current != StatusConfirmed {
		return ErrInvalidTransition
	}
	return nil
}

// InitialStatus is the state a persisted appointment starts in. A request is
// only written once its slot is reserved and the payment hold captured;
// rejected requests leave nothing behind but an audit record.
func InitialStatus() Status {
	return StatusConfirmed
}
