package booking

import (
	"context"

	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/models"
)

type GetBooking struct {
	repo domain.Repository
}

func NewGetBooking(repo domain.Repository) *GetBooking {
	return &GetBooking{repo: repo}
}

// Execute returns the appointment to one of its parties. A fees-pending
// appointment is valid but degraded; callers surface that through the
// fees_pending field.
func (uc *GetBooking) Execute(
	ctx context.Context,
	actorID string,
	appointmentID string,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if actorID != ap.ClientID && actorID != ap.ProviderID {
		return nil, domain.ErrNotFound
	}
	return ap, nil
}
