package dto

import "time"

type AppointmentListDTO struct {
	ID          string    `json:"id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	ClientID    string    `json:"client_id"`
	ServiceID   string    `json:"service_id"`
	PriceCents  int64     `json:"price_cents"`
	FeesPending bool      `json:"fees_pending"`
}
