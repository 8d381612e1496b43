package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/httpresp"
	usecase "github.com/chafukay/byootify/internal/usecase/booking"
)

// AvailabilityHandler serves the public slot listing used by the booking
// screen. No auth: availability leaks nothing beyond free/busy.
type AvailabilityHandler struct {
	availability *usecase.GetAvailability
}

func NewAvailabilityHandler(availability *usecase.GetAvailability) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

func (h *AvailabilityHandler) Get(c *gin.Context) {
	providerID := c.Param("providerId")
	serviceID := c.Query("service_id")
	dateStr := c.Query("date")

	if serviceID == "" || dateStr == "" {
		httperr.BadRequest(c, "missing_params", "service_id and date are required.")
		return
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "date must be YYYY-MM-DD.")
		return
	}

	slots, err := h.availability.Execute(c.Request.Context(), usecase.AvailabilityInput{
		ProviderID: providerID,
		ServiceID:  serviceID,
		Date:       date,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.List(c, slots)
}
