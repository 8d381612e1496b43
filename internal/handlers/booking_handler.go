package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/httpresp"
	"github.com/chafukay/byootify/internal/middleware"
	usecase "github.com/chafukay/byootify/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	request  *usecase.RequestBooking
	cancel   *usecase.CancelBooking
	complete *usecase.CompleteBooking
	noshow   *usecase.MarkNoShow
	tip      *usecase.AddTip
	get      *usecase.GetBooking
}

func NewBookingHandler(
	request *usecase.RequestBooking,
	cancel *usecase.CancelBooking,
	complete *usecase.CompleteBooking,
	noshow *usecase.MarkNoShow,
	tip *usecase.AddTip,
	get *usecase.GetBooking,
) *BookingHandler {
	return &BookingHandler{
		request:  request,
		cancel:   cancel,
		complete: complete,
		noshow:   noshow,
		tip:      tip,
		get:      get,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateBookingRequest struct {
	ProviderID    string `json:"provider_id" binding:"required,uuid"`
	ServiceID     string `json:"service_id" binding:"required,uuid"`
	Start         string `json:"start" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	Notes         string `json:"notes"`
}

type TipRequest struct {
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// ======================================================
// HELPERS
// ======================================================

// triggerEventID derives the replay key for a transition from the client's
// Idempotency-Key header; without one each request is a fresh event.
func triggerEventID(c *gin.Context) string {
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		return key
	}
	return uuid.NewString()
}

func writeDomainError(c *gin.Context, err error) {
	var be httperr.BusinessError
	switch {
	case errors.Is(err, domain.ErrConflict):
		// Only the fact of unavailability; never the other party's booking.
		httperr.Conflict(c, "slot_unavailable", "The requested time is not available.")
	case errors.Is(err, domain.ErrReservationExpired):
		httperr.Gone(c, "reservation_expired", "The reservation expired before it was confirmed. Book again.")
	case errors.Is(err, domain.ErrPaymentDeclined):
		httperr.PaymentRequired(c, "payment_declined", "The payment hold was declined.")
	case errors.Is(err, domain.ErrInvalidTransition):
		httperr.Conflict(c, "invalid_state", "The appointment is not in a state that allows this action.")
	case errors.Is(err, domain.ErrNotFound):
		httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
	case errors.As(err, &be):
		httperr.BadRequest(c, be.Code, "Request cannot be processed.")
	default:
		httperr.Internal(c, "internal_error", "Something went wrong.")
	}
}

// ======================================================
// CREATE
// ======================================================

func (h *BookingHandler) Create(c *gin.Context) {
	clientID := c.MustGet(middleware.ContextUserID).(string)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid booking payload.")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		httperr.BadRequest(c, "invalid_start", "start must be RFC3339.")
		return
	}

	ap, err := h.request.Execute(c.Request.Context(), usecase.RequestBookingInput{
		ClientID:       clientID,
		ProviderID:     req.ProviderID,
		ServiceID:      req.ServiceID,
		Start:          start.UTC(),
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
		TriggerEventID: triggerEventID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(201, ap)
}

// ======================================================
// TRANSITIONS
// ======================================================

func (h *BookingHandler) Cancel(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(string)

	ap, err := h.cancel.Execute(c.Request.Context(), actorID, c.Param("id"), triggerEventID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.OK(c, ap)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(string)

	ap, err := h.complete.Execute(c.Request.Context(), actorID, c.Param("id"), triggerEventID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.OK(c, ap)
}

func (h *BookingHandler) NoShow(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	ap, err := h.noshow.Execute(c.Request.Context(), providerID, c.Param("id"), triggerEventID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.OK(c, ap)
}

func (h *BookingHandler) Tip(c *gin.Context) {
	clientID := c.MustGet(middleware.ContextUserID).(string)

	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid tip payload.")
		return
	}

	ap, err := h.tip.Execute(
		c.Request.Context(),
		clientID,
		c.Param("id"),
		req.AmountCents,
		req.PaymentMethod,
		triggerEventID(c),
	)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.OK(c, ap)
}

// ======================================================
// READ
// ======================================================

func (h *BookingHandler) Get(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(string)

	ap, err := h.get.Execute(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.OK(c, ap)
}
