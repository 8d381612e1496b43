package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/httpresp"
	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/middleware"
	usecase "github.com/chafukay/byootify/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

// ProviderHandler is the earnings and agenda surface for the authenticated
// provider.
type ProviderHandler struct {
	ledger  *ledger.Ledger
	byDate  *usecase.ListAppointmentsByDate
	byMonth *usecase.ListAppointmentsByMonth
	clock   clock.Clock
}

func NewProviderHandler(
	lg *ledger.Ledger,
	byDate *usecase.ListAppointmentsByDate,
	byMonth *usecase.ListAppointmentsByMonth,
	clk clock.Clock,
) *ProviderHandler {
	return &ProviderHandler{
		ledger:  lg,
		byDate:  byDate,
		byMonth: byMonth,
		clock:   clk,
	}
}

// ======================================================
// EARNINGS
// ======================================================

func (h *ProviderHandler) Balance(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	balances, err := h.ledger.BalancesFor(c.Request.Context(), providerID, h.clock.Now())
	if err != nil {
		httperr.Internal(c, "balance_failed", "Could not compute balance.")
		return
	}

	httpresp.OK(c, gin.H{
		"provider_id": providerID,
		// Cents keyed by ISO 4217 code; one entry per currency earned in.
		"balances": balances,
	})
}

func (h *ProviderHandler) Ledger(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	entries, err := h.ledger.ProviderEntries(c.Request.Context(), providerID, h.clock.Now())
	if err != nil {
		httperr.Internal(c, "ledger_failed", "Could not list ledger entries.")
		return
	}

	httpresp.List(c, entries)
}

// ======================================================
// AGENDA
// ======================================================

func (h *ProviderHandler) AppointmentsByDate(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	date, err := parseDateIn(nil, c.Query("date"))
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "date must be YYYY-MM-DD.")
		return
	}

	apps, err := h.byDate.Execute(c.Request.Context(), providerID, date)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.List(c, apps)
}

func (h *ProviderHandler) AppointmentsByMonth(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	year, err1 := strconv.Atoi(c.Query("year"))
	month, err2 := strconv.Atoi(c.Query("month"))
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		httperr.BadRequest(c, "invalid_period", "year and month are required.")
		return
	}

	apps, err := h.byMonth.Execute(c.Request.Context(), providerID, year, month)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	httpresp.List(c, apps)
}
