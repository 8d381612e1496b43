package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chafukay/byootify/internal/audit"
	"github.com/chafukay/byootify/internal/cache"
	"github.com/chafukay/byootify/internal/calendar"
	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/config"
	"github.com/chafukay/byootify/internal/domain/fees"
	"github.com/chafukay/byootify/internal/handlers"
	infraRepo "github.com/chafukay/byootify/internal/infra/repository"
	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/middleware"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payment"
	ucBooking "github.com/chafukay/byootify/internal/usecase/booking"
)

// Deps are the process-wide singletons main wires up before the router.
type Deps struct {
	DB        *gorm.DB
	Cache     *cache.Cache
	Payments  payment.Processor
	Reminders ucBooking.ReminderScheduler
	Log       *zap.Logger
	Clock     clock.Clock
}

// Services is everything the background worker shares with the HTTP surface.
type Services struct {
	BookingRepo *infraRepo.BookingGormRepository
	LedgerRepo  *infraRepo.LedgerGormRepository
	Calendar    *calendar.Store
	Ledger      *ledger.Ledger
	CompleteUC  *ucBooking.CompleteBooking
	FlushUC     *ucBooking.FlushPendingFees
	Notifier    *notify.Dispatcher
	AuditLogger *audit.Dispatcher
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) Services {

	// ======================================================
	// MIDDLEWARE
	// ======================================================
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	bookingRepo := infraRepo.NewBookingGormRepository(d.DB)
	calendarRepo := infraRepo.NewCalendarGormRepository(d.DB)
	ledgerRepo := infraRepo.NewLedgerGormRepository(d.DB)

	auditLogger := audit.New(d.DB)
	auditDispatcher := audit.NewDispatcher(auditLogger, d.Log)

	notifier := notify.NewDispatcher(notify.ZapSink{Log: d.Log}, d.Log)

	calendarStore := calendar.NewStore(calendarRepo, d.Clock, d.Cache, cfg.HoldTTL, d.Log)
	ledgerSvc := ledger.New(ledgerRepo, d.Clock, d.Log)

	policy := fees.Policy{
		ReservationHoldRate: fees.FromFloat(cfg.ReservationHoldRate),
		ServiceFeeRate:      fees.FromFloat(cfg.ServiceFeeRate),
		CommissionRate:      fees.FromFloat(cfg.CommissionRate),
		CancellationFeeRate: fees.FromFloat(cfg.CancellationFeeRate),
	}

	recorder := ucBooking.NewFeeRecorder(
		bookingRepo,
		ledgerSvc,
		policy,
		cfg.ShortNoticeWindow,
		cfg.LedgerMaxAttempts,
		d.Clock,
		d.Log,
	)

	// ======================================================
	// USE CASES
	// ======================================================
	requestUC := ucBooking.NewRequestBooking(
		bookingRepo,
		calendarStore,
		d.Payments,
		recorder,
		notifier,
		auditDispatcher,
		d.Reminders,
		d.Clock,
		cfg.MinAdvance,
		d.Log,
	)

	cancelUC := ucBooking.NewCancelBooking(
		bookingRepo,
		calendarStore,
		d.Payments,
		recorder,
		notifier,
		auditDispatcher,
		d.Clock,
		d.Log,
	)

	completeUC := ucBooking.NewCompleteBooking(
		bookingRepo,
		d.Payments,
		recorder,
		notifier,
		auditDispatcher,
		d.Clock,
		cfg.AutoCompleteGrace,
		d.Log,
	)

	noshowUC := ucBooking.NewMarkNoShow(
		bookingRepo,
		calendarStore,
		d.Payments,
		recorder,
		notifier,
		auditDispatcher,
		d.Clock,
		d.Log,
	)

	tipUC := ucBooking.NewAddTip(
		bookingRepo,
		d.Payments,
		recorder,
		auditDispatcher,
		d.Clock,
		d.Log,
	)

	getUC := ucBooking.NewGetBooking(bookingRepo)

	availabilityUC := ucBooking.NewGetAvailability(
		bookingRepo,
		calendarStore,
		d.Cache,
		d.Clock,
	)

	flushUC := ucBooking.NewFlushPendingFees(
		bookingRepo,
		ledgerSvc,
		recorder,
		d.Clock,
		d.Log,
	)

	listByDateUC := ucBooking.NewListAppointmentsByDate(bookingRepo)
	listByMonthUC := ucBooking.NewListAppointmentsByMonth(bookingRepo)

	// ======================================================
	// HANDLERS
	// ======================================================
	bookingHandler := handlers.NewBookingHandler(
		requestUC,
		cancelUC,
		completeUC,
		noshowUC,
		tipUC,
		getUC,
	)

	availabilityHandler := handlers.NewAvailabilityHandler(availabilityUC)
	providerHandler := handlers.NewProviderHandler(ledgerSvc, listByDateUC, listByMonthUC, d.Clock)
	serviceHandler := handlers.NewServiceHandler(d.DB)
	workingHoursHandler := handlers.NewWorkingHoursHandler(d.DB)
	auditLogsHandler := handlers.NewAuditLogsHandler(d.DB)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC
		// ------------------------------
		api.GET("/providers/:providerId/availability", availabilityHandler.Get)

		// ------------------------------
		// PRIVATE
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			// ------------------------------
			// BOOKINGS
			// ------------------------------
			secured.POST("/bookings", middleware.RequireRole(middleware.RoleClient), bookingHandler.Create)
			secured.GET("/bookings/:id", bookingHandler.Get)
			secured.POST("/bookings/:id/cancel", bookingHandler.Cancel)
			secured.POST("/bookings/:id/complete", bookingHandler.Complete)
			secured.POST("/bookings/:id/noshow", middleware.RequireRole(middleware.RoleProvider), bookingHandler.NoShow)
			secured.POST("/bookings/:id/tip", middleware.RequireRole(middleware.RoleClient), bookingHandler.Tip)

			// ------------------------------
			// PROVIDER SURFACE
			// ------------------------------
			me := secured.Group("/me", middleware.RequireRole(middleware.RoleProvider))
			{
				me.GET("/balance", providerHandler.Balance)
				me.GET("/ledger", providerHandler.Ledger)
				me.GET("/appointments", providerHandler.AppointmentsByDate)
				me.GET("/appointments/month", providerHandler.AppointmentsByMonth)

				me.GET("/services", serviceHandler.List)
				me.POST("/services", serviceHandler.Create)
				me.PATCH("/services/:id", serviceHandler.Update)
				me.DELETE("/services/:id", serviceHandler.Delete)

				me.GET("/working-hours", workingHoursHandler.Get)
				me.PUT("/working-hours", workingHoursHandler.Update)
			}

			secured.GET("/audit-logs", auditLogsHandler.List)
		}
	}

	return Services{
		BookingRepo: bookingRepo,
		LedgerRepo:  ledgerRepo,
		Calendar:    calendarStore,
		Ledger:      ledgerSvc,
		CompleteUC:  completeUC,
		FlushUC:     flushUC,
		Notifier:    notifier,
		AuditLogger: auditDispatcher,
	}
}
