package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/cache"
	"github.com/chafukay/byootify/internal/clock"
	"github.com/chafukay/byootify/internal/config"
	dbpkg "github.com/chafukay/byootify/internal/db"
	"github.com/chafukay/byootify/internal/jobs"
	"github.com/chafukay/byootify/internal/logger"
	"github.com/chafukay/byootify/internal/payment"
	"github.com/chafukay/byootify/internal/payout"
	"github.com/chafukay/byootify/internal/routes"
)

func main() {

	cfg := config.Load()

	log := logger.New(cfg.IsProduction())
	defer log.Sync()

	db := dbpkg.NewDB(cfg)
	clk := clock.NewSystem()

	availabilityCache := cache.New(cfg, log)
	processor := payment.NewStripeProcessor(cfg.StripeKey, cfg.PaymentTimeout, log)

	queueOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	jobClient := jobs.NewClient(queueOpt)
	defer jobClient.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	svcs := routes.RegisterRoutes(r, cfg, routes.Deps{
		DB:        db,
		Cache:     availabilityCache,
		Payments:  processor,
		Reminders: jobClient,
		Log:       log,
		Clock:     clk,
	})

	payouts := payout.NewScheduler(
		svcs.Ledger,
		svcs.LedgerRepo,
		svcs.BookingRepo,
		processor,
		svcs.Notifier,
		svcs.AuditLogger,
		clk,
		cfg.SettlementHold,
		log,
	)

	worker := jobs.NewWorker(
		queueOpt,
		svcs.Calendar,
		svcs.CompleteUC,
		svcs.FlushUC,
		payouts,
		svcs.BookingRepo,
		svcs.Notifier,
		log,
	)
	if err := worker.Start(); err != nil {
		log.Fatal("failed to start job worker", zap.Error(err))
	}
	defer worker.Shutdown()

	log.Info("server starting", zap.String("addr", cfg.Addr()))
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
