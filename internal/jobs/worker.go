package jobs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/calendar"
	domain "github.com/chafukay/byootify/internal/domain/booking"
	"github.com/chafukay/byootify/internal/notify"
	"github.com/chafukay/byootify/internal/payout"
	usecase "github.com/chafukay/byootify/internal/usecase/booking"
)

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler

	store    *calendar.Store
	complete *usecase.CompleteBooking
	flush    *usecase.FlushPendingFees
	payouts  *payout.Scheduler
	repo     domain.Repository
	notifier *notify.Dispatcher
	log      *zap.Logger
}

func NewWorker(
	redisOpt asynq.RedisClientOpt,
	store *calendar.Store,
	complete *usecase.CompleteBooking,
	flush *usecase.FlushPendingFees,
	payouts *payout.Scheduler,
	repo domain.Repository,
	notifier *notify.Dispatcher,
	log *zap.Logger,
) *Worker {

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 1,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	return &Worker{
		server:    server,
		scheduler: scheduler,
		store:     store,
		complete:  complete,
		flush:     flush,
		payouts:   payouts,
		repo:      repo,
		notifier:  notifier,
		log:       log,
	}
}

// Start registers the periodic entries and runs the worker loop in the
// background. Call Shutdown on process exit.
func (w *Worker) Start() error {
	entries := []struct {
		spec string
		typ  string
	}{
		{"@every 1m", TypeCalendarSweep},
		{"@every 5m", TypeBookingAutoComplete},
		{"@every 1m", TypeLedgerRetry},
		{"0 6 * * *", TypePayoutRun},
		{"@every 1h", TypePayoutReconcile},
	}
	for _, e := range entries {
		if _, err := w.scheduler.Register(e.spec, asynq.NewTask(e.typ, nil)); err != nil {
			return err
		}
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCalendarSweep, w.handleCalendarSweep)
	mux.HandleFunc(TypeBookingAutoComplete, w.handleAutoComplete)
	mux.HandleFunc(TypeLedgerRetry, w.handleLedgerRetry)
	mux.HandleFunc(TypePayoutRun, w.handlePayoutRun)
	mux.HandleFunc(TypePayoutReconcile, w.handlePayoutReconcile)
	mux.HandleFunc(TypeBookingReminder, w.handleReminder)

	if err := w.scheduler.Start(); err != nil {
		return err
	}

	go func() {
		if err := w.server.Run(mux); err != nil {
			w.log.Fatal("job worker stopped", zap.Error(err))
		}
	}()

	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func (w *Worker) handleCalendarSweep(ctx context.Context, _ *asynq.Task) error {
	removed, err := w.store.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		w.log.Info("swept expired holds", zap.Int64("removed", removed))
	}
	return nil
}

func (w *Worker) handleAutoComplete(ctx context.Context, _ *asynq.Task) error {
	completed, err := w.complete.AutoComplete(ctx)
	if err != nil {
		return err
	}
	if completed > 0 {
		w.log.Info("auto-completed appointments", zap.Int("count", completed))
	}
	return nil
}

func (w *Worker) handleLedgerRetry(ctx context.Context, _ *asynq.Task) error {
	flushed, err := w.flush.Execute(ctx)
	if err != nil {
		return err
	}
	if flushed > 0 {
		w.log.Info("flushed deferred fee writes", zap.Int("count", flushed))
	}
	return nil
}

func (w *Worker) handlePayoutRun(ctx context.Context, _ *asynq.Task) error {
	paid, err := w.payouts.Run(ctx)
	if err != nil {
		return err
	}
	w.log.Info("payout cycle finished", zap.Int("providers_paid", paid))
	return nil
}

func (w *Worker) handlePayoutReconcile(ctx context.Context, _ *asynq.Task) error {
	return w.payouts.Reconcile(ctx)
}

func (w *Worker) handleReminder(ctx context.Context, task *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}

	ap, err := w.repo.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	// Cancelled or already done; stale reminder.
	if ap.Status != string(domain.StatusConfirmed) {
		return nil
	}

	w.notifier.Dispatch(notify.Event{
		Type:          notify.EventAppointmentReminder,
		AppointmentID: ap.ID,
		ProviderID:    ap.ProviderID,
		ClientID:      ap.ClientID,
		At:            ap.StartTime,
	})
	return nil
}
