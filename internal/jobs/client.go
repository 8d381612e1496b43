package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues one-off tasks. It backs the booking reminder hook; the
// periodic jobs are registered by the Scheduler instead.
type Client struct {
	inner *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(redisOpt)}
}

func (c *Client) ScheduleReminder(ctx context.Context, appointmentID string, runAt time.Time) error {
	if !runAt.After(time.Now()) {
		// Booked inside the reminder window; nothing to send.
		return nil
	}

	task, opts, err := NewReminderTask(appointmentID, runAt)
	if err != nil {
		return err
	}

	_, err = c.inner.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *Client) Close() error {
	return c.inner.Close()
}
