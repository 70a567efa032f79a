package scheduler

import (
	"fmt"

	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring background tasks with asynq's scheduler.
// It runs alongside the worker in cmd/scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	p := &Periodic{scheduler: scheduler, log: log}

	overdue, err := NewInvoiceOverdueSweepTask(SweepPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("@every 1h", overdue, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register overdue sweep: %w", err)
	}

	expiry, err := NewQuoteExpirySweepTask(SweepPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("@every 1h", expiry, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register expiry sweep: %w", err)
	}

	if _, err := scheduler.Register("@every 2m", NewEmailIMAPPollTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register imap poll: %w", err)
	}

	return p, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() error {
	if p == nil || p.scheduler == nil {
		return nil
	}
	p.log.Info("periodic task scheduler started")
	return p.scheduler.Run()
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	if p == nil || p.scheduler == nil {
		return
	}
	p.scheduler.Shutdown()
}
