package scheduler

import (
	"context"
	"fmt"
	"time"

	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// InvoiceSweeper flips past-due invoices to OVERDUE.
type InvoiceSweeper interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// QuoteSweeper expires stale quotes past their validity date.
type QuoteSweeper interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// MailboxPoller ingests unseen inbound email.
type MailboxPoller interface {
	Poll(ctx context.Context) (int, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	invoices InvoiceSweeper
	quotes   QuoteSweeper
	mailbox  MailboxPoller
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, invoices InvoiceSweeper, quotes QuoteSweeper, mailbox MailboxPoller, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		invoices: invoices,
		quotes:   quotes,
		mailbox:  mailbox,
		log:      log,
	}

	mux.HandleFunc(TaskInvoiceOverdueSweep, w.handleInvoiceOverdueSweep)
	mux.HandleFunc(TaskQuoteExpirySweep, w.handleQuoteExpirySweep)
	mux.HandleFunc(TaskEmailIMAPPoll, w.handleEmailPoll)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleInvoiceOverdueSweep(ctx context.Context, task *asynq.Task) error {
	if w.invoices == nil {
		return nil
	}

	payload, err := ParseSweepPayload(task)
	if err != nil {
		return err
	}

	count, err := w.invoices.MarkOverdue(ctx, payload.Now)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("invoice overdue sweep complete", "flipped", count)
	}
	return nil
}

func (w *Worker) handleQuoteExpirySweep(ctx context.Context, task *asynq.Task) error {
	if w.quotes == nil {
		return nil
	}

	payload, err := ParseSweepPayload(task)
	if err != nil {
		return err
	}

	count, err := w.quotes.ExpireOverdue(ctx, payload.Now)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("quote expiry sweep complete", "expired", count)
	}
	return nil
}

func (w *Worker) handleEmailPoll(ctx context.Context, _ *asynq.Task) error {
	if w.mailbox == nil {
		return nil
	}

	count, err := w.mailbox.Poll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("imap poll complete", "ingested", count)
	}
	return nil
}
