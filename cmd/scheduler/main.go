package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskhub_backend/internal/adapters"
	"deskhub_backend/internal/board"
	clientrepo "deskhub_backend/internal/clients/repository"
	clientsvc "deskhub_backend/internal/clients/service"
	"deskhub_backend/internal/email"
	"deskhub_backend/internal/events"
	invoicerepo "deskhub_backend/internal/invoices/repository"
	invoicesvc "deskhub_backend/internal/invoices/service"
	"deskhub_backend/internal/notification"
	quoterepo "deskhub_backend/internal/quotes/repository"
	quotesvc "deskhub_backend/internal/quotes/service"
	"deskhub_backend/internal/scheduler"
	servicerepo "deskhub_backend/internal/services/repository"
	servicesvc "deskhub_backend/internal/services/service"
	ticketrepo "deskhub_backend/internal/tickets/repository"
	ticketsvc "deskhub_backend/internal/tickets/service"
	"deskhub_backend/internal/whatsapp"
	"deskhub_backend/internal/zoho"
	"deskhub_backend/platform/config"
	"deskhub_backend/platform/db"
	"deskhub_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The scheduler binary runs the asynq worker that processes periodic
// sweeps (invoice overdue, quote expiry) and the IMAP mailbox poll. It
// wires the same services and notification handlers as the API so that
// worker-driven status changes also fan out emails and board updates.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Services: the worker drives the same domain logic as the API, so
	// status changes publish the same events.
	catalogSvc := servicesvc.New(servicerepo.New(pool))
	clientsSvc := clientsvc.New(clientrepo.New(pool), eventBus, log)
	ticketsSvc := ticketsvc.New(ticketrepo.New(pool), eventBus, log, nil, "")
	quotesSvc := quotesvc.New(quoterepo.New(pool), adapters.NewQuotesCatalogReader(catalogSvc), eventBus, log)
	invoicesSvc := invoicesvc.New(invoicerepo.New(pool), adapters.NewInvoicesCatalogReader(catalogSvc), eventBus, log, cfg)

	// Notification handlers so sweep-driven events still notify clients.
	var waSender notification.WhatsAppSender
	if wa := whatsapp.NewClient(cfg, log); wa != nil {
		waSender = wa
	}
	var boardClient notification.BoardClient
	var cardMapper notification.CardMapper
	if bc := board.NewClient(cfg, log); bc != nil {
		boardClient = bc
		cardMapper = board.NewCardStore(pool)
	}
	var crmSyncer notification.CRMSyncer
	if zc := zoho.NewClient(cfg, log); zc != nil {
		crmSyncer = zc
	}
	notificationModule := notification.NewModule(sender, waSender, boardClient, cardMapper, crmSyncer, clientsSvc, ticketsSvc, invoicesSvc, log)
	notificationModule.RegisterHandlers(eventBus)

	// IMAP ingestor pulls unseen mailbox messages into ticket threads.
	ingestor := email.NewIngestor(cfg, adapters.NewIntakeClientResolver(clientsSvc), adapters.NewIntakeTicketRouter(ticketsSvc), log)

	worker, err := scheduler.NewWorker(cfg, invoicesSvc, quotesSvc, ingestor, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	defer periodic.Shutdown()

	log.Info("scheduler worker running", "queue", cfg.GetAsynqQueueName())
	worker.Run(ctx)
	log.Info("scheduler shut down")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
