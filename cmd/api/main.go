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
	"deskhub_backend/internal/adapters/storage"
	"deskhub_backend/internal/agents"
	"deskhub_backend/internal/auth"
	"deskhub_backend/internal/board"
	"deskhub_backend/internal/clients"
	"deskhub_backend/internal/email"
	"deskhub_backend/internal/events"
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/http/router"
	"deskhub_backend/internal/invoices"
	"deskhub_backend/internal/notification"
	"deskhub_backend/internal/quotes"
	"deskhub_backend/internal/services"
	"deskhub_backend/internal/tickets"
	"deskhub_backend/internal/webhook"
	"deskhub_backend/internal/whatsapp"
	"deskhub_backend/internal/zoho"
	"deskhub_backend/migrations"
	"deskhub_backend/platform/config"
	"deskhub_backend/platform/db"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for ticket attachments (MinIO). The tickets module
	// tolerates a nil service; attachment endpoints then return errors.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure ticket-attachments bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketTicketAttachments())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized", "ticketAttachmentsBucket", cfg.GetMinioBucketTicketAttachments())
	} else {
		log.Warn("MinIO not configured; ticket attachments disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	servicesModule := services.NewModule(pool, val)
	clientsModule := clients.NewModule(pool, eventBus, val, log)
	agentsModule := agents.NewModule(pool, val)

	agentDirectory := adapters.NewAuthAgentDirectory(agentsModule.Service())
	authModule := auth.NewModule(agentDirectory, cfg, val)

	ticketsModule := tickets.NewModule(pool, eventBus, val, log, storageSvc, cfg.GetMinioBucketTicketAttachments())

	quotesCatalog := adapters.NewQuotesCatalogReader(servicesModule.Service())
	quotesModule := quotes.NewModule(pool, quotesCatalog, eventBus, val, log)

	invoicesCatalog := adapters.NewInvoicesCatalogReader(servicesModule.Service())
	invoicesModule := invoices.NewModule(pool, invoicesCatalog, eventBus, val, log, cfg)

	// Wire quote ports: invoice conversion, client lookups for proposals,
	// and the proposal mailer (breaks circular module dependencies).
	quotesModule.Service().SetInvoiceCreator(adapters.NewQuoteInvoiceCreator(invoicesModule.Service()))
	quotesModule.Service().SetClientReader(adapters.NewQuotesClientReader(clientsModule.Service()))
	quotesModule.Service().SetProposalSender(adapters.NewQuoteProposalMailer(sender, cfg))

	// Public intake: webhook endpoints resolve clients and route messages
	// into ticket threads through narrow ports.
	intakeResolver := adapters.NewIntakeClientResolver(clientsModule.Service())
	intakeRouter := adapters.NewIntakeTicketRouter(ticketsModule.Service())
	webhookModule := webhook.NewModule(pool, intakeResolver, intakeRouter, val, log)

	// Notification module subscribes to domain events (not HTTP-facing).
	// Integrations stay nil when unconfigured so handlers skip them.
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

	notificationModule := notification.NewModule(
		sender,
		waSender,
		boardClient,
		cardMapper,
		crmSyncer,
		clientsModule.Service(),
		ticketsModule.Service(),
		invoicesModule.Service(),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			agentsModule,
			clientsModule,
			servicesModule,
			ticketsModule,
			quotesModule,
			invoicesModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
