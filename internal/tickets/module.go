// Package tickets provides the multi-channel helpdesk module.
package tickets

import (
	"deskhub_backend/internal/adapters/storage"
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/tickets/handler"
	"deskhub_backend/internal/tickets/repository"
	"deskhub_backend/internal/tickets/service"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the tickets domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new tickets module. storageSvc may be nil when MinIO
// is not configured; attachment endpoints then fail with a scoped error.
func NewModule(pool *pgxpool.Pool, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger, storageSvc storage.StorageService, bucket string) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log, storageSvc, bucket)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "tickets"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tickets := ctx.Protected.Group("/tickets")
	m.handler.RegisterRoutes(tickets)
}

var _ apphttp.Module = (*Module)(nil)
