// Package clients provides the customer record module.
package clients

import (
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/clients/handler"
	"deskhub_backend/internal/clients/repository"
	"deskhub_backend/internal/clients/service"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the clients domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new clients module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	clients := ctx.Protected.Group("/clients")
	m.handler.RegisterRoutes(clients)
}

var _ apphttp.Module = (*Module)(nil)
