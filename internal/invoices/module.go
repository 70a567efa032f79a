// Package invoices provides the invoicing domain module.
package invoices

import (
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/invoices/handler"
	"deskhub_backend/internal/invoices/repository"
	"deskhub_backend/internal/invoices/service"
	"deskhub_backend/platform/config"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the invoices domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new invoices module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, catalog service.CatalogReader, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger, portal config.PortalConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, bus, log, portal)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "invoices"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	invoices := ctx.Protected.Group("/invoices")
	m.handler.RegisterRoutes(invoices)
}

var _ apphttp.Module = (*Module)(nil)
