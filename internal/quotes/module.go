// Package quotes provides the quoting domain module.
package quotes

import (
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/quotes/handler"
	"deskhub_backend/internal/quotes/repository"
	"deskhub_backend/internal/quotes/service"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	service       *service.Service
}

// NewModule creates a new quotes module with all dependencies wired.
// The invoice conversion port is injected later via Service().SetInvoiceCreator.
func NewModule(pool *pgxpool.Pool, catalog service.CatalogReader, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, bus, log)

	return &Module{
		handler:       handler.New(svc, val),
		publicHandler: handler.NewPublicHandler(svc, val),
		service:       svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotes := ctx.Protected.Group("/quotes")
	m.handler.RegisterRoutes(quotes)

	// Customer portal routes, no auth middleware
	portal := ctx.V1.Group("/public/portal/quotes")
	m.publicHandler.RegisterRoutes(portal)
}

var _ apphttp.Module = (*Module)(nil)
