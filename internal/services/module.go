// Package services provides the billable service catalog module.
package services

import (
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/internal/services/handler"
	"deskhub_backend/internal/services/repository"
	"deskhub_backend/internal/services/service"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the service catalog module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new catalog module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "services"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	services := ctx.Protected.Group("/services")
	m.handler.RegisterRoutes(services)

	// Catalog deletion is destructive so it sits behind the admin guard.
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
