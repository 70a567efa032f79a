// Package agents provides the support agent module.
package agents

import (
	"deskhub_backend/internal/agents/handler"
	"deskhub_backend/internal/agents/repository"
	"deskhub_backend/internal/agents/service"
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the agents domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new agents module with all dependencies wired.
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
	return "agents"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agents := ctx.Protected.Group("/agents")
	m.handler.RegisterRoutes(agents)

	// Hard delete is destructive so it sits behind the admin guard.
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
