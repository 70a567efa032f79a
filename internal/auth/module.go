// Package auth provides the agent authentication module.
package auth

import (
	"deskhub_backend/internal/auth/handler"
	"deskhub_backend/internal/auth/service"
	apphttp "deskhub_backend/internal/http"
	"deskhub_backend/platform/config"
	"deskhub_backend/platform/validator"
)

// Module represents the auth module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new auth module. The agent directory is supplied by an
// adapter over the agents module.
func NewModule(directory service.AgentDirectory, cfg config.AuthServiceConfig, val *validator.Validator) *Module {
	svc := service.New(directory, cfg)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Login takes the stricter per-IP limiter to slow brute forcing.
	authGroup := ctx.V1.Group("/auth")
	authGroup.POST("/login", ctx.AuthRateLimiter.RateLimit(), m.handler.Login)

	ctx.Protected.GET("/auth/me", m.handler.Me)
}

var _ apphttp.Module = (*Module)(nil)
