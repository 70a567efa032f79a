package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAgentRequest is the request body for registering an agent.
type CreateAgentRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=200"`
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=8,max=128"`
	Role           string          `json:"role" validate:"required,oneof=ADMIN SENIOR_AGENT AGENT"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

// UpdateAgentRequest is the request body for editing an agent.
type UpdateAgentRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	Password       *string          `json:"password" validate:"omitempty,min=8,max=128"`
	Role           *string          `json:"role" validate:"omitempty,oneof=ADMIN SENIOR_AGENT AGENT"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	Status         *string          `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

// ListAgentsRequest defines the query parameters for listing agents.
type ListAgentsRequest struct {
	Search   string `form:"search"`
	Role     string `form:"role" validate:"omitempty,oneof=ADMIN SENIOR_AGENT AGENT"`
	Status   string `form:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// AgentResponse is the response for an agent record. The password hash never
// leaves the service layer.
type AgentResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// AgentListResponse is the paginated list response.
type AgentListResponse struct {
	Items      []AgentResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}
