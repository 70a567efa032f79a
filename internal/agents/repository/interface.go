package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is an agent's permission level.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleSeniorAgent Role = "SENIOR_AGENT"
	RoleAgent       Role = "AGENT"
)

// Status is an agent's availability state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Agent is the database model for a support agent.
type Agent struct {
	ID             uuid.UUID       `db:"id"`
	Name           string          `db:"name"`
	Email          string          `db:"email"`
	PasswordHash   string          `db:"password_hash"`
	Role           Role            `db:"role"`
	CommissionRate decimal.Decimal `db:"commission_rate"`
	Status         Status          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// ListParams contains parameters for listing agents.
type ListParams struct {
	Search   string
	Role     *Role
	Status   *Status
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing agents.
type ListResult struct {
	Items      []Agent
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for agents.
type Repository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	GetByEmail(ctx context.Context, email string) (*Agent, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, agent *Agent) error

	// IsReferenced reports whether any ticket, quote, or invoice is assigned
	// to the agent, which blocks a hard delete.
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
