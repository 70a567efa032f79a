package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	agentNotFoundMsg = "agent not found"

	agentColumns = "id, name, email, password_hash, role, commission_rate, status, created_at, updated_at"
)

// Repo provides Postgres-backed persistence for agents.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new agents repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create inserts an agent. A duplicate email surfaces as a conflict.
func (r *Repo) Create(ctx context.Context, agent *Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.pool.Exec(ctx, query,
		agent.ID, agent.Name, agent.Email, agent.PasswordHash, agent.Role,
		agent.CommissionRate, agent.Status, agent.CreatedAt, agent.UpdatedAt,
	); err != nil {
		return mapWriteError(err, "insert agent")
	}
	return nil
}

// GetByID retrieves an agent by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// GetByEmail retrieves an agent by email, case-insensitively.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE LOWER(email) = LOWER($1)`
	return r.queryOne(ctx, query, strings.TrimSpace(email))
}

func (r *Repo) queryOne(ctx context.Context, query string, arg interface{}) (*Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role,
		&a.CommissionRate, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(agentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &a, nil
}

// List retrieves agents with filtering and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM agents
		WHERE ($1::text IS NULL OR name ILIKE $1 OR email ILIKE $1)
			AND ($2::text IS NULL OR role = $2)
			AND ($3::text IS NULL OR status = $3)
	`
	args := []interface{}{searchParam, roleParam(params.Role), statusParam(params.Status)}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count agents: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT ` + agentColumns + `
		` + baseQuery + `
		ORDER BY name ASC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, selectQuery, append(args, params.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var items []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role,
			&a.CommissionRate, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update persists changes to an agent.
func (r *Repo) Update(ctx context.Context, agent *Agent) error {
	query := `
		UPDATE agents
		SET name = $2, email = $3, password_hash = $4, role = $5, commission_rate = $6, status = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		agent.ID, agent.Name, agent.Email, agent.PasswordHash, agent.Role,
		agent.CommissionRate, agent.Status, agent.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "update agent")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMsg)
	}
	return nil
}

// IsReferenced reports whether any ticket, quote, or invoice names the agent.
func (r *Repo) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	query := `
		SELECT EXISTS (SELECT 1 FROM tickets WHERE agent_id = $1)
			OR EXISTS (SELECT 1 FROM quotes WHERE agent_id = $1)
			OR EXISTS (SELECT 1 FROM invoices WHERE agent_id = $1)`

	if err := r.pool.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("failed to check agent references: %w", err)
	}
	return referenced, nil
}

// Delete hard-deletes an unreferenced agent.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("agent is assigned to tickets, quotes, or invoices")
		}
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMsg)
	}
	return nil
}

func roleParam(role *Role) interface{} {
	if role == nil {
		return nil
	}
	return string(*role)
}

func statusParam(status *Status) interface{} {
	if status == nil {
		return nil
	}
	return string(*status)
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("an agent with this email already exists")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
