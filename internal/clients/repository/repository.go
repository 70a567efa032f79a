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
	clientNotFoundMsg = "client not found"

	clientColumns = "id, name, email, phone, company, whatsapp_id, created_at, updated_at"
)

// Repo provides Postgres-backed persistence for clients.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new clients repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create inserts a client. A duplicate email surfaces as a conflict.
func (r *Repo) Create(ctx context.Context, client *Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.pool.Exec(ctx, query,
		client.ID, client.Name, client.Email, client.Phone, client.Company,
		client.WhatsAppID, client.CreatedAt, client.UpdatedAt,
	); err != nil {
		return mapWriteError(err, "insert client")
	}
	return nil
}

// GetByID retrieves a client by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// GetByEmail retrieves a client by email, case-insensitively.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE LOWER(email) = LOWER($1)`
	return r.queryOne(ctx, query, strings.TrimSpace(email))
}

// GetByWhatsAppID retrieves a client by its WhatsApp identifier.
func (r *Repo) GetByWhatsAppID(ctx context.Context, whatsappID string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE whatsapp_id = $1`
	return r.queryOne(ctx, query, whatsappID)
}

func (r *Repo) queryOne(ctx context.Context, query string, arg interface{}) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.WhatsAppID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// List retrieves clients with search and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM clients
		WHERE ($1::text IS NULL OR name ILIKE $1 OR email ILIKE $1 OR company ILIKE $1)
	`
	args := []interface{}{searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT ` + clientColumns + `
		` + baseQuery + `
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, selectQuery, append(args, params.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.WhatsAppID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update persists changes to a client.
func (r *Repo) Update(ctx context.Context, client *Client) error {
	query := `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, company = $5, whatsapp_id = $6, updated_at = $7
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		client.ID, client.Name, client.Email, client.Phone, client.Company,
		client.WhatsAppID, client.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "update client")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMsg)
	}
	return nil
}

// Delete removes a client. Foreign keys from tickets, quotes, and invoices
// block the delete while any of them still reference the client.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("client has tickets, quotes, or invoices")
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMsg)
	}
	return nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("a client with this email already exists")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
