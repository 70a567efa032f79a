package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceNotFoundMsg = "service not found"

// Repo provides Postgres-backed persistence for the service catalog.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new services repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create inserts a catalog service. A duplicate SKU surfaces as a conflict.
func (r *Repo) Create(ctx context.Context, svc *Service) error {
	query := `
		INSERT INTO services (id, name, sku, category, description, rate, unit, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := r.pool.Exec(ctx, query,
		svc.ID, svc.Name, svc.SKU, svc.Category, svc.Description, svc.Rate, svc.Unit, svc.Active, svc.CreatedAt, svc.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a service with this SKU already exists")
		}
		return fmt.Errorf("failed to insert service: %w", err)
	}
	return nil
}

// GetByID retrieves a catalog service by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	query := `
		SELECT id, name, sku, category, description, rate, unit, active, created_at, updated_at
		FROM services WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.SKU, &s.Category, &s.Description, &s.Rate, &s.Unit, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(serviceNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

// List retrieves catalog services with filtering and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM services
		WHERE ($1::text IS NULL OR name ILIKE $1 OR sku ILIKE $1)
			AND ($2::bool = false OR active = true)
	`
	args := []interface{}{searchParam, params.ActiveOnly}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count services: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT id, name, sku, category, description, rate, unit, active, created_at, updated_at
		` + baseQuery + `
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, selectQuery, append(args, params.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var items []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.SKU, &s.Category, &s.Description, &s.Rate, &s.Unit, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update persists changes to a catalog service.
func (r *Repo) Update(ctx context.Context, svc *Service) error {
	query := `
		UPDATE services
		SET name = $2, sku = $3, category = $4, description = $5, rate = $6, unit = $7, active = $8, updated_at = $9
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		svc.ID, svc.Name, svc.SKU, svc.Category, svc.Description, svc.Rate, svc.Unit, svc.Active, svc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a service with this SKU already exists")
		}
		return fmt.Errorf("failed to update service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMsg)
	}
	return nil
}

// IsReferenced reports whether any quote or invoice line item uses the service.
func (r *Repo) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	query := `
		SELECT EXISTS (SELECT 1 FROM quote_items WHERE service_id = $1)
			OR EXISTS (SELECT 1 FROM invoice_items WHERE service_id = $1)`

	if err := r.pool.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("failed to check service references: %w", err)
	}
	return referenced, nil
}

// Delete hard-deletes an unreferenced catalog service.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// Lost the race with a concurrent item insert.
			return apperr.Conflict("service is referenced by line items")
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMsg)
	}
	return nil
}

// Archive marks a catalog service inactive.
func (r *Repo) Archive(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `UPDATE services SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMsg)
	}
	return nil
}
