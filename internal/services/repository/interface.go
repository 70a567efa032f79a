package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the database model for a catalog service.
type Service struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	SKU         string          `db:"sku"`
	Category    *string         `db:"category"`
	Description *string         `db:"description"`
	Rate        decimal.Decimal `db:"rate"`
	Unit        *string         `db:"unit"`
	Active      bool            `db:"active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ListParams contains parameters for listing catalog services.
type ListParams struct {
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// ListResult contains the paginated result of listing catalog services.
type ListResult struct {
	Items      []Service
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for the service catalog.
type Repository interface {
	Create(ctx context.Context, svc *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, svc *Service) error

	// IsReferenced reports whether any quote or invoice line item uses the
	// service, which turns delete into archive.
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) error
}
