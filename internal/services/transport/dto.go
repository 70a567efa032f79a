package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateServiceRequest is the request body for adding a catalog service.
type CreateServiceRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	SKU         string          `json:"sku" validate:"required,min=1,max=64"`
	Category    *string         `json:"category" validate:"omitempty,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Rate        decimal.Decimal `json:"rate"`
	Unit        *string         `json:"unit" validate:"omitempty,max=32"`
}

// UpdateServiceRequest is the request body for editing a catalog service.
type UpdateServiceRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	SKU         *string          `json:"sku" validate:"omitempty,min=1,max=64"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Rate        *decimal.Decimal `json:"rate"`
	Unit        *string          `json:"unit" validate:"omitempty,max=32"`
	Active      *bool            `json:"active"`
}

// ListServicesRequest defines the query parameters for listing the catalog.
type ListServicesRequest struct {
	Search     string `form:"search"`
	ActiveOnly bool   `form:"activeOnly"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ServiceResponse is the response for a catalog service.
type ServiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	Unit        *string         `json:"unit,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ServiceListResponse is the paginated list response.
type ServiceListResponse struct {
	Items      []ServiceResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// DeleteServiceResponse reports whether the service was removed or archived.
type DeleteServiceResponse struct {
	Status string `json:"status"` // "deleted" or "archived"
}
