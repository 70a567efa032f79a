package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// InvoiceItemRequest is the input for a single line item.
type InvoiceItemRequest struct {
	ServiceID         uuid.UUID        `json:"serviceId" validate:"required"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Rate              *decimal.Decimal `json:"rate"`
	CustomDescription *string          `json:"customDescription" validate:"omitempty,max=500"`
	SortOrder         int              `json:"sortOrder" validate:"min=0"`
}

// CreateInvoiceRequest is the request body for creating an invoice directly.
type CreateInvoiceRequest struct {
	ClientID     uuid.UUID            `json:"clientId" validate:"required"`
	TaxRate      decimal.Decimal      `json:"taxRate"`
	DiscountRate decimal.Decimal      `json:"discountRate"`
	DueDate      *time.Time           `json:"dueDate"`
	Notes        *string              `json:"notes" validate:"omitempty,max=2000"`
	Terms        *string              `json:"terms" validate:"omitempty,max=2000"`
	Items        []InvoiceItemRequest `json:"items" validate:"omitempty,dive"`
}

// UpdateInvoiceStatusRequest is the request body for a status change.
// PaidDate is honored only when moving into PAID; omitted means now.
type UpdateInvoiceStatusRequest struct {
	Status   string     `json:"status" validate:"required,oneof=PENDING SENT PAID OVERDUE"`
	PaidDate *time.Time `json:"paidDate"`
}

// ListInvoicesRequest defines the query parameters for listing invoices.
type ListInvoicesRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status" validate:"omitempty,oneof=PENDING SENT PAID OVERDUE"`
	ClientID  string `form:"clientId" validate:"omitempty,uuid"`
	AgentID   string `form:"agentId" validate:"omitempty,uuid"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=number status total dueDate createdAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// InvoiceItemResponse is the response for a single line item.
type InvoiceItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ServiceID         uuid.UUID       `json:"serviceId"`
	Quantity          decimal.Decimal `json:"quantity"`
	Rate              decimal.Decimal `json:"rate"`
	LineTotal         decimal.Decimal `json:"lineTotal"`
	CustomDescription *string         `json:"customDescription,omitempty"`
	SortOrder         int             `json:"sortOrder"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// BillResponse describes the external billing record of an invoice.
type BillResponse struct {
	ID          uuid.UUID `json:"id"`
	ExternalRef string    `json:"externalRef"`
	Vendor      string    `json:"vendor"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InvoiceResponse is the response for an invoice.
type InvoiceResponse struct {
	ID             uuid.UUID             `json:"id"`
	Number         string                `json:"number"`
	ClientID       uuid.UUID             `json:"clientId"`
	AgentID        *uuid.UUID            `json:"agentId,omitempty"`
	QuoteID        *uuid.UUID            `json:"quoteId,omitempty"`
	Status         string                `json:"status"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TaxRate        decimal.Decimal       `json:"taxRate"`
	TaxAmount      decimal.Decimal       `json:"taxAmount"`
	DiscountRate   decimal.Decimal       `json:"discountRate"`
	DiscountAmount decimal.Decimal       `json:"discountAmount"`
	Total          decimal.Decimal       `json:"total"`
	Notes          *string               `json:"notes,omitempty"`
	Terms          *string               `json:"terms,omitempty"`
	DueDate        *time.Time            `json:"dueDate,omitempty"`
	PaidDate       *time.Time            `json:"paidDate,omitempty"`
	Items          []InvoiceItemResponse `json:"items,omitempty"`
	Bill           *BillResponse         `json:"bill,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// InvoiceListResponse is the paginated list response.
type InvoiceListResponse struct {
	Items      []InvoiceResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
