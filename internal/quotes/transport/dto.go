package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// QuoteItemRequest is the input for a single line item.
type QuoteItemRequest struct {
	ServiceID         uuid.UUID       `json:"serviceId" validate:"required"`
	Quantity          decimal.Decimal `json:"quantity"`
	Rate              *decimal.Decimal `json:"rate"`
	CustomDescription *string         `json:"customDescription" validate:"omitempty,max=500"`
	SortOrder         int             `json:"sortOrder" validate:"min=0"`
}

// CreateQuoteRequest is the request body for creating a new quote.
type CreateQuoteRequest struct {
	ClientID     uuid.UUID          `json:"clientId" validate:"required"`
	TaxRate      decimal.Decimal    `json:"taxRate"`
	DiscountRate decimal.Decimal    `json:"discountRate"`
	ValidUntil   *time.Time         `json:"validUntil"`
	Notes        *string            `json:"notes" validate:"omitempty,max=2000"`
	Terms        *string            `json:"terms" validate:"omitempty,max=2000"`
	Items        []QuoteItemRequest `json:"items" validate:"omitempty,dive"`
}

// UpdateQuoteRequest is the request body for editing a quote header.
type UpdateQuoteRequest struct {
	TaxRate      *decimal.Decimal `json:"taxRate"`
	DiscountRate *decimal.Decimal `json:"discountRate"`
	ValidUntil   *time.Time       `json:"validUntil"`
	Notes        *string          `json:"notes" validate:"omitempty,max=2000"`
	Terms        *string          `json:"terms" validate:"omitempty,max=2000"`
}

// UpdateQuoteStatusRequest is the request body for a status transition.
type UpdateQuoteStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=DRAFT SENT PENDING ACCEPTED REJECTED EXPIRED"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// ConvertQuoteRequest is the optional body for converting a quote to an
// invoice. When agentId is omitted the invoice keeps the quote's agent.
type ConvertQuoteRequest struct {
	DueDate *time.Time `json:"dueDate"`
	AgentID *uuid.UUID `json:"agentId"`
}

// PortalDecisionRequest is the body for a customer accept/reject decision.
type PortalDecisionRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

// ListQuotesRequest defines the query parameters for listing quotes.
type ListQuotesRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status" validate:"omitempty,oneof=DRAFT SENT PENDING ACCEPTED REJECTED EXPIRED"`
	ClientID  string `form:"clientId" validate:"omitempty,uuid"`
	AgentID   string `form:"agentId" validate:"omitempty,uuid"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=number status total createdAt updatedAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// QuoteItemResponse is the response for a single line item.
type QuoteItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ServiceID         uuid.UUID       `json:"serviceId"`
	ServiceName       string          `json:"serviceName,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	Rate              decimal.Decimal `json:"rate"`
	LineTotal         decimal.Decimal `json:"lineTotal"`
	CustomDescription *string         `json:"customDescription,omitempty"`
	SortOrder         int             `json:"sortOrder"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// StatusLogResponse is one entry of a quote's status history.
type StatusLogResponse struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	ChangedBy *uuid.UUID `json:"changedBy,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// QuoteResponse is the response for a quote.
type QuoteResponse struct {
	ID             uuid.UUID           `json:"id"`
	Number         string              `json:"number"`
	ClientID       uuid.UUID           `json:"clientId"`
	AgentID        *uuid.UUID          `json:"agentId,omitempty"`
	Status         string              `json:"status"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	TaxRate        decimal.Decimal     `json:"taxRate"`
	TaxAmount      decimal.Decimal     `json:"taxAmount"`
	DiscountRate   decimal.Decimal     `json:"discountRate"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	Total          decimal.Decimal     `json:"total"`
	Notes          *string             `json:"notes,omitempty"`
	Terms          *string             `json:"terms,omitempty"`
	ValidUntil     *time.Time          `json:"validUntil,omitempty"`
	SentAt         *time.Time          `json:"sentAt,omitempty"`
	AcceptedAt     *time.Time          `json:"acceptedAt,omitempty"`
	ExpiredAt      *time.Time          `json:"expiredAt,omitempty"`
	Items          []QuoteItemResponse `json:"items,omitempty"`
	StatusLogs     []StatusLogResponse `json:"statusLogs,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// QuoteListResponse is the paginated list response.
type QuoteListResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// ConvertQuoteResponse is returned when a quote is converted to an invoice.
type ConvertQuoteResponse struct {
	InvoiceID     uuid.UUID `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber"`
}
