package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService is the slice of the service catalog the quotes module needs.
type CatalogService struct {
	ID     uuid.UUID
	Name   string
	Rate   decimal.Decimal
	Active bool
}

// CatalogReader resolves catalog services for line items.
// Implemented by an adapter in internal/adapters wrapping the services module.
type CatalogReader interface {
	GetService(ctx context.Context, id uuid.UUID) (*CatalogService, error)
}

// ClientRef is the slice of a client record the quotes module needs.
type ClientRef struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// ClientReader resolves clients for sending and portal access checks.
type ClientReader interface {
	GetClient(ctx context.Context, id uuid.UUID) (*ClientRef, error)
}

// ProposalSender emails a quote proposal to the client. Best-effort: a
// failed send never rolls back the SENT transition.
type ProposalSender interface {
	SendQuoteProposal(ctx context.Context, to, clientName, quoteNumber string, total decimal.Decimal, validUntil *time.Time) error
}

// ConvertParams carries everything the invoicing side needs to build an
// invoice from an accepted quote.
type ConvertParams struct {
	QuoteID      uuid.UUID
	QuoteNumber  string
	ClientID     uuid.UUID
	AgentID      *uuid.UUID
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Notes        *string
	Terms        *string
	DueDate      *time.Time
	Items        []ConvertItem
}

// ConvertItem is one line item carried over during conversion.
type ConvertItem struct {
	ServiceID         uuid.UUID
	Quantity          decimal.Decimal
	Rate              decimal.Decimal
	CustomDescription *string
	SortOrder         int
}

// InvoiceRef identifies the invoice produced by a conversion.
type InvoiceRef struct {
	ID     uuid.UUID
	Number string
}

// InvoiceCreator converts an accepted quote into an invoice. The
// implementation enforces one invoice per quote at the database level, so
// concurrent conversions lose with a conflict.
type InvoiceCreator interface {
	CreateFromQuote(ctx context.Context, params ConvertParams) (*InvoiceRef, error)
	ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error)
}
