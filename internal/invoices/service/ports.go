package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService is the slice of the service catalog the invoices module needs.
type CatalogService struct {
	ID     uuid.UUID
	Name   string
	Rate   decimal.Decimal
	Active bool
}

// CatalogReader resolves catalog services for line items.
type CatalogReader interface {
	GetService(ctx context.Context, id uuid.UUID) (*CatalogService, error)
}

// FromQuoteParams carries the quote data for a conversion. The quotes module
// builds it; the adapter in internal/adapters translates between the two.
type FromQuoteParams struct {
	QuoteID      uuid.UUID
	QuoteNumber  string
	ClientID     uuid.UUID
	AgentID      *uuid.UUID
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Notes        *string
	Terms        *string
	DueDate      *time.Time
	Items        []FromQuoteItem
}

// FromQuoteItem is one line item carried over from a quote.
type FromQuoteItem struct {
	ServiceID         uuid.UUID
	Quantity          decimal.Decimal
	Rate              decimal.Decimal
	CustomDescription *string
	SortOrder         int
}
