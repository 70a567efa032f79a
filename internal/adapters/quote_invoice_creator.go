package adapters

import (
	"context"

	invoicesvc "deskhub_backend/internal/invoices/service"
	quotesvc "deskhub_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// QuoteInvoiceCreator adapts the invoices service for quote conversion. The
// quotes module never imports the invoices packages; this adapter translates
// between the two parameter shapes.
type QuoteInvoiceCreator struct {
	invoices *invoicesvc.Service
}

// NewQuoteInvoiceCreator creates a new conversion adapter.
func NewQuoteInvoiceCreator(invoices *invoicesvc.Service) *QuoteInvoiceCreator {
	return &QuoteInvoiceCreator{invoices: invoices}
}

// CreateFromQuote builds an invoice from the accepted quote's data.
func (a *QuoteInvoiceCreator) CreateFromQuote(ctx context.Context, params quotesvc.ConvertParams) (*quotesvc.InvoiceRef, error) {
	items := make([]invoicesvc.FromQuoteItem, 0, len(params.Items))
	for _, item := range params.Items {
		items = append(items, invoicesvc.FromQuoteItem{
			ServiceID:         item.ServiceID,
			Quantity:          item.Quantity,
			Rate:              item.Rate,
			CustomDescription: item.CustomDescription,
			SortOrder:         item.SortOrder,
		})
	}

	invoice, err := a.invoices.CreateFromQuote(ctx, invoicesvc.FromQuoteParams{
		QuoteID:      params.QuoteID,
		QuoteNumber:  params.QuoteNumber,
		ClientID:     params.ClientID,
		AgentID:      params.AgentID,
		TaxRate:      params.TaxRate,
		DiscountRate: params.DiscountRate,
		Notes:        params.Notes,
		Terms:        params.Terms,
		DueDate:      params.DueDate,
		Items:        items,
	})
	if err != nil {
		return nil, err
	}

	return &quotesvc.InvoiceRef{ID: invoice.ID, Number: invoice.Number}, nil
}

// ExistsForQuote reports whether the quote was already converted.
func (a *QuoteInvoiceCreator) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	return a.invoices.ExistsForQuote(ctx, quoteID)
}

// Compile-time check that QuoteInvoiceCreator implements quotes/service.InvoiceCreator.
var _ quotesvc.InvoiceCreator = (*QuoteInvoiceCreator)(nil)
