package adapters

import (
	"context"

	invoicesvc "deskhub_backend/internal/invoices/service"
	quotesvc "deskhub_backend/internal/quotes/service"
	servicesvc "deskhub_backend/internal/services/service"
	"deskhub_backend/internal/services/transport"
	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
)

// QuotesCatalogReader adapts the service catalog for the quotes domain. A
// missing service surfaces as a validation error so a bad line item in a
// request body reads as a 400, not a 404 on the quote itself.
type QuotesCatalogReader struct {
	catalog *servicesvc.Service
}

// NewQuotesCatalogReader creates a new catalog reader adapter for quotes.
func NewQuotesCatalogReader(catalog *servicesvc.Service) *QuotesCatalogReader {
	return &QuotesCatalogReader{catalog: catalog}
}

// GetService resolves a catalog service for a quote line item.
func (a *QuotesCatalogReader) GetService(ctx context.Context, id uuid.UUID) (*quotesvc.CatalogService, error) {
	svc, err := lookupCatalogService(ctx, a.catalog, id)
	if err != nil {
		return nil, err
	}
	return &quotesvc.CatalogService{
		ID:     svc.ID,
		Name:   svc.Name,
		Rate:   svc.Rate,
		Active: svc.Active,
	}, nil
}

// InvoicesCatalogReader adapts the service catalog for the invoices domain.
type InvoicesCatalogReader struct {
	catalog *servicesvc.Service
}

// NewInvoicesCatalogReader creates a new catalog reader adapter for invoices.
func NewInvoicesCatalogReader(catalog *servicesvc.Service) *InvoicesCatalogReader {
	return &InvoicesCatalogReader{catalog: catalog}
}

// GetService resolves a catalog service for an invoice line item.
func (a *InvoicesCatalogReader) GetService(ctx context.Context, id uuid.UUID) (*invoicesvc.CatalogService, error) {
	svc, err := lookupCatalogService(ctx, a.catalog, id)
	if err != nil {
		return nil, err
	}
	return &invoicesvc.CatalogService{
		ID:     svc.ID,
		Name:   svc.Name,
		Rate:   svc.Rate,
		Active: svc.Active,
	}, nil
}

func lookupCatalogService(ctx context.Context, catalog *servicesvc.Service, id uuid.UUID) (*transport.ServiceResponse, error) {
	svc, err := catalog.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Validation("unknown service: " + id.String())
		}
		return nil, err
	}
	return svc, nil
}

// Compile-time checks that the adapters satisfy both catalog ports.
var (
	_ quotesvc.CatalogReader   = (*QuotesCatalogReader)(nil)
	_ invoicesvc.CatalogReader = (*InvoicesCatalogReader)(nil)
)
