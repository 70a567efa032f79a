package adapters

import (
	"context"

	clientsvc "deskhub_backend/internal/clients/service"
	quotesvc "deskhub_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// QuotesClientReader adapts the clients service for the quotes domain, which
// only needs a name and an email for proposal sending and portal matching.
type QuotesClientReader struct {
	clients *clientsvc.Service
}

// NewQuotesClientReader creates a new client reader adapter.
func NewQuotesClientReader(clients *clientsvc.Service) *QuotesClientReader {
	return &QuotesClientReader{clients: clients}
}

// GetClient resolves the client owning a quote.
func (a *QuotesClientReader) GetClient(ctx context.Context, id uuid.UUID) (*quotesvc.ClientRef, error) {
	client, err := a.clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &quotesvc.ClientRef{
		ID:    client.ID,
		Name:  client.Name,
		Email: client.Email,
	}, nil
}

// Compile-time check that QuotesClientReader implements quotes/service.ClientReader.
var _ quotesvc.ClientReader = (*QuotesClientReader)(nil)
