package adapters

import (
	"context"

	clientsvc "deskhub_backend/internal/clients/service"
	"deskhub_backend/internal/email"
	ticketrepo "deskhub_backend/internal/tickets/repository"
	ticketsvc "deskhub_backend/internal/tickets/service"
	"deskhub_backend/internal/webhook"

	"github.com/google/uuid"
)

// IntakeClientResolver adapts the clients service to the ClientResolver
// ports of the webhook and email modules.
type IntakeClientResolver struct {
	clients *clientsvc.Service
}

// NewIntakeClientResolver creates a resolver backed by the clients service.
func NewIntakeClientResolver(clients *clientsvc.Service) *IntakeClientResolver {
	return &IntakeClientResolver{clients: clients}
}

func (a *IntakeClientResolver) FindOrCreateByEmail(ctx context.Context, email, name string) (uuid.UUID, error) {
	client, err := a.clients.FindOrCreateByEmail(ctx, email, name)
	if err != nil {
		return uuid.UUID{}, err
	}
	return client.ID, nil
}

func (a *IntakeClientResolver) FindOrCreateByWhatsApp(ctx context.Context, whatsappID, name string) (uuid.UUID, error) {
	client, err := a.clients.FindOrCreateByWhatsApp(ctx, whatsappID, name)
	if err != nil {
		return uuid.UUID{}, err
	}
	return client.ID, nil
}

// IntakeTicketRouter adapts the tickets service to the TicketIntake ports
// of the webhook and email modules.
type IntakeTicketRouter struct {
	tickets *ticketsvc.Service
}

// NewIntakeTicketRouter creates a router backed by the tickets service.
func NewIntakeTicketRouter(tickets *ticketsvc.Service) *IntakeTicketRouter {
	return &IntakeTicketRouter{tickets: tickets}
}

func (a *IntakeTicketRouter) IngestClientMessage(ctx context.Context, clientID uuid.UUID, channel, subject, content string) (uuid.UUID, bool, error) {
	ticket, created, err := a.tickets.IngestClientMessage(ctx, clientID, ticketrepo.Channel(channel), subject, content)
	if err != nil {
		return uuid.UUID{}, false, err
	}
	return ticket.ID, created, nil
}

// Compile-time checks that the adapters satisfy both consumers' ports.
var (
	_ webhook.ClientResolver = (*IntakeClientResolver)(nil)
	_ email.ClientResolver   = (*IntakeClientResolver)(nil)
	_ webhook.TicketIntake   = (*IntakeTicketRouter)(nil)
	_ email.TicketIntake     = (*IntakeTicketRouter)(nil)
)
