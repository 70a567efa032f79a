package webhook

import (
	"context"

	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/sanitize"

	"github.com/google/uuid"
)

// ClientResolver matches an inbound sender to a client record, creating
// one when no match exists. Implemented by an adapter over the clients module.
type ClientResolver interface {
	FindOrCreateByEmail(ctx context.Context, email, name string) (uuid.UUID, error)
	FindOrCreateByWhatsApp(ctx context.Context, whatsappID, name string) (uuid.UUID, error)
}

// TicketIntake routes an inbound client message into the ticket pipeline:
// append to the newest open ticket on the channel or open a new one.
// Implemented by an adapter over the tickets module.
type TicketIntake interface {
	IngestClientMessage(ctx context.Context, clientID uuid.UUID, channel, subject, content string) (ticketID uuid.UUID, created bool, err error)
}

// IntakeResult describes what an inbound submission produced.
type IntakeResult struct {
	TicketID      uuid.UUID
	ClientID      uuid.UUID
	TicketCreated bool
}

// Service processes inbound form and chat submissions.
type Service struct {
	resolver ClientResolver
	intake   TicketIntake
	log      *logger.Logger
}

// NewService creates a new webhook service.
func NewService(resolver ClientResolver, intake TicketIntake, log *logger.Logger) *Service {
	return &Service{resolver: resolver, intake: intake, log: log}
}

// ProcessFormSubmission turns a website form POST into a FORM ticket.
func (s *Service) ProcessFormSubmission(ctx context.Context, email, name, subject, message string) (*IntakeResult, error) {
	return s.ingest(ctx, "FORM", email, name, subject, message)
}

// ProcessChatMessage turns a chat widget message into a CHAT ticket, or
// appends it to the visitor's open chat thread.
func (s *Service) ProcessChatMessage(ctx context.Context, email, name, message string) (*IntakeResult, error) {
	return s.ingest(ctx, "CHAT", email, name, "", message)
}

// ProcessWhatsAppMessage files an inbound WhatsApp gateway message as a
// WHATSAPP ticket, or appends it to the sender's open WhatsApp thread.
func (s *Service) ProcessWhatsAppMessage(ctx context.Context, phone, name, message string) (*IntakeResult, error) {
	clientID, err := s.resolver.FindOrCreateByWhatsApp(ctx, phone, name)
	if err != nil {
		return nil, err
	}
	return s.route(ctx, "WHATSAPP", clientID, "", message)
}

func (s *Service) ingest(ctx context.Context, channel, email, name, subject, message string) (*IntakeResult, error) {
	clientID, err := s.resolver.FindOrCreateByEmail(ctx, email, name)
	if err != nil {
		return nil, err
	}
	return s.route(ctx, channel, clientID, subject, message)
}

func (s *Service) route(ctx context.Context, channel string, clientID uuid.UUID, subject, message string) (*IntakeResult, error) {
	// Webhook bodies are unauthenticated user input; store text only.
	ticketID, created, err := s.intake.IngestClientMessage(ctx, clientID, channel, sanitize.Text(subject), sanitize.Text(message))
	if err != nil {
		return nil, err
	}

	s.log.Info("webhook intake processed",
		"channel", channel,
		"ticketId", ticketID,
		"clientId", clientID,
		"ticketCreated", created,
	)

	return &IntakeResult{TicketID: ticketID, ClientID: clientID, TicketCreated: created}, nil
}
