// Package notification provides event handlers for outbound side effects
// (emails, WhatsApp messages, Trello cards, Zoho sync) in response to
// domain events. This module subscribes to events and inverts the
// dependency: domain modules never know about providers or templates.
//
// Every handler is best-effort. The bus dispatches asynchronously and
// logs handler errors, so a failed send can never fail the request that
// published the event.
package notification

import (
	"context"
	"fmt"

	clienttransport "deskhub_backend/internal/clients/transport"
	"deskhub_backend/internal/email"
	"deskhub_backend/internal/events"
	invoicetransport "deskhub_backend/internal/invoices/transport"
	tickettransport "deskhub_backend/internal/tickets/transport"
	"deskhub_backend/internal/zoho"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
)

// ClientReader looks up client records for outbound contact details.
type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clienttransport.ClientResponse, error)
}

// TicketReader looks up tickets for subject lines.
type TicketReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tickettransport.TicketResponse, error)
}

// InvoiceReader looks up invoices and records external billing refs after
// a successful Books push.
type InvoiceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*invoicetransport.InvoiceResponse, error)
	RecordBill(ctx context.Context, invoiceID uuid.UUID, externalRef, vendor string) error
}

// WhatsAppSender sends WhatsApp text messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// BoardClient mirrors tickets onto a kanban board.
type BoardClient interface {
	ListIDForStatus(status string) string
	CreateCard(ctx context.Context, listID, name, description string) (string, error)
	MoveCard(ctx context.Context, cardID, listID string) error
}

// CardMapper persists the ticket-to-card mapping.
type CardMapper interface {
	Save(ctx context.Context, ticketID uuid.UUID, cardID string) error
	CardID(ctx context.Context, ticketID uuid.UUID) (string, error)
}

// CRMSyncer pushes contacts and paid invoices to the external CRM/Books.
type CRMSyncer interface {
	SyncContact(ctx context.Context, contact zoho.Contact) error
	SyncInvoice(ctx context.Context, invoice zoho.Invoice) (string, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender   email.Sender
	whatsapp WhatsAppSender
	board    BoardClient
	cards    CardMapper
	crm      CRMSyncer
	clients  ClientReader
	tickets  TicketReader
	invoices InvoiceReader
	log      *logger.Logger
}

// NewModule creates the notification module. whatsapp, board, cards and crm
// may be nil when the corresponding integration is not configured.
func NewModule(
	sender email.Sender,
	whatsapp WhatsAppSender,
	board BoardClient,
	cards CardMapper,
	crm CRMSyncer,
	clients ClientReader,
	tickets TicketReader,
	invoices InvoiceReader,
	log *logger.Logger,
) *Module {
	return &Module{
		sender:   sender,
		whatsapp: whatsapp,
		board:    board,
		cards:    cards,
		crm:      crm,
		clients:  clients,
		tickets:  tickets,
		invoices: invoices,
		log:      log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.TicketCreated{}.EventName(), m)
	bus.Subscribe(events.TicketStatusChanged{}.EventName(), m)
	bus.Subscribe(events.AgentReplied{}.EventName(), m)
	bus.Subscribe(events.QuoteStatusChanged{}.EventName(), m)
	bus.Subscribe(events.InvoiceStatusChanged{}.EventName(), m)
	bus.Subscribe(events.ClientUpserted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TicketCreated:
		return m.handleTicketCreated(ctx, e)
	case events.TicketStatusChanged:
		return m.handleTicketStatusChanged(ctx, e)
	case events.AgentReplied:
		return m.handleAgentReplied(ctx, e)
	case events.QuoteStatusChanged:
		return m.handleQuoteStatusChanged(ctx, e)
	case events.InvoiceStatusChanged:
		return m.handleInvoiceStatusChanged(ctx, e)
	case events.ClientUpserted:
		return m.handleClientUpserted(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleTicketCreated(ctx context.Context, e events.TicketCreated) error {
	if m.board == nil || m.cards == nil {
		return nil
	}

	listID := m.board.ListIDForStatus("OPEN")
	if listID == "" {
		return nil
	}

	name := fmt.Sprintf("[%s] %s", e.Channel, e.Subject)
	cardID, err := m.board.CreateCard(ctx, listID, name, "Ticket "+e.TicketID.String())
	if err != nil {
		return fmt.Errorf("create board card: %w", err)
	}
	if cardID == "" {
		return nil
	}

	if err := m.cards.Save(ctx, e.TicketID, cardID); err != nil {
		return fmt.Errorf("save board card mapping: %w", err)
	}
	return nil
}

func (m *Module) handleTicketStatusChanged(ctx context.Context, e events.TicketStatusChanged) error {
	if m.board == nil || m.cards == nil {
		return nil
	}

	listID := m.board.ListIDForStatus(e.NewStatus)
	if listID == "" {
		return nil
	}

	cardID, err := m.cards.CardID(ctx, e.TicketID)
	if err != nil {
		return fmt.Errorf("lookup board card: %w", err)
	}
	if cardID == "" {
		return nil
	}

	if err := m.board.MoveCard(ctx, cardID, listID); err != nil {
		return fmt.Errorf("move board card: %w", err)
	}
	return nil
}

// handleAgentReplied relays an agent's reply back out over the channel the
// client wrote in on. FORM and CHAT clients read replies in the thread
// itself, so only WHATSAPP and EMAIL need outbound delivery.
func (m *Module) handleAgentReplied(ctx context.Context, e events.AgentReplied) error {
	switch e.Channel {
	case "WHATSAPP":
		if m.whatsapp == nil {
			return nil
		}
		client, err := m.clients.GetByID(ctx, e.ClientID)
		if err != nil {
			return fmt.Errorf("lookup client for whatsapp reply: %w", err)
		}
		to := ""
		if client.WhatsAppID != nil {
			to = *client.WhatsAppID
		} else if client.Phone != nil {
			to = *client.Phone
		}
		if to == "" {
			m.log.Warn("whatsapp reply skipped, client has no number", "clientId", e.ClientID)
			return nil
		}
		return m.whatsapp.SendMessage(ctx, to, e.Content)

	case "EMAIL":
		client, err := m.clients.GetByID(ctx, e.ClientID)
		if err != nil {
			return fmt.Errorf("lookup client for email reply: %w", err)
		}
		ticket, err := m.tickets.GetByID(ctx, e.TicketID)
		if err != nil {
			return fmt.Errorf("lookup ticket for email reply: %w", err)
		}
		return m.sender.SendTicketReplyEmail(ctx, client.Email, client.Name, ticket.Subject, e.Content)

	default:
		return nil
	}
}

func (m *Module) handleQuoteStatusChanged(ctx context.Context, e events.QuoteStatusChanged) error {
	// The proposal email on SENT is sent by the quotes module itself; here
	// we only confirm the customer's decision.
	if e.NewStatus != "ACCEPTED" {
		return nil
	}

	client, err := m.clients.GetByID(ctx, e.ClientID)
	if err != nil {
		return fmt.Errorf("lookup client for quote confirmation: %w", err)
	}

	subject := fmt.Sprintf("Quote %s accepted", e.QuoteNumber)
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Thank you for accepting quote <strong>%s</strong>. We will send you the invoice shortly.</p>",
		client.Name, e.QuoteNumber,
	)
	return m.sender.SendCustomEmail(ctx, client.Email, subject, body)
}

func (m *Module) handleInvoiceStatusChanged(ctx context.Context, e events.InvoiceStatusChanged) error {
	if e.NewStatus != "PAID" {
		return nil
	}

	invoice, err := m.invoices.GetByID(ctx, e.InvoiceID)
	if err != nil {
		return fmt.Errorf("lookup invoice: %w", err)
	}
	client, err := m.clients.GetByID(ctx, e.ClientID)
	if err != nil {
		return fmt.Errorf("lookup client for receipt: %w", err)
	}

	if err := m.sender.SendInvoiceReceiptEmail(ctx, client.Email, client.Name, invoice.Number, invoice.Total.StringFixed(2)); err != nil {
		m.log.Warn("invoice receipt email failed", "invoiceId", e.InvoiceID, "error", err)
	}

	if m.crm == nil {
		return nil
	}
	if invoice.Bill != nil {
		return nil // already pushed
	}

	booksID, err := m.crm.SyncInvoice(ctx, buildBooksInvoice(invoice, client))
	if err != nil {
		return fmt.Errorf("push invoice to books: %w", err)
	}
	if booksID == "" {
		return nil
	}

	if err := m.invoices.RecordBill(ctx, e.InvoiceID, booksID, "zoho-books"); err != nil {
		return fmt.Errorf("record bill ref: %w", err)
	}
	return nil
}

func (m *Module) handleClientUpserted(ctx context.Context, e events.ClientUpserted) error {
	if m.crm == nil {
		return nil
	}

	client, err := m.clients.GetByID(ctx, e.ClientID)
	if err != nil {
		return fmt.Errorf("lookup client for crm sync: %w", err)
	}

	contact := zoho.Contact{
		Name:  client.Name,
		Email: client.Email,
	}
	if client.Phone != nil {
		contact.Phone = *client.Phone
	}
	if client.Company != nil {
		contact.Company = *client.Company
	}
	return m.crm.SyncContact(ctx, contact)
}

func buildBooksInvoice(invoice *invoicetransport.InvoiceResponse, client *clienttransport.ClientResponse) zoho.Invoice {
	out := zoho.Invoice{
		Number:      invoice.Number,
		ClientName:  client.Name,
		ClientEmail: client.Email,
		Total:       invoice.Total.StringFixed(2),
	}
	if invoice.PaidDate != nil {
		out.PaidDate = invoice.PaidDate.Format("2006-01-02")
	}
	for _, item := range invoice.Items {
		description := "Service " + item.ServiceID.String()
		if item.CustomDescription != nil && *item.CustomDescription != "" {
			description = *item.CustomDescription
		}
		out.Lines = append(out.Lines, zoho.InvoiceLine{
			Description: description,
			Quantity:    item.Quantity.String(),
			Rate:        item.Rate.StringFixed(2),
		})
	}
	return out
}
