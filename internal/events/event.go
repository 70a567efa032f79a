// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"deskhub_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Ticket Domain Events
// =============================================================================

// TicketCreated is published when a ticket is opened on any channel.
type TicketCreated struct {
	BaseEvent
	TicketID uuid.UUID `json:"ticketId"`
	ClientID uuid.UUID `json:"clientId"`
	Channel  string    `json:"channel"`
	Subject  string    `json:"subject"`
	Priority string    `json:"priority"`
}

func (e TicketCreated) EventName() string { return "tickets.created" }

// TicketStatusChanged is published when a ticket moves between statuses.
type TicketStatusChanged struct {
	BaseEvent
	TicketID  uuid.UUID `json:"ticketId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e TicketStatusChanged) EventName() string { return "tickets.status_changed" }

// AgentReplied is published when an agent posts a message on a ticket.
type AgentReplied struct {
	BaseEvent
	TicketID  uuid.UUID `json:"ticketId"`
	MessageID uuid.UUID `json:"messageId"`
	AgentID   uuid.UUID `json:"agentId"`
	ClientID  uuid.UUID `json:"clientId"`
	Channel   string    `json:"channel"`
	Content   string    `json:"content"`
}

func (e AgentReplied) EventName() string { return "tickets.agent_replied" }

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteStatusChanged is published after every successful quote transition.
type QuoteStatusChanged struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	QuoteNumber string    `json:"quoteNumber"`
	ClientID    uuid.UUID `json:"clientId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
}

func (e QuoteStatusChanged) EventName() string { return "quotes.status_changed" }

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoiceStatusChanged is published after an invoice status update.
type InvoiceStatusChanged struct {
	BaseEvent
	InvoiceID     uuid.UUID `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	ClientID      uuid.UUID `json:"clientId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
}

func (e InvoiceStatusChanged) EventName() string { return "invoices.status_changed" }

// =============================================================================
// Client Domain Events
// =============================================================================

// ClientUpserted is published when a client is created or updated,
// so the CRM sync handler can mirror the record.
type ClientUpserted struct {
	BaseEvent
	ClientID uuid.UUID `json:"clientId"`
}

func (e ClientUpserted) EventName() string { return "clients.upserted" }
