package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel is the medium a ticket arrived on. It is fixed at creation.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
	ChannelForm     Channel = "FORM"
	ChannelChat     Channel = "CHAT"
)

// Status is a ticket's lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
	StatusClosed   Status = "CLOSED"
)

// Priority is a ticket's urgency level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// SenderType distinguishes who wrote a message.
type SenderType string

const (
	SenderClient SenderType = "CLIENT"
	SenderAgent  SenderType = "AGENT"
)

// Ticket is the database model for a support ticket.
type Ticket struct {
	ID        uuid.UUID  `db:"id"`
	Subject   string     `db:"subject"`
	ClientID  uuid.UUID  `db:"client_id"`
	AgentID   *uuid.UUID `db:"agent_id"`
	Channel   Channel    `db:"channel"`
	Status    Status     `db:"status"`
	Priority  Priority   `db:"priority"`
	Unread    bool       `db:"unread"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Message is one entry in a ticket's thread.
type Message struct {
	ID         uuid.UUID  `db:"id"`
	TicketID   uuid.UUID  `db:"ticket_id"`
	SenderType SenderType `db:"sender_type"`
	SenderID   *uuid.UUID `db:"sender_id"`
	Content    string     `db:"content"`
	Timestamp  time.Time  `db:"timestamp"`
	Read       bool       `db:"read"`
}

// Attachment is a file stored in object storage and linked to a ticket.
type Attachment struct {
	ID          uuid.UUID  `db:"id"`
	TicketID    uuid.UUID  `db:"ticket_id"`
	FileKey     string     `db:"file_key"`
	FileName    string     `db:"file_name"`
	ContentType string     `db:"content_type"`
	SizeBytes   int64      `db:"size_bytes"`
	UploadedBy  *uuid.UUID `db:"uploaded_by"`
	CreatedAt   time.Time  `db:"created_at"`
}

// ListParams contains filter, sort, and pagination parameters for tickets.
type ListParams struct {
	Search    string
	Status    *Status
	Channel   *Channel
	Priority  *Priority
	AgentID   *uuid.UUID
	ClientID  *uuid.UUID
	Unread    *bool
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// ListResult contains the paginated result of listing tickets.
type ListResult struct {
	Items      []Ticket
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for tickets and their threads.
type Repository interface {
	// CreateTicket inserts the ticket and, when initial is non-nil, its
	// first message in the same transaction.
	CreateTicket(ctx context.Context, ticket *Ticket, initial *Message) error
	GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateTicket(ctx context.Context, ticket *Ticket) error

	// NewestOpenByClientChannel returns the most recently updated ticket of
	// the client on the channel that is still OPEN or PENDING.
	NewestOpenByClientChannel(ctx context.Context, clientID uuid.UUID, channel Channel) (*Ticket, error)

	// AddMessage inserts the message and applies the ticket's unread flag
	// and updated_at in the same transaction.
	AddMessage(ctx context.Context, ticket *Ticket, msg *Message) error
	MessagesByTicketID(ctx context.Context, ticketID uuid.UUID) ([]Message, error)

	// MarkClientMessagesRead marks the given CLIENT messages read (all of
	// the ticket's CLIENT messages when ids is empty) and flips the
	// ticket's unread flag off only when no unread CLIENT message remains.
	// It returns the number of unread CLIENT messages left.
	MarkClientMessagesRead(ctx context.Context, ticketID uuid.UUID, ids []uuid.UUID) (int, error)

	CreateAttachment(ctx context.Context, attachment *Attachment) error
	AttachmentsByTicketID(ctx context.Context, ticketID uuid.UUID) ([]Attachment, error)
	GetAttachment(ctx context.Context, ticketID, attachmentID uuid.UUID) (*Attachment, error)
}
