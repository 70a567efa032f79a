package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateTicketRequest is the request body for opening a ticket.
type CreateTicketRequest struct {
	Subject  string     `json:"subject" validate:"required,min=1,max=300"`
	ClientID uuid.UUID  `json:"clientId" validate:"required"`
	AgentID  *uuid.UUID `json:"agentId"`
	Channel  string     `json:"channel" validate:"required,oneof=WHATSAPP EMAIL FORM CHAT"`
	Priority string     `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	// Message optionally seeds the thread with the client's first message.
	Message *string `json:"message" validate:"omitempty,min=1"`
}

// UpdateTicketRequest is the request body for editing a ticket. The channel
// is fixed at creation and cannot change.
type UpdateTicketRequest struct {
	Subject  *string    `json:"subject" validate:"omitempty,min=1,max=300"`
	AgentID  *uuid.UUID `json:"agentId"`
	Status   *string    `json:"status" validate:"omitempty,oneof=OPEN PENDING RESOLVED CLOSED"`
	Priority *string    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

// PostMessageRequest is the request body for an agent reply.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// MarkReadRequest optionally restricts a bulk read mark to specific messages.
type MarkReadRequest struct {
	MessageIDs []uuid.UUID `json:"messageIds"`
}

// ListTicketsRequest defines the query parameters for listing tickets.
type ListTicketsRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status" validate:"omitempty,oneof=OPEN PENDING RESOLVED CLOSED"`
	Channel   string `form:"channel" validate:"omitempty,oneof=WHATSAPP EMAIL FORM CHAT"`
	Priority  string `form:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AgentID   string `form:"agentId" validate:"omitempty,uuid"`
	ClientID  string `form:"clientId" validate:"omitempty,uuid"`
	Unread    *bool  `form:"unread"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt priority"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PresignAttachmentRequest asks for a presigned upload slot.
type PresignAttachmentRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// PresignAttachmentResponse carries the upload URL and the storage key the
// client must echo back when recording the attachment.
type PresignAttachmentResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RecordAttachmentRequest records a completed upload against the ticket.
type RecordAttachmentRequest struct {
	FileKey     string `json:"fileKey" validate:"required"`
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// MessageResponse is one thread entry.
type MessageResponse struct {
	ID         uuid.UUID  `json:"id"`
	TicketID   uuid.UUID  `json:"ticketId"`
	SenderType string     `json:"senderType"`
	SenderID   *uuid.UUID `json:"senderId,omitempty"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	Read       bool       `json:"read"`
}

// AttachmentResponse is a stored file reference.
type AttachmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	TicketID    uuid.UUID  `json:"ticketId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	UploadedBy  *uuid.UUID `json:"uploadedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DownloadURLResponse carries a short-lived download link.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TicketResponse is the response for a ticket, optionally with its thread.
type TicketResponse struct {
	ID          uuid.UUID            `json:"id"`
	Subject     string               `json:"subject"`
	ClientID    uuid.UUID            `json:"clientId"`
	AgentID     *uuid.UUID           `json:"agentId,omitempty"`
	Channel     string               `json:"channel"`
	Status      string               `json:"status"`
	Priority    string               `json:"priority"`
	Unread      bool                 `json:"unread"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Messages    []MessageResponse    `json:"messages,omitempty"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
}

// TicketListResponse is the paginated list response.
type TicketListResponse struct {
	Items      []TicketResponse `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// MarkReadResponse reports the thread state after a bulk read mark.
type MarkReadResponse struct {
	RemainingUnread int  `json:"remainingUnread"`
	TicketUnread    bool `json:"ticketUnread"`
}
