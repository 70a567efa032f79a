package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateClientRequest is the request body for registering a client.
type CreateClientRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=200"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Company    *string `json:"company" validate:"omitempty,max=200"`
	WhatsAppID *string `json:"whatsappId" validate:"omitempty,max=32"`
}

// UpdateClientRequest is the request body for editing a client.
type UpdateClientRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Company    *string `json:"company" validate:"omitempty,max=200"`
	WhatsAppID *string `json:"whatsappId" validate:"omitempty,max=32"`
}

// ListClientsRequest defines the query parameters for listing clients.
type ListClientsRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ClientResponse is the response for a client record.
type ClientResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	Company    *string   `json:"company,omitempty"`
	WhatsAppID *string   `json:"whatsappId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ClientListResponse is the paginated list response.
type ClientListResponse struct {
	Items      []ClientResponse `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}
