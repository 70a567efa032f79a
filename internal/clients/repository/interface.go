package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Client is the database model for a customer record.
type Client struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Phone      *string   `db:"phone"`
	Company    *string   `db:"company"`
	WhatsAppID *string   `db:"whatsapp_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// ListParams contains parameters for listing clients.
type ListParams struct {
	Search   string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing clients.
type ListResult struct {
	Items      []Client
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for clients.
type Repository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetByEmail(ctx context.Context, email string) (*Client, error)
	GetByWhatsAppID(ctx context.Context, whatsappID string) (*Client, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, client *Client) error

	// Delete fails with a conflict while tickets, quotes, or invoices still
	// reference the client.
	Delete(ctx context.Context, id uuid.UUID) error
}
