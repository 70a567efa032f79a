package repository

import (
	"context"
	"time"

	"deskhub_backend/internal/invoices/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the database model for an invoice header.
type Invoice struct {
	ID             uuid.UUID       `db:"id"`
	Number         string          `db:"number"`
	ClientID       uuid.UUID       `db:"client_id"`
	AgentID        *uuid.UUID      `db:"agent_id"`
	QuoteID        *uuid.UUID      `db:"quote_id"`
	Status         domain.Status   `db:"status"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	TaxRate        decimal.Decimal `db:"tax_rate"`
	TaxAmount      decimal.Decimal `db:"tax_amount"`
	DiscountRate   decimal.Decimal `db:"discount_rate"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Notes          *string         `db:"notes"`
	Terms          *string         `db:"terms"`
	DueDate        *time.Time      `db:"due_date"`
	PaidDate       *time.Time      `db:"paid_date"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// InvoiceItem is the database model for an invoice line item.
type InvoiceItem struct {
	ID                uuid.UUID       `db:"id"`
	InvoiceID         uuid.UUID       `db:"invoice_id"`
	ServiceID         uuid.UUID       `db:"service_id"`
	Quantity          decimal.Decimal `db:"quantity"`
	Rate              decimal.Decimal `db:"rate"`
	LineTotal         decimal.Decimal `db:"line_total"`
	CustomDescription *string         `db:"custom_description"`
	SortOrder         int             `db:"sort_order"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Bill records a successful push to the external billing system. Its
// presence blocks invoice deletion.
type Bill struct {
	ID          uuid.UUID `db:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id"`
	ExternalRef string    `db:"external_ref"`
	Vendor      string    `db:"vendor"`
	CreatedAt   time.Time `db:"created_at"`
}

// ListParams contains parameters for listing invoices.
type ListParams struct {
	Search    string
	Status    *domain.Status
	ClientID  *uuid.UUID
	AgentID   *uuid.UUID
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// ListResult contains the paginated result of listing invoices.
type ListResult struct {
	Items      []Invoice
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for invoices.
type Repository interface {
	NextNumber(ctx context.Context) (string, error)

	CreateWithItems(ctx context.Context, invoice *Invoice, items []InvoiceItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)

	ItemsByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error)

	// UpdateStatus persists the status and paid date together.
	UpdateStatus(ctx context.Context, invoice *Invoice) error

	// Delete removes the invoice and, when it came from a quote, resets that
	// quote to ACCEPTED in the same transaction so it can be converted again.
	Delete(ctx context.Context, id uuid.UUID) error

	ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error)

	// ListOverdue returns invoices whose due date passed while unpaid.
	ListOverdue(ctx context.Context, now time.Time) ([]Invoice, error)

	AddBill(ctx context.Context, bill Bill) error
	BillByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*Bill, error)
	HasBill(ctx context.Context, invoiceID uuid.UUID) (bool, error)
}
