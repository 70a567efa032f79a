package repository

import (
	"context"
	"time"

	"deskhub_backend/internal/quotes/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is the database model for a quote header.
type Quote struct {
	ID             uuid.UUID       `db:"id"`
	Number         string          `db:"number"`
	ClientID       uuid.UUID       `db:"client_id"`
	AgentID        *uuid.UUID      `db:"agent_id"`
	Status         domain.Status   `db:"status"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	TaxRate        decimal.Decimal `db:"tax_rate"`
	TaxAmount      decimal.Decimal `db:"tax_amount"`
	DiscountRate   decimal.Decimal `db:"discount_rate"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Notes          *string         `db:"notes"`
	Terms          *string         `db:"terms"`
	ValidUntil     *time.Time      `db:"valid_until"`
	SentAt         *time.Time      `db:"sent_at"`
	AcceptedAt     *time.Time      `db:"accepted_at"`
	ExpiredAt      *time.Time      `db:"expired_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// QuoteItem is the database model for a quote line item.
type QuoteItem struct {
	ID                uuid.UUID       `db:"id"`
	QuoteID           uuid.UUID       `db:"quote_id"`
	ServiceID         uuid.UUID       `db:"service_id"`
	Quantity          decimal.Decimal `db:"quantity"`
	Rate              decimal.Decimal `db:"rate"`
	LineTotal         decimal.Decimal `db:"line_total"`
	CustomDescription *string         `db:"custom_description"`
	SortOrder         int             `db:"sort_order"`
	CreatedAt         time.Time       `db:"created_at"`
}

// StatusLog is one row of the append-only quote status audit trail.
type StatusLog struct {
	ID        uuid.UUID     `db:"id"`
	QuoteID   uuid.UUID     `db:"quote_id"`
	Status    domain.Status `db:"status"`
	ChangedBy *uuid.UUID    `db:"changed_by"`
	Notes     *string       `db:"notes"`
	CreatedAt time.Time     `db:"created_at"`
}

// ListParams contains parameters for listing quotes.
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

// ListResult contains the paginated result of listing quotes.
type ListResult struct {
	Items      []Quote
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines persistence operations for quotes.
// The concrete implementation is Postgres-backed; tests use in-memory fakes.
type Repository interface {
	NextNumber(ctx context.Context) (string, error)

	CreateWithItems(ctx context.Context, quote *Quote, items []QuoteItem, logEntry StatusLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]QuoteItem, error)
	GetItem(ctx context.Context, quoteID, itemID uuid.UUID) (*QuoteItem, error)
	LogsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]StatusLog, error)

	// UpdateStatus persists a status change (including first-time lifecycle
	// stamps) and appends the audit log row in one transaction.
	UpdateStatus(ctx context.Context, quote *Quote, logEntry StatusLog) error

	// The item mutations below atomically replace the quote's stored money
	// fields together with the item write, so concurrent readers never see
	// a partially recomputed quote.
	InsertItemWithTotals(ctx context.Context, quote *Quote, item *QuoteItem) error
	UpdateItemWithTotals(ctx context.Context, quote *Quote, item *QuoteItem) error
	DeleteItemWithTotals(ctx context.Context, quote *Quote, itemID uuid.UUID) error

	// UpdateDetailsWithTotals persists header edits (rates, validity, notes)
	// together with the recomputed totals.
	UpdateDetailsWithTotals(ctx context.Context, quote *Quote) error

	// ListExpirable returns quotes whose validity lapsed while still in an
	// expirable status, for the scheduler sweep.
	ListExpirable(ctx context.Context, now time.Time) ([]Quote, error)
}
