package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invoiceNotFoundMsg = "invoice not found"

// Repo provides Postgres-backed persistence for invoices.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new invoices repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// NextNumber atomically generates the next invoice number for the current year.
func (r *Repo) NextNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()

	var nextNum int
	query := `
		INSERT INTO document_counters (kind, year, last_number)
		VALUES ('invoice', $1, 1)
		ON CONFLICT (kind, year) DO UPDATE SET last_number = document_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate invoice number: %w", err)
	}

	return fmt.Sprintf("INV-%d-%04d", year, nextNum), nil
}

// CreateWithItems inserts an invoice and its line items in a single
// transaction. A duplicate quote reference surfaces as a conflict: the
// unique index on quote_id is the arbiter for concurrent conversions.
func (r *Repo) CreateWithItems(ctx context.Context, invoice *Invoice, items []InvoiceItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceQuery := `
		INSERT INTO invoices (
			id, number, client_id, agent_id, quote_id, status,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount,
			notes, terms, due_date, paid_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	if _, err := tx.Exec(ctx, invoiceQuery,
		invoice.ID, invoice.Number, invoice.ClientID, invoice.AgentID, invoice.QuoteID, invoice.Status,
		invoice.Subtotal, invoice.TaxRate, invoice.TaxAmount, invoice.DiscountRate, invoice.DiscountAmount, invoice.TotalAmount,
		invoice.Notes, invoice.Terms, invoice.DueDate, invoice.PaidDate, invoice.CreatedAt, invoice.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "invoices_quote_id_key" {
				return apperr.Conflict("quote has already been converted")
			}
			return apperr.Conflict("duplicate invoice")
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Validation("referenced record does not exist")
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	itemQuery := `
		INSERT INTO invoice_items (
			id, invoice_id, service_id, quantity, rate, line_total,
			custom_description, sort_order, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.InvoiceID, item.ServiceID,
			item.Quantity, item.Rate, item.LineTotal,
			item.CustomDescription, item.SortOrder, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

const invoiceColumns = `id, number, client_id, agent_id, quote_id, status,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount,
			notes, terms, due_date, paid_date, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.ClientID, &inv.AgentID, &inv.QuoteID, &inv.Status,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.DiscountRate, &inv.DiscountAmount, &inv.TotalAmount,
		&inv.Notes, &inv.Terms, &inv.DueDate, &inv.PaidDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(invoiceNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return &inv, nil
}

// GetByID retrieves an invoice by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return scanInvoice(r.pool.QueryRow(ctx, query, id))
}

// GetByNumber retrieves an invoice by its human-readable number.
func (r *Repo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE number = $1`
	return scanInvoice(r.pool.QueryRow(ctx, query, number))
}

// ItemsByInvoiceID retrieves all line items for an invoice.
func (r *Repo) ItemsByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, service_id, quantity, rate, line_total, custom_description, sort_order, created_at
		FROM invoice_items WHERE invoice_id = $1
		ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.ServiceID, &it.Quantity, &it.Rate, &it.LineTotal,
			&it.CustomDescription, &it.SortOrder, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return items, nil
}

// UpdateStatus persists the status and paid date of an invoice.
func (r *Repo) UpdateStatus(ctx context.Context, invoice *Invoice) error {
	query := `UPDATE invoices SET status = $2, paid_date = $3, updated_at = $4 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, invoice.ID, invoice.Status, invoice.PaidDate, invoice.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}
	return nil
}

// Delete removes an invoice and resets its source quote to ACCEPTED in the
// same transaction, so the quote can be converted again.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quoteID *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT quote_id FROM invoices WHERE id = $1`, id).Scan(&quoteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(invoiceNotFoundMsg)
		}
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	if quoteID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE quotes SET status = 'ACCEPTED', updated_at = $2 WHERE id = $1`,
			*quoteID, time.Now(),
		); err != nil {
			return fmt.Errorf("failed to reset source quote: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ExistsForQuote reports whether a quote has already been converted.
func (r *Repo) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE quote_id = $1)`, quoteID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check quote conversion: %w", err)
	}
	return exists, nil
}

// ListOverdue returns unpaid invoices whose due date passed.
func (r *Repo) ListOverdue(ctx context.Context, now time.Time) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE due_date IS NOT NULL AND due_date < $1
			AND status IN ('PENDING', 'SENT')
		ORDER BY due_date ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overdue invoices: %w", err)
	}
	return invoices, nil
}

// AddBill records an external billing reference for an invoice.
func (r *Repo) AddBill(ctx context.Context, bill Bill) error {
	query := `
		INSERT INTO invoice_bills (id, invoice_id, external_ref, vendor, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, bill.ID, bill.InvoiceID, bill.ExternalRef, bill.Vendor, bill.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("invoice already has a billing record")
		}
		return fmt.Errorf("failed to insert billing record: %w", err)
	}
	return nil
}

// BillByInvoiceID retrieves the billing record for an invoice.
func (r *Repo) BillByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*Bill, error) {
	var b Bill
	err := r.pool.QueryRow(ctx,
		`SELECT id, invoice_id, external_ref, vendor, created_at FROM invoice_bills WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&b.ID, &b.InvoiceID, &b.ExternalRef, &b.Vendor, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("billing record not found")
		}
		return nil, fmt.Errorf("failed to get billing record: %w", err)
	}
	return &b, nil
}

// HasBill reports whether an invoice has a billing record.
func (r *Repo) HasBill(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoice_bills WHERE invoice_id = $1)`, invoiceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check billing record: %w", err)
	}
	return exists, nil
}

// List retrieves invoices with filtering and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return nil, err
	}
	sortOrder, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return nil, err
	}

	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}

	var clientParam interface{}
	if params.ClientID != nil {
		clientParam = *params.ClientID
	}

	var agentParam interface{}
	if params.AgentID != nil {
		agentParam = *params.AgentID
	}

	baseQuery := `
		FROM invoices
		WHERE ($1::uuid IS NULL OR client_id = $1)
			AND ($2::uuid IS NULL OR agent_id = $2)
			AND ($3::text IS NULL OR status = $3)
			AND ($4::text IS NULL OR number ILIKE $4 OR notes ILIKE $4)
	`
	args := []interface{}{clientParam, agentParam, statusParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + invoiceColumns + baseQuery + `
		ORDER BY
			CASE WHEN $5 = 'number' AND $6 = 'asc' THEN number END ASC,
			CASE WHEN $5 = 'number' AND $6 = 'desc' THEN number END DESC,
			CASE WHEN $5 = 'status' AND $6 = 'asc' THEN status END ASC,
			CASE WHEN $5 = 'status' AND $6 = 'desc' THEN status END DESC,
			CASE WHEN $5 = 'total' AND $6 = 'asc' THEN total_amount END ASC,
			CASE WHEN $5 = 'total' AND $6 = 'desc' THEN total_amount END DESC,
			CASE WHEN $5 = 'dueDate' AND $6 = 'asc' THEN due_date END ASC,
			CASE WHEN $5 = 'dueDate' AND $6 = 'desc' THEN due_date END DESC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'asc' THEN created_at END ASC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'desc' THEN created_at END DESC,
			created_at DESC
		LIMIT $7 OFFSET $8`

	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var items []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "number", "status", "total", "dueDate", "createdAt":
		return sortBy, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(sortOrder string) (string, error) {
	if sortOrder == "" {
		return "desc", nil
	}
	switch sortOrder {
	case "asc", "desc":
		return sortOrder, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}
