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

const quoteNotFoundMsg = "quote not found"

// Repo provides Postgres-backed persistence for quotes.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// NextNumber atomically generates the next quote number for the current year.
func (r *Repo) NextNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()

	var nextNum int
	query := `
		INSERT INTO document_counters (kind, year, last_number)
		VALUES ('quote', $1, 1)
		ON CONFLICT (kind, year) DO UPDATE SET last_number = document_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}

	return fmt.Sprintf("QT-%d-%04d", year, nextNum), nil
}

// CreateWithItems inserts a quote, its line items and the initial status log
// row in a single transaction.
func (r *Repo) CreateWithItems(ctx context.Context, quote *Quote, items []QuoteItem, logEntry StatusLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quoteQuery := `
		INSERT INTO quotes (
			id, number, client_id, agent_id, status,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount,
			notes, terms, valid_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	if _, err := tx.Exec(ctx, quoteQuery,
		quote.ID, quote.Number, quote.ClientID, quote.AgentID, quote.Status,
		quote.Subtotal, quote.TaxRate, quote.TaxAmount, quote.DiscountRate, quote.DiscountAmount, quote.TotalAmount,
		quote.Notes, quote.Terms, quote.ValidUntil, quote.CreatedAt, quote.UpdatedAt,
	); err != nil {
		return mapWriteError(err, "failed to insert quote")
	}

	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}
	if err := insertStatusLog(ctx, tx, logEntry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const quoteColumns = `id, number, client_id, agent_id, status,
			subtotal, tax_rate, tax_amount, discount_rate, discount_amount, total_amount,
			notes, terms, valid_until, sent_at, accepted_at, expired_at, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.Number, &q.ClientID, &q.AgentID, &q.Status,
		&q.Subtotal, &q.TaxRate, &q.TaxAmount, &q.DiscountRate, &q.DiscountAmount, &q.TotalAmount,
		&q.Notes, &q.Terms, &q.ValidUntil, &q.SentAt, &q.AcceptedAt, &q.ExpiredAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}
	return &q, nil
}

// GetByID retrieves a quote by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	return scanQuote(r.pool.QueryRow(ctx, query, id))
}

// GetByNumber retrieves a quote by its human-readable number. Used by the
// customer portal, which never exposes internal IDs.
func (r *Repo) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE number = $1`
	return scanQuote(r.pool.QueryRow(ctx, query, number))
}

// ItemsByQuoteID retrieves all line items for a quote ordered by sort order.
func (r *Repo) ItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]QuoteItem, error) {
	query := `
		SELECT id, quote_id, service_id, quantity, rate, line_total, custom_description, sort_order, created_at
		FROM quote_items WHERE quote_id = $1
		ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	var items []QuoteItem
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(
			&it.ID, &it.QuoteID, &it.ServiceID, &it.Quantity, &it.Rate, &it.LineTotal,
			&it.CustomDescription, &it.SortOrder, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote items: %w", err)
	}
	return items, nil
}

// GetItem retrieves a single line item scoped to its quote.
func (r *Repo) GetItem(ctx context.Context, quoteID, itemID uuid.UUID) (*QuoteItem, error) {
	query := `
		SELECT id, quote_id, service_id, quantity, rate, line_total, custom_description, sort_order, created_at
		FROM quote_items WHERE id = $1 AND quote_id = $2`

	var it QuoteItem
	err := r.pool.QueryRow(ctx, query, itemID, quoteID).Scan(
		&it.ID, &it.QuoteID, &it.ServiceID, &it.Quantity, &it.Rate, &it.LineTotal,
		&it.CustomDescription, &it.SortOrder, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("quote item not found")
		}
		return nil, fmt.Errorf("failed to get quote item: %w", err)
	}
	return &it, nil
}

// LogsByQuoteID retrieves the status history for a quote, oldest first.
func (r *Repo) LogsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]StatusLog, error) {
	query := `
		SELECT id, quote_id, status, changed_by, notes, created_at
		FROM quote_status_logs WHERE quote_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote status logs: %w", err)
	}
	defer rows.Close()

	var logs []StatusLog
	for rows.Next() {
		var l StatusLog
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.Status, &l.ChangedBy, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote status log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote status logs: %w", err)
	}
	return logs, nil
}

// UpdateStatus persists the status, lifecycle stamps and updated_at of a
// quote, and appends the audit log row in the same transaction.
func (r *Repo) UpdateStatus(ctx context.Context, quote *Quote, logEntry StatusLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE quotes SET
			status = $2, sent_at = $3, accepted_at = $4, expired_at = $5, updated_at = $6
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		quote.ID, quote.Status, quote.SentAt, quote.AcceptedAt, quote.ExpiredAt, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}

	if err := insertStatusLog(ctx, tx, logEntry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertItemWithTotals inserts a line item and replaces the quote's stored
// money fields in one transaction.
func (r *Repo) InsertItemWithTotals(ctx context.Context, quote *Quote, item *QuoteItem) error {
	return r.itemMutation(ctx, quote, func(tx pgx.Tx) error {
		return insertItems(ctx, tx, []QuoteItem{*item})
	})
}

// UpdateItemWithTotals updates a line item and replaces the quote's stored
// money fields in one transaction.
func (r *Repo) UpdateItemWithTotals(ctx context.Context, quote *Quote, item *QuoteItem) error {
	return r.itemMutation(ctx, quote, func(tx pgx.Tx) error {
		query := `
			UPDATE quote_items SET
				service_id = $3, quantity = $4, rate = $5, line_total = $6,
				custom_description = $7, sort_order = $8
			WHERE id = $1 AND quote_id = $2`

		result, err := tx.Exec(ctx, query,
			item.ID, item.QuoteID, item.ServiceID, item.Quantity, item.Rate, item.LineTotal,
			item.CustomDescription, item.SortOrder,
		)
		if err != nil {
			return mapWriteError(err, "failed to update quote item")
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound("quote item not found")
		}
		return nil
	})
}

// DeleteItemWithTotals removes a line item and replaces the quote's stored
// money fields in one transaction.
func (r *Repo) DeleteItemWithTotals(ctx context.Context, quote *Quote, itemID uuid.UUID) error {
	return r.itemMutation(ctx, quote, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE id = $1 AND quote_id = $2`, itemID, quote.ID)
		if err != nil {
			return fmt.Errorf("failed to delete quote item: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound("quote item not found")
		}
		return nil
	})
}

func (r *Repo) itemMutation(ctx context.Context, quote *Quote, mutate func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := mutate(tx); err != nil {
		return err
	}
	if err := updateTotals(ctx, tx, quote); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateDetailsWithTotals persists header edits together with the recomputed
// money fields.
func (r *Repo) UpdateDetailsWithTotals(ctx context.Context, quote *Quote) error {
	query := `
		UPDATE quotes SET
			tax_rate = $2, discount_rate = $3,
			subtotal = $4, tax_amount = $5, discount_amount = $6, total_amount = $7,
			notes = $8, terms = $9, valid_until = $10, updated_at = $11
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		quote.ID, quote.TaxRate, quote.DiscountRate,
		quote.Subtotal, quote.TaxAmount, quote.DiscountAmount, quote.TotalAmount,
		quote.Notes, quote.Terms, quote.ValidUntil, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

// ListExpirable returns quotes whose validity lapsed while still in an
// expirable status.
func (r *Repo) ListExpirable(ctx context.Context, now time.Time) ([]Quote, error) {
	query := `SELECT ` + quoteColumns + `
		FROM quotes
		WHERE valid_until IS NOT NULL AND valid_until < $1
			AND status IN ('DRAFT', 'SENT', 'PENDING')
		ORDER BY valid_until ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expirable quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expirable quotes: %w", err)
	}
	return quotes, nil
}

// Delete removes a quote. Items and status logs cascade; a restricting
// invoice reference surfaces as a conflict.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("quote is referenced by an invoice")
		}
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

// List retrieves quotes with filtering and pagination.
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
		FROM quotes
		WHERE ($1::uuid IS NULL OR client_id = $1)
			AND ($2::uuid IS NULL OR agent_id = $2)
			AND ($3::text IS NULL OR status = $3)
			AND ($4::text IS NULL OR number ILIKE $4 OR notes ILIKE $4)
	`
	args := []interface{}{clientParam, agentParam, statusParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quotes: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + quoteColumns + baseQuery + `
		ORDER BY
			CASE WHEN $5 = 'number' AND $6 = 'asc' THEN number END ASC,
			CASE WHEN $5 = 'number' AND $6 = 'desc' THEN number END DESC,
			CASE WHEN $5 = 'status' AND $6 = 'asc' THEN status END ASC,
			CASE WHEN $5 = 'status' AND $6 = 'desc' THEN status END DESC,
			CASE WHEN $5 = 'total' AND $6 = 'asc' THEN total_amount END ASC,
			CASE WHEN $5 = 'total' AND $6 = 'desc' THEN total_amount END DESC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'asc' THEN created_at END ASC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'desc' THEN created_at END DESC,
			CASE WHEN $5 = 'updatedAt' AND $6 = 'asc' THEN updated_at END ASC,
			CASE WHEN $5 = 'updatedAt' AND $6 = 'desc' THEN updated_at END DESC,
			created_at DESC
		LIMIT $7 OFFSET $8`

	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var items []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, items []QuoteItem) error {
	itemQuery := `
		INSERT INTO quote_items (
			id, quote_id, service_id, quantity, rate, line_total,
			custom_description, sort_order, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuoteID, item.ServiceID,
			item.Quantity, item.Rate, item.LineTotal,
			item.CustomDescription, item.SortOrder, item.CreatedAt,
		); err != nil {
			return mapWriteError(err, "failed to insert quote item")
		}
	}
	return nil
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, logEntry StatusLog) error {
	query := `
		INSERT INTO quote_status_logs (id, quote_id, status, changed_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := tx.Exec(ctx, query,
		logEntry.ID, logEntry.QuoteID, logEntry.Status, logEntry.ChangedBy, logEntry.Notes, logEntry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quote status log: %w", err)
	}
	return nil
}

func updateTotals(ctx context.Context, tx pgx.Tx, quote *Quote) error {
	query := `
		UPDATE quotes SET
			subtotal = $2, tax_amount = $3, discount_amount = $4, total_amount = $5, updated_at = $6
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		quote.ID, quote.Subtotal, quote.TaxAmount, quote.DiscountAmount, quote.TotalAmount, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote totals: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

func mapWriteError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict("duplicate record")
		case "23503":
			return apperr.Validation("referenced record does not exist")
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "number", "status", "total", "createdAt", "updatedAt":
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
