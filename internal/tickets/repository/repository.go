package repository

import (
	"context"
	"errors"
	"fmt"

	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNotFoundMsg = "ticket not found"

const ticketColumns = `id, subject, client_id, agent_id, channel, status, priority, unread, created_at, updated_at`

// Repo provides Postgres-backed persistence for tickets.
type Repo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// New creates a new tickets repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// CreateTicket inserts a ticket and optionally its first message atomically.
func (r *Repo) CreateTicket(ctx context.Context, ticket *Ticket, initial *Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := tx.Exec(ctx, query,
		ticket.ID, ticket.Subject, ticket.ClientID, ticket.AgentID, ticket.Channel,
		ticket.Status, ticket.Priority, ticket.Unread, ticket.CreatedAt, ticket.UpdatedAt,
	); err != nil {
		return mapWriteError(err, "failed to insert ticket")
	}

	if initial != nil {
		if err := insertMessage(ctx, tx, initial); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.ID, &t.Subject, &t.ClientID, &t.AgentID, &t.Channel,
		&t.Status, &t.Priority, &t.Unread, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(ticketNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return &t, nil
}

// GetTicket retrieves a ticket by its ID.
func (r *Repo) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// NewestOpenByClientChannel returns the client's freshest still-open ticket
// on a channel. Used by inbound intake to thread follow-ups.
func (r *Repo) NewestOpenByClientChannel(ctx context.Context, clientID uuid.UUID, channel Channel) (*Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE client_id = $1 AND channel = $2 AND status IN ('OPEN', 'PENDING')
		ORDER BY updated_at DESC
		LIMIT 1`
	return scanTicket(r.pool.QueryRow(ctx, query, clientID, channel))
}

// List retrieves tickets with filtering, sorting, and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM tickets
		WHERE ($1::text IS NULL OR subject ILIKE $1)
			AND ($2::text IS NULL OR status = $2)
			AND ($3::text IS NULL OR channel = $3)
			AND ($4::text IS NULL OR priority = $4)
			AND ($5::uuid IS NULL OR agent_id = $5)
			AND ($6::uuid IS NULL OR client_id = $6)
			AND ($7::bool IS NULL OR unread = $7)
	`
	args := []interface{}{
		searchParam,
		enumParam(params.Status), enumParam(params.Channel), enumParam(params.Priority),
		params.AgentID, params.ClientID, params.Unread,
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT ` + ticketColumns + `
		` + baseQuery + `
		ORDER BY
			CASE WHEN $8 = 'createdAt' AND $9 = 'asc' THEN created_at END ASC,
			CASE WHEN $8 = 'createdAt' AND $9 = 'desc' THEN created_at END DESC,
			CASE WHEN $8 = 'priority' AND $9 = 'asc' THEN priority END ASC,
			CASE WHEN $8 = 'priority' AND $9 = 'desc' THEN priority END DESC,
			CASE WHEN $8 = 'updatedAt' AND $9 = 'asc' THEN updated_at END ASC,
			updated_at DESC
		LIMIT $10 OFFSET $11`

	args = append(args, resolveSortBy(params.SortBy), resolveSortOrder(params.SortOrder), params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var items []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.Subject, &t.ClientID, &t.AgentID, &t.Channel,
			&t.Status, &t.Priority, &t.Unread, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateTicket persists changes to a ticket's mutable fields.
func (r *Repo) UpdateTicket(ctx context.Context, ticket *Ticket) error {
	query := `
		UPDATE tickets
		SET subject = $2, agent_id = $3, status = $4, priority = $5, unread = $6, updated_at = $7
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		ticket.ID, ticket.Subject, ticket.AgentID, ticket.Status, ticket.Priority,
		ticket.Unread, ticket.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "failed to update ticket")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(ticketNotFoundMsg)
	}
	return nil
}

// AddMessage inserts a message and the ticket's bookkeeping atomically.
func (r *Repo) AddMessage(ctx context.Context, ticket *Ticket, msg *Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}

	result, err := tx.Exec(ctx,
		`UPDATE tickets SET unread = $2, updated_at = $3 WHERE id = $1`,
		ticket.ID, ticket.Unread, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket thread state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(ticketNotFoundMsg)
	}

	return tx.Commit(ctx)
}

func insertMessage(ctx context.Context, tx pgx.Tx, msg *Message) error {
	query := `
		INSERT INTO ticket_messages (id, ticket_id, sender_type, sender_id, content, "timestamp", read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.Exec(ctx, query,
		msg.ID, msg.TicketID, msg.SenderType, msg.SenderID, msg.Content, msg.Timestamp, msg.Read,
	); err != nil {
		return mapWriteError(err, "failed to insert message")
	}
	return nil
}

// MessagesByTicketID retrieves the thread ordered by timestamp ascending.
func (r *Repo) MessagesByTicketID(ctx context.Context, ticketID uuid.UUID) ([]Message, error) {
	query := `
		SELECT id, ticket_id, sender_type, sender_id, content, "timestamp", read
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY "timestamp" ASC`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.SenderType, &m.SenderID, &m.Content, &m.Timestamp, &m.Read); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// MarkClientMessagesRead marks CLIENT messages read and recomputes the
// ticket's unread flag in one transaction.
func (r *Repo) MarkClientMessagesRead(ctx context.Context, ticketID uuid.UUID, ids []uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// A nil slice reaches Postgres as NULL, not as an empty array, and
	// NULL would make the whole predicate unknown. Both spellings mean
	// "the whole thread".
	updateQuery := `
		UPDATE ticket_messages SET read = true
		WHERE ticket_id = $1 AND sender_type = 'CLIENT' AND read = false
			AND ($2::uuid[] IS NULL OR cardinality($2::uuid[]) = 0 OR id = ANY($2::uuid[]))`

	if _, err := tx.Exec(ctx, updateQuery, ticketID, ids); err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	var remaining int
	countQuery := `
		SELECT COUNT(*) FROM ticket_messages
		WHERE ticket_id = $1 AND sender_type = 'CLIENT' AND read = false`
	if err := tx.QueryRow(ctx, countQuery, ticketID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	result, err := tx.Exec(ctx, `UPDATE tickets SET unread = $2 WHERE id = $1`, ticketID, remaining > 0)
	if err != nil {
		return 0, fmt.Errorf("failed to update ticket unread flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, apperr.NotFound(ticketNotFoundMsg)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit read marks: %w", err)
	}
	return remaining, nil
}

// CreateAttachment records an uploaded file against a ticket.
func (r *Repo) CreateAttachment(ctx context.Context, attachment *Attachment) error {
	query := `
		INSERT INTO ticket_attachments (id, ticket_id, file_key, file_name, content_type, size_bytes, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.pool.Exec(ctx, query,
		attachment.ID, attachment.TicketID, attachment.FileKey, attachment.FileName,
		attachment.ContentType, attachment.SizeBytes, attachment.UploadedBy, attachment.CreatedAt,
	); err != nil {
		return mapWriteError(err, "failed to insert attachment")
	}
	return nil
}

// AttachmentsByTicketID retrieves a ticket's attachments, newest first.
func (r *Repo) AttachmentsByTicketID(ctx context.Context, ticketID uuid.UUID) ([]Attachment, error) {
	query := `
		SELECT id, ticket_id, file_key, file_name, content_type, size_bytes, uploaded_by, created_at
		FROM ticket_attachments
		WHERE ticket_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.FileKey, &a.FileName, &a.ContentType, &a.SizeBytes, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return attachments, nil
}

// GetAttachment retrieves an attachment scoped to its ticket.
func (r *Repo) GetAttachment(ctx context.Context, ticketID, attachmentID uuid.UUID) (*Attachment, error) {
	var a Attachment
	query := `
		SELECT id, ticket_id, file_key, file_name, content_type, size_bytes, uploaded_by, created_at
		FROM ticket_attachments
		WHERE id = $1 AND ticket_id = $2`

	err := r.pool.QueryRow(ctx, query, attachmentID, ticketID).Scan(
		&a.ID, &a.TicketID, &a.FileKey, &a.FileName, &a.ContentType, &a.SizeBytes, &a.UploadedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("attachment not found")
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &a, nil
}

func enumParam[T ~string](value *T) interface{} {
	if value == nil {
		return nil
	}
	return string(*value)
}

func resolveSortBy(sortBy string) string {
	switch sortBy {
	case "createdAt", "updatedAt", "priority":
		return sortBy
	default:
		return "updatedAt"
	}
}

func resolveSortOrder(sortOrder string) string {
	if sortOrder == "asc" {
		return "asc"
	}
	return "desc"
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
