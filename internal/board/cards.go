package board

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CardStore maps tickets to the Trello cards mirroring them.
type CardStore struct {
	pool *pgxpool.Pool
}

// NewCardStore creates a new card mapping store.
func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

// Save records the Trello card backing a ticket. Re-creating a card for the
// same ticket overwrites the mapping.
func (s *CardStore) Save(ctx context.Context, ticketID uuid.UUID, cardID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ticket_board_cards (ticket_id, card_id)
		VALUES ($1, $2)
		ON CONFLICT (ticket_id) DO UPDATE SET card_id = EXCLUDED.card_id
	`, ticketID, cardID)
	return err
}

// CardID returns the Trello card for a ticket, or "" when none is mapped.
func (s *CardStore) CardID(ctx context.Context, ticketID uuid.UUID) (string, error) {
	var cardID string
	err := s.pool.QueryRow(ctx, `
		SELECT card_id FROM ticket_board_cards WHERE ticket_id = $1
	`, ticketID).Scan(&cardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return cardID, err
}
