package message

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store manages direct messages in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a message store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append persists a new unread message with a server-assigned timestamp and
// returns the stored record. Receiver existence is the caller's concern
// (the user directory validates it before the append).
func (s *Store) Append(ctx context.Context, senderID, receiverID, body string) (*Message, error) {
	if err := ValidateBody(body); err != nil {
		return nil, fmt.Errorf("message: append: %w", err)
	}

	m := &Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Read:       false,
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, body, read)
		VALUES ($1, $2, $3, $4, false)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query, m.ID, m.SenderID, m.ReceiverID, m.Body).
		Scan(&m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("message: append: %w", err)
	}
	return m, nil
}

// Thread returns every message exchanged between the two users, in either
// direction, ascending by creation time.
func (s *Store) Thread(ctx context.Context, userA, userB string) ([]Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, body, read, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("message: thread: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// AllForUser returns every message where the user is sender or receiver,
// descending by creation time. The inbox fold depends on this ordering.
func (s *Store) AllForUser(ctx context.Context, userID string) ([]Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, body, read, created_at
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("message: all for user: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkRead flips read=true on every unread message from senderID to
// receiverID and returns the number of rows updated. Idempotent: a second
// call matches nothing and updates zero rows.
func (s *Store) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	query := `
		UPDATE messages
		SET read = true
		WHERE sender_id = $1 AND receiver_id = $2 AND read = false`

	res, err := s.db.ExecContext(ctx, query, senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("message: mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("message: mark read: %w", err)
	}
	return n, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	msgs := []Message{}
	for rows.Next() {
		var m Message
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("message: scan: %w", err)
		}
		m.CreatedAt = createdAt.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: rows: %w", err)
	}
	return msgs, nil
}
