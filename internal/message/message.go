// Package message provides the persisted direct-message store backed by
// PostgreSQL. Messages are append-only; the read flag is the only mutable
// field and is flipped in bulk by MarkRead.
package message

import "time"

// Message is a single persisted direct message between two users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}
