// Package user provides a read-only directory of user profiles. The main
// application owns the user records; the messaging service only needs to
// validate that a receiver exists and to populate display fields on message
// and conversation payloads.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when no user exists for the requested ID.
var ErrNotFound = errors.New("user: not found")

// User is the subset of a profile the messaging UI displays.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Headline  string `json:"headline,omitempty"`
	AvatarURL string `json:"profilePicture,omitempty"`
}

// Directory looks up user profiles in PostgreSQL.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory backed by the given database handle.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Get returns the profile for a single user ID. Returns ErrNotFound if the
// user does not exist.
func (d *Directory) Get(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, name, headline, avatar_url FROM users WHERE id = $1`

	var u User
	err := d.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Name, &u.Headline, &u.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: get %s: %w", id, err)
	}
	return &u, nil
}

// GetMany returns profiles for a set of user IDs keyed by ID. Unknown IDs are
// simply absent from the result; callers decide whether that matters.
func (d *Directory) GetMany(ctx context.Context, ids []string) (map[string]User, error) {
	users := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT id, name, headline, avatar_url FROM users WHERE id = ANY($1)`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("user: get many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Headline, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("user: scan: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user: rows: %w", err)
	}
	return users, nil
}
