package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store on a sessions table. It keeps the same
// key-value contract as the redis store: one row per chat, upserted on write.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already connected and migrated database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the stored state name, or ErrNotFound for a fresh chat.
func (s *PostgresStore) Get(ctx context.Context, chatID int64) (string, error) {
	var state string
	err := s.db.GetContext(ctx, &state,
		`SELECT state FROM sessions WHERE chat_id = $1`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("session: postgres get: %w", err)
	}
	return state, nil
}

// Set upserts the state name for a chat.
func (s *PostgresStore) Set(ctx context.Context, chatID int64, state string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, state, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (chat_id) DO UPDATE SET state = $2, updated_at = now()`,
		chatID, state)
	if err != nil {
		return fmt.Errorf("session: postgres set: %w", err)
	}
	return nil
}
