// Package session persists the current conversation state per chat id.
// It is a plain key-value contract: the dialog machine owns the state
// vocabulary, the store only moves strings.
package session

import (
	"context"
	"errors"
)

// ErrNotFound reports that a chat has no stored conversation state yet.
// Callers treat this as "fresh conversation", not as a failure.
var ErrNotFound = errors.New("session: not found")

// Store reads and writes the state name for a chat. Get and Set are two
// independent calls; serial per-chat event processing is what keeps the
// read-modify-write consistent.
type Store interface {
	Get(ctx context.Context, chatID int64) (string, error)
	Set(ctx context.Context, chatID int64, state string) error
}
