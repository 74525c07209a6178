// Package store defines the persistence interface for playground sessions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// A session is persisted as its serialized snapshot: plain data that
// round-trips through JSON without loss, including sortable timestamps.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fundlab/playground-engine/internal/model"
)

// ErrSessionNotFound is returned when a session id does not resolve.
var ErrSessionNotFound = errors.New("store: session not found")

// Session pairs a session id with its current state snapshot.
type Session struct {
	ID        string                 `json:"id"`
	State     *model.PlaygroundState `json:"state"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, sess *Session) error

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*Session, error)

	// UpdateSession swaps a session's snapshot after an accepted operation.
	UpdateSession(ctx context.Context, sess *Session) error

	// DeleteSession removes a session wholesale (explicit reset).
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns all sessions.
	ListSessions(ctx context.Context) ([]Session, error)
}
