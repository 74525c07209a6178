package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundlab/playground-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Snapshots are stored as JSONB; decimal fields serialize as strings, which
// keeps exact precision through the round-trip.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	state, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, state, created_at, updated_at)
		 VALUES ($1, $2::JSONB, $3, $4)`,
		sess.ID, state, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var state []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, state, created_at, updated_at
		 FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &state, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	sess.State = &model.PlaygroundState{}
	if err := json.Unmarshal(state, sess.State); err != nil {
		return nil, fmt.Errorf("unmarshal session %s state: %w", id, err)
	}
	return &sess, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sess *Session) error {
	state, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET state = $2::JSONB, updated_at = NOW()
		 WHERE id = $1`,
		sess.ID, state,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, state, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var state []byte
		if err := rows.Scan(&sess.ID, &state, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		sess.State = &model.PlaygroundState{}
		if err := json.Unmarshal(state, sess.State); err != nil {
			return nil, fmt.Errorf("unmarshal session %s state: %w", sess.ID, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
