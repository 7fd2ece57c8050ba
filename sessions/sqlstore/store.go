package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/sessions"
	_ "github.com/lib/pq"
)

var _ sessions.Store = (*Store)(nil)

// Store keeps the serialized session as one row of session_slots.
type Store struct {
	db  *sqlx.DB
	key string
}

// Connect opens a Postgres pool sized for a single-slot workload.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, apperrors.Join(sessions.ErrStorageUnavailable, fmt.Errorf("connect postgres: %w", err))
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// New returns a store for key on an already migrated database.
func New(db *sqlx.DB, key string) *Store {
	return &Store{db: db, key: key}
}

func (s *Store) Save(ctx context.Context, serialized string) error {
	const query = `
		INSERT INTO session_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, s.key, serialized); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (string, bool, error) {
	const query = `SELECT payload FROM session_slots WHERE slot_key = $1`

	var payload string
	if err := s.db.GetContext(ctx, &payload, query, s.key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return payload, true, nil
}

func (s *Store) Delete(ctx context.Context) error {
	const query = `DELETE FROM session_slots WHERE slot_key = $1`
	if _, err := s.db.ExecContext(ctx, query, s.key); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}
