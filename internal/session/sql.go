package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vla/internal/db"
	"vla/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS vla_conversation_state (
	state_key  TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLStore keeps states in a libSQL / SQLite table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the state table if needed.
func NewSQLStore(ctx context.Context, conn *sql.DB) (*SQLStore, error) {
	if conn == nil {
		return nil, errors.New("session: db must not be nil")
	}
	if err := db.Migrate(ctx, conn, schema); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &SQLStore{db: conn}, nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, key domain.ConversationKey) (*State, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM vla_conversation_state WHERE state_key = ?`, key.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: select %s: %w", key, err)
	}
	return decode(key, []byte(data))
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vla_conversation_state (state_key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(state_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		st.Key.String(), string(data), st.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	if err != nil {
		return fmt.Errorf("session: upsert %s: %w", st.Key, err)
	}
	return nil
}
