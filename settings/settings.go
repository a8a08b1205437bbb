// Package settings is a plain key-value store for per-worksheet user
// configuration, such as the report a user last exported.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Store persists settings as JSON values keyed by (worksheet, key).
type Store struct {
	db    *sql.DB
	table string
}

// New wraps an existing database handle. table defaults to
// "pivot_settings".
func New(db *sql.DB, table string) *Store {
	if table == "" {
		table = "pivot_settings"
	}
	return &Store{db: db, table: table}
}

// Init creates the backing table when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		worksheet TEXT NOT NULL,
		key TEXT NOT NULL,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (worksheet, key)
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

// Put upserts one setting. value is marshaled to JSON.
func (s *Store) Put(ctx context.Context, worksheet, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, worksheet, key, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (worksheet, key) DO UPDATE SET value = $4, updated_at = now()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, uuid.New(), worksheet, key, data); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Get unmarshals one setting into out. Returns false when the key is not
// set.
func (s *Store) Get(ctx context.Context, worksheet, key string, out interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE worksheet = $1 AND key = $2", s.table)
	var data []byte
	err := s.db.QueryRowContext(ctx, query, worksheet, key).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("failed to unmarshal setting %s: %w", key, err)
	}
	return true, nil
}

// Delete removes one setting. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, worksheet, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE worksheet = $1 AND key = $2", s.table)
	if _, err := s.db.ExecContext(ctx, query, worksheet, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// List returns all settings of a worksheet as raw JSON by key.
func (s *Store) List(ctx context.Context, worksheet string) (map[string]json.RawMessage, error) {
	query := fmt.Sprintf("SELECT key, value FROM %s WHERE worksheet = $1", s.table)
	rows, err := s.db.QueryContext(ctx, query, worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(data)
	}
	return out, rows.Err()
}
