package config

import (
	"context"
	"database/sql"
	"fmt"
)

// Store persists catalog values as key/value rows in vhbshib_config.
type Store struct {
	db *sql.DB
}

// NewStore creates a catalog store on the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the vhbshib_config table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vhbshib_config (
			param_name  VARCHAR(255) PRIMARY KEY,
			param_value VARCHAR(255)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vhbshib_config: %w", err)
	}
	return nil
}

// Load hydrates the catalog from persisted rows. Only present keys
// overwrite the in-code defaults; keys the catalog does not know are
// ignored so configurations survive plugin up- and downgrades. Rows
// that no longer coerce to the declared kind are skipped.
func (s *Store) Load(ctx context.Context, c *Catalog) error {
	rows, err := s.db.QueryContext(ctx, `SELECT param_name, param_value FROM vhbshib_config`)
	if err != nil {
		return fmt.Errorf("failed to read vhbshib_config: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("failed to scan config row: %w", err)
		}
		if !value.Valid {
			continue
		}
		_ = c.Set(name, value.String)
	}
	return rows.Err()
}

// Save upserts every catalog parameter as a string row.
func (s *Store) Save(ctx context.Context, c *Catalog) error {
	for _, p := range c.Params() {
		if p.Kind == KindHead {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO vhbshib_config (param_name, param_value)
			VALUES ($1, $2)
			ON CONFLICT (param_name) DO UPDATE SET param_value = $2
		`, p.Name, p.StringValue())
		if err != nil {
			return fmt.Errorf("failed to save parameter %s: %w", p.Name, err)
		}
	}
	return nil
}
