package provision

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLAccountStore implements AccountStore on the host platform's
// usr_data table.
type SQLAccountStore struct {
	db *sql.DB
}

// NewSQLAccountStore creates an account store on the host database.
func NewSQLAccountStore(db *sql.DB) *SQLAccountStore {
	return &SQLAccountStore{db: db}
}

// FindByExternalAccount implements AccountStore.
func (s *SQLAccountStore) FindByExternalAccount(ctx context.Context, key string) (*Account, error) {
	acc := &Account{}
	err := s.db.QueryRowContext(ctx, `
		SELECT usr_id, login, ext_account, auth_mode, firstname, lastname, email, gender, matriculation
		FROM usr_data
		WHERE ext_account = $1
	`, key).Scan(&acc.ID, &acc.Login, &acc.ExternalAccount, &acc.AuthMode,
		&acc.GivenName, &acc.Surname, &acc.Mail, &acc.Gender, &acc.Matriculation)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}

// LoginExists implements AccountStore.
func (s *SQLAccountStore) LoginExists(ctx context.Context, login string, excludeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM usr_data WHERE login = $1 AND usr_id != $2
	`, login, excludeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check login: %w", err)
	}
	return true, nil
}

// NextLoginSequence implements AccountStore. The sequence only seeds
// the generated login; the final name is the internal id after the
// post-creation rename.
func (s *SQLAccountStore) NextLoginSequence(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(usr_id), 0) + 1 FROM usr_data
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to read login sequence: %w", err)
	}
	return next, nil
}

// Create implements AccountStore.
func (s *SQLAccountStore) Create(ctx context.Context, acc *Account) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO usr_data (login, ext_account, auth_mode, firstname, lastname, email, gender, matriculation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING usr_id
	`, acc.Login, acc.ExternalAccount, acc.AuthMode,
		acc.GivenName, acc.Surname, acc.Mail, acc.Gender, acc.Matriculation).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	return id, nil
}

// Update implements AccountStore. Login, external account and auth
// mode stay untouched on the update path.
func (s *SQLAccountStore) Update(ctx context.Context, acc *Account) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE usr_data
		SET firstname = $1, lastname = $2, email = $3, gender = $4, matriculation = $5
		WHERE usr_id = $6
	`, acc.GivenName, acc.Surname, acc.Mail, acc.Gender, acc.Matriculation, acc.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Rename implements AccountStore.
func (s *SQLAccountStore) Rename(ctx context.Context, id int64, login string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE usr_data SET login = $1 WHERE usr_id = $2`, login, id)
	if err != nil {
		return fmt.Errorf("failed to rename account: %w", err)
	}
	return nil
}

// WritePreference implements AccountStore.
func (s *SQLAccountStore) WritePreference(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usr_pref (usr_id, keyword, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (usr_id, keyword) DO UPDATE SET value = $3
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write preference: %w", err)
	}
	return nil
}
