package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a new user. Either email or wallet address is required.
func (s *Store) CreateUser(ctx context.Context, email, walletAddress, authMethod string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if email == "" && walletAddress == "" {
		return nil, fmt.Errorf("email or wallet address required")
	}
	if authMethod == "" {
		authMethod = "email"
	}

	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, wallet_address, auth_method, created_at, updated_at)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
	`, id, email, walletAddress, authMethod, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, id)
}

// GetUser returns the user with the given id, or nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(email, ''), COALESCE(wallet_address, ''), auth_method,
		       COALESCE(preferences_json, ''), is_active, created_at, updated_at
		FROM users WHERE id = ? LIMIT 1
	`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user with the given email, or nil when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if email == "" {
		return nil, fmt.Errorf("email required")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(email, ''), COALESCE(wallet_address, ''), auth_method,
		       COALESCE(preferences_json, ''), is_active, created_at, updated_at
		FROM users WHERE email = ? LIMIT 1
	`, email)
	return scanUser(row)
}

// UpsertUserByEmail returns the existing user for the email or creates one.
func (s *Store) UpsertUserByEmail(ctx context.Context, email string) (*User, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.CreateUser(ctx, email, "", "email")
}

// UpdatePreferences replaces the user's preferences JSON.
func (s *Store) UpdatePreferences(ctx context.Context, userID, preferencesJSON string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET preferences_json = ? WHERE id = ?
	`, preferencesJSON, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q not found", userID)
	}
	return nil
}

// DeactivateUser marks the user inactive without deleting history.
func (s *Store) DeactivateUser(ctx context.Context, userID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	_, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = 0 WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var active int
	var created, updated int64
	err := row.Scan(&u.ID, &u.Email, &u.WalletAddress, &u.AuthMethod, &u.Preferences, &active, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.IsActive = active != 0
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}
