package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// UserRow is a full account record, including credential material. It never
// leaves the handler layer.
type UserRow struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Role         string
	CreatedAt    time.Time
	LastLoginAt  pgtype.Timestamptz
}

// CreateUserParams carries the fields needed to register an account.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	DisplayName  string
	Role         string
}

// CreateUser inserts a new account and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, arg CreateUserParams) (UserRow, error) {
	const query = `
		INSERT INTO users (username, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, password_hash, display_name, role, created_at, last_login_at`

	var row UserRow
	err := s.pool.QueryRow(ctx, query, arg.Username, arg.PasswordHash, arg.DisplayName, arg.Role).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.DisplayName, &row.Role, &row.CreatedAt, &row.LastLoginAt,
	)
	return row, err
}

// GetUserByUsername fetches one account by its unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	const query = `
		SELECT id, username, password_hash, display_name, role, created_at, last_login_at
		FROM users WHERE username = $1`

	var row UserRow
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.DisplayName, &row.Role, &row.CreatedAt, &row.LastLoginAt,
	)
	return row, err
}

// GetUserByID fetches one account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	const query = `
		SELECT id, username, password_hash, display_name, role, created_at, last_login_at
		FROM users WHERE id = $1`

	var row UserRow
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.DisplayName, &row.Role, &row.CreatedAt, &row.LastLoginAt,
	)
	return row, err
}

// UserExists reports whether the account id is present.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, id).Scan(&exists)
	return exists, err
}

// UpdateLastLogin stamps the account's last_login_at with the current time.
func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	const query = `UPDATE users SET last_login_at = now() WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id)
	return err
}

// ListUserIDsByRole returns the ids of every account holding the given role.
// Announcement fan-out to a whole audience resolves its targets through this.
func (s *Store) ListUserIDsByRole(ctx context.Context, role string) ([]string, error) {
	const query = `SELECT id FROM users WHERE role = $1`

	rows, err := s.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
