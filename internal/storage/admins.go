package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ListAdmins returns every admin record.
func (s *SQLiteStorage) ListAdmins(ctx context.Context) ([]*Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, username, password_hash FROM admins ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	admins := make([]*Admin, 0)
	for rows.Next() {
		var (
			a        Admin
			password sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Username, &password); err != nil {
			return nil, fmt.Errorf("failed to scan admin row: %w", err)
		}
		a.Credential = credentialFrom(password)
		admins = append(admins, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}

	return admins, nil
}

// GetAdminByUsername retrieves an admin by username.
// Returns ErrNotFound if no such admin exists.
func (s *SQLiteStorage) GetAdminByUsername(ctx context.Context, username string) (*Admin, error) {
	var (
		a        Admin
		password sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, username, password_hash FROM admins WHERE username = ?",
		username).
		Scan(&a.ID, &a.Name, &a.Username, &password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	a.Credential = credentialFrom(password)
	return &a, nil
}

// SaveAdmin inserts a new admin, assigning an ID when none is set.
// Returns ErrDuplicate if the username is already registered.
func (s *SQLiteStorage) SaveAdmin(ctx context.Context, a *Admin) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (id, name, username, password_hash) VALUES (?, ?, ?, ?)",
		a.ID, a.Name, a.Username, credentialValue(a.Credential))
	if err != nil {
		return fmt.Errorf("failed to save admin: %w", mapConstraintErr(err))
	}
	return nil
}

// DeleteAdmin removes an admin by ID.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) DeleteAdmin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM admins WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	return requireRow(result)
}
