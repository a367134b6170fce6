package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ListUsers returns every self-service user record.
func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, email, password_hash, profile FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetUserByUsername retrieves a user by username.
// Returns ErrNotFound if no such user exists.
func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, profile FROM users WHERE username = ?",
		username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// SaveUser inserts a new user, assigning an ID when none is set.
// Returns ErrDuplicate if the username is already registered.
func (s *SQLiteStorage) SaveUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	profile, err := marshalJSON(u.Profile)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, profile) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, credentialValue(u.Credential), profile)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", mapConstraintErr(err))
	}
	return nil
}

// DeleteUser removes a user by ID.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result)
}

func scanUser(sc scanner) (*User, error) {
	var (
		u        User
		password sql.NullString
		profile  string
	)

	err := sc.Scan(&u.ID, &u.Username, &u.Email, &password, &profile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}

	u.Credential = credentialFrom(password)
	if err := unmarshalJSON(profile, &u.Profile); err != nil {
		return nil, err
	}

	return &u, nil
}
