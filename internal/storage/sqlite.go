package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLiteStorage instance.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity with a lightweight query. Used by the
// /ready endpoint.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// mapConstraintErr converts a sqlite UNIQUE constraint violation into
// ErrDuplicate and leaves other errors untouched.
func mapConstraintErr(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// 2067 is the extended code for UNIQUE constraint violations.
		if sqliteErr.Code() == 2067 || (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
			return ErrDuplicate
		}
	}
	return err
}

// marshalJSON encodes a value for storage in a TEXT column.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(b), nil
}

// unmarshalJSON decodes a TEXT column into v, treating empty as absent.
func unmarshalJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}

// nullTime converts a time to a nullable column value; the zero time maps
// to NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// credentialValue converts a Credential to a nullable column value.
func credentialValue(c Credential) sql.NullString {
	if c.DirectoryBacked() {
		return sql.NullString{}
	}
	return sql.NullString{String: c.Hash(), Valid: true}
}

// credentialFrom converts a nullable column value back to a Credential.
func credentialFrom(v sql.NullString) Credential {
	if !v.Valid {
		return DirectoryCredential()
	}
	return LocalCredential(v.String)
}
