package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// guests table: one row per connection request, tracked through the
		// lifecycle state machine
		`CREATE TABLE IF NOT EXISTS guests (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			fields TEXT NOT NULL DEFAULT '{}',
			mac TEXT NOT NULL,
			site TEXT NOT NULL,
			status TEXT NOT NULL,
			approver TEXT NOT NULL,
			time_connection INTEGER NOT NULL,
			start_time TIMESTAMP NOT NULL,
			hostname TEXT,
			rx_bytes INTEGER,
			tx_bytes INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_guests_mac ON guests(mac)`,
		`CREATE INDEX IF NOT EXISTS idx_guests_site ON guests(site)`,

		// approvers table: password_hash NULL means the approver is
		// directory-backed and authenticates via the directory service
		`CREATE TABLE IF NOT EXISTS approvers (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			password_hash TEXT,
			code_hash TEXT NOT NULL DEFAULT '',
			approved_types TEXT NOT NULL DEFAULT '[]',
			validity TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_approvers_username ON approvers(username)`,

		// admins table
		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// users table: profile is the guest template applied on self-connect
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			password_hash TEXT,
			profile TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
