package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const guestColumns = `id, full_name, email, phone, fields, mac, site, status,
	approver, time_connection, start_time, hostname, rx_bytes, tx_bytes`

// ListGuests returns every guest record.
// Returns an empty slice if no guests exist.
func (s *SQLiteStorage) ListGuests(ctx context.Context) ([]*Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+guestColumns+" FROM guests ORDER BY start_time DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	guests := make([]*Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guests: %w", err)
	}

	return guests, nil
}

// GetGuest retrieves a guest record by ID.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) GetGuest(ctx context.Context, id string) (*Guest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+guestColumns+" FROM guests WHERE id = ?", id)

	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// SaveGuest inserts a new guest record, assigning an ID when none is set.
func (s *SQLiteStorage) SaveGuest(ctx context.Context, g *Guest) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}

	fields, err := marshalJSON(g.Fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO guests (id, full_name, email, phone, fields, mac, site, status,
			approver, time_connection, start_time, hostname, rx_bytes, tx_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.FullName, g.Email, g.Phone, fields, g.MAC, g.Site, string(g.Status),
		g.Approver, g.TimeConnection, g.StartTime,
		nullString(g.Hostname), nullInt64(g.RxBytes), nullInt64(g.TxBytes))
	if err != nil {
		return fmt.Errorf("failed to save guest: %w", mapConstraintErr(err))
	}
	return nil
}

// UpdateGuest persists the mutable fields of an existing guest record.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) UpdateGuest(ctx context.Context, g *Guest) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE guests SET status = ?, approver = ?, time_connection = ?,
			start_time = ?, hostname = ?, rx_bytes = ?, tx_bytes = ?
		WHERE id = ?`,
		string(g.Status), g.Approver, g.TimeConnection, g.StartTime,
		nullString(g.Hostname), nullInt64(g.RxBytes), nullInt64(g.TxBytes), g.ID)
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}

	return requireRow(result)
}

// DeleteGuest removes a guest record by ID.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) DeleteGuest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM guests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return requireRow(result)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGuest(sc scanner) (*Guest, error) {
	var (
		g        Guest
		status   string
		fields   string
		hostname sql.NullString
		rxBytes  sql.NullInt64
		txBytes  sql.NullInt64
	)

	err := sc.Scan(&g.ID, &g.FullName, &g.Email, &g.Phone, &fields, &g.MAC, &g.Site,
		&status, &g.Approver, &g.TimeConnection, &g.StartTime,
		&hostname, &rxBytes, &txBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan guest row: %w", err)
	}

	g.Status = GuestStatus(status)
	g.Hostname = hostname.String
	g.RxBytes = rxBytes.Int64
	g.TxBytes = txBytes.Int64

	if err := unmarshalJSON(fields, &g.Fields); err != nil {
		return nil, err
	}

	return &g, nil
}

// requireRow maps a zero-rows-affected result to ErrNotFound.
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
