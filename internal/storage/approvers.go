package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const approverColumns = `id, username, email, password_hash, code_hash, approved_types, validity`

// ListApprovers returns every approver record. The approval-code subsystem
// scans this list on each validation; approver populations are small, so the
// scan is acceptable.
func (s *SQLiteStorage) ListApprovers(ctx context.Context) ([]*Approver, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+approverColumns+" FROM approvers ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query approvers: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	approvers := make([]*Approver, 0)
	for rows.Next() {
		a, err := scanApprover(rows)
		if err != nil {
			return nil, err
		}
		approvers = append(approvers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvers: %w", err)
	}

	return approvers, nil
}

// GetApproverByUsername retrieves an approver by username.
// Returns ErrNotFound if no such approver exists.
func (s *SQLiteStorage) GetApproverByUsername(ctx context.Context, username string) (*Approver, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+approverColumns+" FROM approvers WHERE username = ?", username)

	a, err := scanApprover(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// SaveApprover inserts a new approver, assigning an ID when none is set.
// Returns ErrDuplicate if the username is already registered.
func (s *SQLiteStorage) SaveApprover(ctx context.Context, a *Approver) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	types, err := marshalJSON(a.ApprovedTypes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO approvers (id, username, email, password_hash, code_hash, approved_types, validity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Email, credentialValue(a.Credential),
		a.CodeHash, types, nullTime(a.Validity))
	if err != nil {
		return fmt.Errorf("failed to save approver: %w", mapConstraintErr(err))
	}
	return nil
}

// UpdateApprover persists the mutable fields of an existing approver.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) UpdateApprover(ctx context.Context, a *Approver) error {
	types, err := marshalJSON(a.ApprovedTypes)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE approvers SET email = ?, password_hash = ?, code_hash = ?,
			approved_types = ?, validity = ?
		WHERE id = ?`,
		a.Email, credentialValue(a.Credential), a.CodeHash, types,
		nullTime(a.Validity), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update approver: %w", err)
	}
	return requireRow(result)
}

// DeleteApprover removes an approver by ID.
// Returns ErrNotFound if the record does not exist.
func (s *SQLiteStorage) DeleteApprover(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM approvers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete approver: %w", err)
	}
	return requireRow(result)
}

func scanApprover(sc scanner) (*Approver, error) {
	var (
		a        Approver
		password sql.NullString
		types    string
		validity sql.NullTime
	)

	err := sc.Scan(&a.ID, &a.Username, &a.Email, &password, &a.CodeHash, &types, &validity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan approver row: %w", err)
	}

	a.Credential = credentialFrom(password)
	a.Validity = validity.Time

	if err := unmarshalJSON(types, &a.ApprovedTypes); err != nil {
		return nil, err
	}

	return &a, nil
}
