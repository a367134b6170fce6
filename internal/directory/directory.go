// Package directory resolves group membership and verifies credentials
// against the directory service (LDAP).
package directory

import (
	"context"
	"errors"
)

// Member is one resolved group member.
type Member struct {
	Username string
	Name     string
	Email    string
}

// Conn is one bound directory connection, held for the duration of a sync
// tick and closed afterwards.
type Conn interface {
	// GroupMembers resolves the named group to its member identities.
	GroupMembers(ctx context.Context, group string) ([]Member, error)
	Close()
}

// Service is the directory capability consumed by the sync loop and by
// login fallback for directory-backed records.
type Service interface {
	// Connect binds a service-account connection. A bind failure aborts the
	// caller's sync tick.
	Connect(ctx context.Context) (Conn, error)

	// Authenticate verifies user credentials with a direct bind-as-user.
	// Returns ErrInvalidCredentials when the bind is rejected.
	Authenticate(ctx context.Context, username, password string) error
}

var (
	// ErrInvalidCredentials is returned when a bind-as-user is rejected.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")

	// ErrUserNotFound is returned when no directory entry matches the
	// username.
	ErrUserNotFound = errors.New("directory: user not found")
)
